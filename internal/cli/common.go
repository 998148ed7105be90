package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/edusignal/kbingest/internal/config"
	"github.com/edusignal/kbingest/internal/store/sqlite"
)

// openStore opens the SQLite store at the configured location. When only
// a path override is given (no KB_BASE_DIR), the store lives alongside
// the override directory.
func openStore(cfg config.Config, pathOverride string) (*sqlite.Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" && pathOverride != "" {
		dbPath = filepath.Join(pathOverride, "kbingest.db")
	}
	st, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

// newLogger builds the CLI logger: debug narration when verbose, errors
// only when quiet, info otherwise. Logs go to stderr so plan output and
// the summary stay clean on stdout.
func newLogger(verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
