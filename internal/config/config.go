package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// SourceSubdir is the fixed directory under the knowledge base dir that
// ingestion reads from, unless an explicit path override is supplied.
const SourceSubdir = "documents"

type Config struct {
	Port string

	// Knowledge base layout
	BaseDir string
	DBPath  string

	// Chunking defaults
	DefaultChunkSize int
	DefaultOverlap   int

	// Extraction limits
	MaxPDFSizeMB  int
	MinTextLength int
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		BaseDir: os.Getenv("KB_BASE_DIR"),
		DBPath:  os.Getenv("KB_DB_PATH"),

		DefaultChunkSize: envInt("KB_CHUNK_SIZE", 1500),
		DefaultOverlap:   envInt("KB_CHUNK_OVERLAP", 200),

		MaxPDFSizeMB:  envInt("KB_MAX_PDF_SIZE_MB", 100),
		MinTextLength: envInt("KB_MIN_TEXT_LENGTH", 100),
	}

	if cfg.DBPath == "" && cfg.BaseDir != "" {
		cfg.DBPath = filepath.Join(cfg.BaseDir, "kbingest.db")
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 1500
	}
	if cfg.DefaultOverlap < 0 {
		cfg.DefaultOverlap = 200
	}
	if cfg.MaxPDFSizeMB <= 0 {
		cfg.MaxPDFSizeMB = 100
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 100
	}

	return cfg
}

// SourceRoot resolves the directory to scan: the override when given,
// otherwise the fixed subdirectory beneath the configured base dir.
func (c Config) SourceRoot(override string) string {
	if override != "" {
		return override
	}
	return filepath.Join(c.BaseDir, SourceSubdir)
}

// Validate checks that enough configuration exists for a run. An explicit
// path override removes the need for KB_BASE_DIR; the store then defaults
// to living alongside the override directory.
func (c Config) Validate(pathOverride string) error {
	if c.BaseDir == "" && pathOverride == "" {
		return fmt.Errorf("KB_BASE_DIR is required (or pass an explicit --path)")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
