package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edusignal/kbingest/internal/api"
	"github.com/edusignal/kbingest/internal/config"
	"github.com/edusignal/kbingest/internal/ingest"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for triggering and inspecting ingestion",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(""); err != nil {
		return err
	}

	st, err := openStore(cfg, "")
	if err != nil {
		return err
	}
	defer st.Close()

	runner := ingest.NewRunner(st, log)
	srv := api.NewServer(runner, st, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // ingestion runs are synchronous
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting kbingest api", "port", cfg.Port, "db", st.Path())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
