package api

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/edusignal/kbingest/internal/config"
	"github.com/edusignal/kbingest/internal/ingest"
	"github.com/edusignal/kbingest/internal/store"
)

// Server is the HTTP API for triggering and inspecting ingestion runs.
type Server struct {
	router chi.Router
	runner *ingest.Runner
	store  store.Store
	log    *slog.Logger
	cfg    config.Config

	// running guards against overlapping runs from this process. It is
	// best effort only; runs from other processes are not excluded.
	running atomic.Bool
}

// NewServer creates and configures the HTTP server.
func NewServer(runner *ingest.Runner, st store.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		runner: runner,
		store:  st,
		log:    log,
		cfg:    cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Post("/api/ingest", s.handleIngest)
	r.Get("/api/documents", s.handleListDocuments)
	r.Get("/api/documents/{docID}", s.handleGetDocument)
	r.Get("/api/documents/{docID}/chunks", s.handleGetChunks)
	r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
	r.Get("/api/stats", s.handleStats)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
