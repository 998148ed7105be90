package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edusignal/kbingest/internal/ingest"
	"github.com/edusignal/kbingest/internal/store"
)

// handleIngest triggers a synchronous ingestion run. Options come from
// the JSON body; omitted fields use the configured defaults. Returns 409
// while another run from this process is active.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	opts := ingest.DefaultOptions()
	opts.ChunkSize = s.cfg.DefaultChunkSize
	opts.Overlap = s.cfg.DefaultOverlap
	opts.MaxPDFSizeMB = s.cfg.MaxPDFSizeMB
	opts.MinTextLength = s.cfg.MinTextLength

	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	opts.Progress = nil // callbacks are a library concern

	if !s.running.CompareAndSwap(false, true) {
		jsonError(w, "an ingestion run is already active", http.StatusConflict)
		return
	}
	defer s.running.Store(false)

	root := s.cfg.SourceRoot(opts.Path)
	result, err := s.runner.Run(r.Context(), root, opts)
	if err != nil {
		jsonError(w, "ingestion failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// documentResponse summarizes a document without its full text.
type documentResponse struct {
	ID             string             `json:"id"`
	SourcePath     string             `json:"source_path"`
	Title          string             `json:"title"`
	Fingerprint    string             `json:"fingerprint"`
	Status         store.Status       `json:"status"`
	ChunksExpected *int               `json:"chunks_expected"`
	ChunksCreated  int                `json:"chunks_created"`
	ErrorMessage   *string            `json:"error_message,omitempty"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	Metadata       store.DocumentMeta `json:"metadata"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func toDocumentResponse(d store.Document) documentResponse {
	return documentResponse{
		ID:             d.ID,
		SourcePath:     d.SourcePath,
		Title:          d.Title,
		Fingerprint:    d.Fingerprint,
		Status:         d.Status,
		ChunksExpected: d.ChunksExpected,
		ChunksCreated:  d.ChunksCreated,
		ErrorMessage:   d.ErrorMessage,
		CompletedAt:    d.CompletedAt,
		Metadata:       d.Metadata,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	doc, err := s.store.GetDocument(r.Context(), docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(*doc))
}

type chunkResponse struct {
	ID         string `json:"id"`
	Index      int    `json:"index"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

func (s *Server) handleGetChunks(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if _, err := s.store.GetDocument(r.Context(), docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	chunks, err := s.store.GetChunks(r.Context(), docID)
	if err != nil {
		jsonError(w, "failed to load chunks: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]chunkResponse, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, chunkResponse{
			ID:         c.ID,
			Index:      c.Index,
			Start:      c.Start,
			End:        c.End,
			Text:       c.Text,
			TokenCount: c.TokenCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": docID, "chunks": out})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if _, err := s.store.GetDocument(r.Context(), docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.store.DeleteDocument(r.Context(), docID); err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, totalChunks, err := s.store.Stats(r.Context())
	if err != nil {
		jsonError(w, "failed to load stats: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents":    counts,
		"total_chunks": totalChunks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
