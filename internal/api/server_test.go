package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusignal/kbingest/internal/config"
	"github.com/edusignal/kbingest/internal/ingest"
	"github.com/edusignal/kbingest/internal/store"
	"github.com/edusignal/kbingest/internal/store/memory"
)

func testServer(t *testing.T, st store.Store, baseDir string) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := ingest.NewRunner(st, log)
	cfg := config.Config{
		BaseDir:          baseDir,
		DefaultChunkSize: 1500,
		DefaultOverlap:   200,
		MaxPDFSizeMB:     100,
		MinTextLength:    100,
	}
	return NewServer(runner, st, log, cfg)
}

func TestHealth(t *testing.T) {
	srv := testServer(t, memory.New(), t.TempDir())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestGetDocumentNotFound(t *testing.T) {
	srv := testServer(t, memory.New(), t.TempDir())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAndGetDocument(t *testing.T) {
	st := memory.New()
	require.NoError(t, st.CreateDocument(context.Background(), &store.Document{
		ID:          "doc-1",
		SourcePath:  "/kb/documents/a.md",
		Title:       "A",
		Content:     "full text stays out of responses",
		Fingerprint: "fp-1",
		Status:      store.StatusCompleted,
	}))
	srv := testServer(t, st, t.TempDir())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listBody struct {
		Documents []map[string]any `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listBody))
	require.Len(t, listBody.Documents, 1)
	assert.Equal(t, "doc-1", listBody.Documents[0]["id"])
	assert.NotContains(t, listBody.Documents[0], "content")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/doc-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fp-1")
	assert.NotContains(t, rec.Body.String(), "full text stays out of responses")
}

func TestGetChunks(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.CreateDocument(ctx, &store.Document{
		ID: "doc-1", Fingerprint: "fp-1", Status: store.StatusCompleted,
	}))
	require.NoError(t, st.SaveChunk(ctx, &store.Chunk{
		ID: "c-0", DocumentID: "doc-1", Index: 0, End: 10, Text: "hello", TokenCount: 2,
	}))
	srv := testServer(t, st, t.TempDir())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/doc-1/chunks", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		DocumentID string           `json:"document_id"`
		Chunks     []map[string]any `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "doc-1", body.DocumentID)
	require.Len(t, body.Chunks, 1)
	assert.Equal(t, "hello", body.Chunks[0]["text"])

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/missing/chunks", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteDocument(t *testing.T) {
	st := memory.New()
	require.NoError(t, st.CreateDocument(context.Background(), &store.Document{
		ID: "doc-1", Fingerprint: "fp-1", Status: store.StatusCompleted,
	}))
	srv := testServer(t, st, t.TempDir())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/documents/doc-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/documents/doc-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	st := memory.New()
	require.NoError(t, st.CreateDocument(context.Background(), &store.Document{
		ID: "doc-1", Fingerprint: "fp-1", Status: store.StatusCompleted,
	}))
	srv := testServer(t, st, t.TempDir())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Documents   store.StatusCounts `json:"documents"`
		TotalChunks int                `json:"total_chunks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Documents.Completed)
	assert.Zero(t, body.TotalChunks)
}

func TestIngestEndpoint(t *testing.T) {
	baseDir := t.TempDir()
	docsDir := filepath.Join(baseDir, "documents")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(docsDir, "note.md"),
		[]byte("# Note\n\n"+strings.Repeat("content ", 50)),
		0o644,
	))

	st := memory.New()
	srv := testServer(t, st, baseDir)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var res ingest.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.FilesScanned)
	assert.Equal(t, 1, res.FilesProcessed)
	assert.Equal(t, 1, res.DocumentsCreated)
	assert.Empty(t, res.Errors)

	docs, err := st.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, store.StatusCompleted, docs[0].Status)
}

// blockingStore stalls the first SaveChunk until released, holding an
// ingestion run mid-flight so overlap behavior can be observed.
type blockingStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) SaveChunk(ctx context.Context, chunk *store.Chunk) error {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.Store.SaveChunk(ctx, chunk)
}

func TestIngestConflictWhileRunning(t *testing.T) {
	baseDir := t.TempDir()
	docsDir := filepath.Join(baseDir, "documents")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(docsDir, "note.md"),
		[]byte(strings.Repeat("content ", 50)),
		0o644,
	))

	st := &blockingStore{
		Store:   memory.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	srv := testServer(t, st, baseDir)

	firstDone := make(chan *httptest.ResponseRecorder)
	go func() {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{}`)))
		firstDone <- rec
	}()

	// Wait until the first run is persisting chunks, then trigger a
	// second run against the busy server.
	<-st.entered
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(st.release)
	first := <-firstDone
	assert.Equal(t, http.StatusOK, first.Code)

	// With the busy flag released, a new run is accepted again.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIngestInvalidBody(t *testing.T) {
	srv := testServer(t, memory.New(), t.TempDir())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
