package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edusignal/kbingest/internal/store"
)

// Ensure Store implements the interface.
var _ store.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store, used in tests.
type Store struct {
	mu        sync.RWMutex
	documents map[string]store.Document
	chunks    map[string][]store.Chunk

	// FailSaveChunkAt makes SaveChunk fail once the chunk with this index
	// is written, simulating an interrupted run. Negative disables it.
	FailSaveChunkAt int

	// FailCreate makes CreateDocument fail, exercising the FAILED path
	// where no document row exists to annotate.
	FailCreate error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		documents:       make(map[string]store.Document),
		chunks:          make(map[string][]store.Chunk),
		FailSaveChunkAt: -1,
	}
}

func (s *Store) GetDocumentByFingerprint(_ context.Context, fp string) (*store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.documents {
		doc := s.documents[id]
		if doc.Fingerprint == fp {
			return &doc, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetDocument(_ context.Context, id string) (*store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &doc, nil
}

func (s *Store) HighestChunkIndex(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	highest := -1
	for _, c := range s.chunks[documentID] {
		if c.Index > highest {
			highest = c.Index
		}
	}
	return highest, nil
}

func (s *Store) CreateDocument(_ context.Context, doc *store.Document) error {
	if s.FailCreate != nil {
		return s.FailCreate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	d := *doc
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	s.documents[d.ID] = d
	return nil
}

func (s *Store) UpdateDocumentStatus(_ context.Context, id string, status store.Status, errMsg *string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return store.ErrNotFound
	}
	doc.Status = status
	doc.ErrorMessage = errMsg
	doc.UpdatedAt = time.Now()
	s.documents[id] = doc
	return nil
}

func (s *Store) SaveChunk(_ context.Context, chunk *store.Chunk) error {
	if s.FailSaveChunkAt >= 0 && chunk.Index >= s.FailSaveChunkAt {
		return ErrInjected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[chunk.DocumentID]
	if !ok {
		return store.ErrNotFound
	}
	c := *chunk
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.chunks[c.DocumentID] = append(s.chunks[c.DocumentID], c)
	doc.ChunksCreated++
	doc.UpdatedAt = time.Now()
	s.documents[chunk.DocumentID] = doc
	return nil
}

func (s *Store) FinalizeDocument(_ context.Context, id string, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	doc.Status = store.StatusCompleted
	doc.ChunksExpected = &total
	doc.ChunksCreated = total
	doc.CompletedAt = &now
	doc.ErrorMessage = nil
	doc.UpdatedAt = now
	s.documents[id] = doc
	return nil
}

func (s *Store) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

func (s *Store) ListDocuments(_ context.Context) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Document, 0, len(s.documents))
	for id := range s.documents {
		out = append(out, s.documents[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetChunks(_ context.Context, documentID string) ([]store.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]store.Chunk(nil), s.chunks[documentID]...)
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})
	return chunks, nil
}

func (s *Store) Stats(_ context.Context) (store.StatusCounts, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var counts store.StatusCounts
	for id := range s.documents {
		switch s.documents[id].Status {
		case store.StatusPending:
			counts.Pending++
		case store.StatusInProgress:
			counts.InProgress++
		case store.StatusCompleted:
			counts.Completed++
		case store.StatusFailed:
			counts.Failed++
		}
	}
	total := 0
	for _, chunks := range s.chunks {
		total += len(chunks)
	}
	return counts, total, nil
}

func (s *Store) Close() error { return nil }
