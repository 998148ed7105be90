package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a document or chunk does not exist.
var ErrNotFound = errors.New("not found")

// Status represents the ingestion state of a document.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Document is one ingested source file, keyed logically by the
// fingerprint of its extracted text rather than by path.
type Document struct {
	ID          string
	SourcePath  string
	Title       string
	Content     string
	Fingerprint string
	Status      Status

	// ChunksExpected is nil until the full chunk list has been computed.
	ChunksExpected *int
	ChunksCreated  int

	ErrorMessage *string
	CompletedAt  *time.Time

	Metadata DocumentMeta

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentMeta carries free-form source-file metadata.
type DocumentMeta struct {
	FileName  string `json:"file_name"`
	ByteSize  int64  `json:"byte_size"`
	Extension string `json:"extension"`
}

// Chunk is one fixed-size slice of a document's text. Start and End are
// rune offsets into the parent text, half-open.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Start      int
	End        int
	Text       string
	TokenCount int
	CreatedAt  time.Time
}

// StatusCounts reports how many documents are in each status.
type StatusCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Store is the persistence contract for documents and chunks. Chunks are
// written one at a time in increasing index order so that an interrupted
// run leaves a well-defined highest persisted index to resume from.
type Store interface {
	// GetDocumentByFingerprint returns the document whose extracted text
	// hashes to fp, or ErrNotFound.
	GetDocumentByFingerprint(ctx context.Context, fp string) (*Document, error)

	// GetDocument returns a document by ID, or ErrNotFound.
	GetDocument(ctx context.Context, id string) (*Document, error)

	// HighestChunkIndex returns the largest persisted chunk index for a
	// document, or -1 when the document has no chunks.
	HighestChunkIndex(ctx context.Context, documentID string) (int, error)

	// CreateDocument persists a new document record.
	CreateDocument(ctx context.Context, doc *Document) error

	// UpdateDocumentStatus sets the status and optional error message.
	// Statuses outside the known set are rejected.
	UpdateDocumentStatus(ctx context.Context, id string, status Status, errMsg *string) error

	// SaveChunk persists a single chunk and increments the owning
	// document's created-chunk count.
	SaveChunk(ctx context.Context, chunk *Chunk) error

	// FinalizeDocument marks a document COMPLETED, records the completion
	// timestamp and sets both chunk counts to total.
	FinalizeDocument(ctx context.Context, id string, total int) error

	// DeleteDocument removes a document and all of its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]Document, error)

	// GetChunks returns a document's chunks in index order.
	GetChunks(ctx context.Context, documentID string) ([]Chunk, error)

	// Stats returns document counts by status and the total chunk count.
	Stats(ctx context.Context) (StatusCounts, int, error)

	// Close releases the underlying resources.
	Close() error
}
