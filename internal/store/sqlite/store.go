package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/edusignal/kbingest/internal/store"
	"github.com/edusignal/kbingest/internal/store/sqlite/migrations"
)

// Ensure Store implements the interface.
var _ store.Store = (*Store)(nil)

// Store is the SQLite-backed document/chunk store. It is constructed
// explicitly and closed by the caller; there is no package-level handle.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the store at dbPath, creating parent directories
// as needed and applying pending migrations.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL keeps reads usable while a run is writing chunks.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies all pending .up.sql migrations in version order.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

const documentColumns = `id, source_path, title, content, fingerprint, status,
	chunks_expected, chunks_created, error_message, completed_at, metadata,
	created_at, updated_at`

func (s *Store) GetDocumentByFingerprint(ctx context.Context, fp string) (*store.Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE fingerprint = ?", fp)
	return scanDocument(row)
}

func (s *Store) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	return scanDocument(row)
}

func (s *Store) HighestChunkIndex(ctx context.Context, documentID string) (int, error) {
	var highest int
	row := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(chunk_index), -1) FROM chunks WHERE document_id = ?", documentID)
	if err := row.Scan(&highest); err != nil {
		return -1, fmt.Errorf("querying highest chunk index: %w", err)
	}
	return highest, nil
}

func (s *Store) CreateDocument(ctx context.Context, doc *store.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, source_path, title, content, fingerprint, status,
			 chunks_expected, chunks_created, error_message, completed_at,
			 metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.SourcePath, doc.Title, doc.Content, doc.Fingerprint,
		string(doc.Status), nullInt(doc.ChunksExpected), doc.ChunksCreated,
		nullStr(doc.ErrorMessage), nullTime(doc.CompletedAt),
		string(metadataJSON), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

func (s *Store) UpdateDocumentStatus(ctx context.Context, id string, status store.Status, errMsg *string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`, string(status), nullStr(errMsg), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SaveChunk(ctx context.Context, chunk *store.Chunk) error {
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chunks (id, document_id, chunk_index, start_offset, end_offset, text, token_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, chunk.ID, chunk.DocumentID, chunk.Index, chunk.Start, chunk.End,
		chunk.Text, chunk.TokenCount, chunk.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET chunks_created = chunks_created + 1, updated_at = ?
		WHERE id = ?
	`, time.Now().UTC(), chunk.DocumentID)
	if err != nil {
		return fmt.Errorf("updating chunk count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunk: %w", err)
	}
	return nil
}

func (s *Store) FinalizeDocument(ctx context.Context, id string, total int) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, chunks_expected = ?, chunks_created = ?,
		    error_message = NULL, completed_at = ?, updated_at = ?
		WHERE id = ?
	`, string(store.StatusCompleted), total, total, now, now, id)
	if err != nil {
		return fmt.Errorf("finalizing document: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	// Chunks go with the document via ON DELETE CASCADE.
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]store.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		doc, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func (s *Store) GetChunks(ctx context.Context, documentID string) ([]store.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, start_offset, end_offset, text, token_count, created_at
		FROM chunks WHERE document_id = ? ORDER BY chunk_index ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []store.Chunk
	for rows.Next() {
		var c store.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Start, &c.End,
			&c.Text, &c.TokenCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func (s *Store) Stats(ctx context.Context) (store.StatusCounts, int, error) {
	var counts store.StatusCounts
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM documents GROUP BY status")
	if err != nil {
		return counts, 0, fmt.Errorf("querying status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, 0, fmt.Errorf("scanning status count: %w", err)
		}
		switch store.Status(status) {
		case store.StatusPending:
			counts.Pending = n
		case store.StatusInProgress:
			counts.InProgress = n
		case store.StatusCompleted:
			counts.Completed = n
		case store.StatusFailed:
			counts.Failed = n
		}
	}
	if err := rows.Err(); err != nil {
		return counts, 0, fmt.Errorf("iterating status counts: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&total); err != nil {
		return counts, 0, fmt.Errorf("counting chunks: %w", err)
	}
	return counts, total, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row *sql.Row) (*store.Document, error) {
	doc, err := scanDocumentFrom(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return doc, err
}

func scanDocumentRow(rows *sql.Rows) (*store.Document, error) {
	return scanDocumentFrom(rows)
}

func scanDocumentFrom(r rowScanner) (*store.Document, error) {
	var (
		doc            store.Document
		status         string
		chunksExpected sql.NullInt64
		errMsg         sql.NullString
		completedAt    sql.NullTime
		metadataJSON   string
	)
	err := r.Scan(&doc.ID, &doc.SourcePath, &doc.Title, &doc.Content,
		&doc.Fingerprint, &status, &chunksExpected, &doc.ChunksCreated,
		&errMsg, &completedAt, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Status = store.Status(status)
	if chunksExpected.Valid {
		n := int(chunksExpected.Int64)
		doc.ChunksExpected = &n
	}
	if errMsg.Valid {
		doc.ErrorMessage = &errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		doc.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return &doc, nil
}

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
