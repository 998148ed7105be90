package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/edusignal/kbingest/internal/chunker"
	"github.com/edusignal/kbingest/internal/extractor"
	"github.com/edusignal/kbingest/internal/scanner"
	"github.com/edusignal/kbingest/internal/store"
)

// Options configures an ingestion run. Zero values are replaced by the
// documented defaults via Normalize.
type Options struct {
	Verbose bool `json:"verbose"`
	Quiet   bool `json:"quiet"`

	// Plan performs no side effects; each file's decided action is
	// written to the runner's plan output instead.
	Plan bool `json:"plan"`

	// Path overrides the configured source root.
	Path string `json:"path,omitempty"`

	// MaxDocuments caps how many files are scanned; 0 means unlimited.
	MaxDocuments int `json:"max_documents"`

	ChunkSize int `json:"chunk_size"` // max characters per chunk
	Overlap   int `json:"overlap"`    // characters shared between chunks

	// Force deletes and recreates COMPLETED or FAILED documents.
	Force bool `json:"force"`

	// Resume continues IN_PROGRESS documents from their highest persisted
	// chunk index.
	Resume bool `json:"resume"`

	SkipPDFs     bool `json:"skip_pdfs"`
	MaxPDFSizeMB int  `json:"max_pdf_size_mb"`

	// MinTextLength skips files whose extracted text is shorter.
	MinTextLength int `json:"min_text_length"`

	Progress ProgressFunc `json:"-"`
}

// Defaults for Options fields left at their zero value.
const (
	DefaultChunkSize     = 1500
	DefaultOverlap       = 200
	DefaultMinTextLength = 100
)

// DefaultOptions returns the documented default options.
func DefaultOptions() Options {
	return Options{
		ChunkSize:     DefaultChunkSize,
		Overlap:       DefaultOverlap,
		Resume:        true,
		MaxPDFSizeMB:  extractor.DefaultMaxPDFSizeMB,
		MinTextLength: DefaultMinTextLength,
	}
}

// Normalize fills in defaults for unset numeric fields.
func (o *Options) Normalize() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Overlap < 0 {
		o.Overlap = DefaultOverlap
	}
	if o.MaxPDFSizeMB <= 0 {
		o.MaxPDFSizeMB = extractor.DefaultMaxPDFSizeMB
	}
	if o.MinTextLength <= 0 {
		o.MinTextLength = DefaultMinTextLength
	}
}

// Runner orchestrates ingestion runs over an explicitly injected store.
// Runs are strictly sequential: one file fully completes or fails before
// the next begins, and chunks are persisted one at a time in increasing
// index order so an interrupted run leaves a resumable high-water mark.
//
// Runner provides no mutual exclusion between concurrent runs against the
// same store; callers must serialize runs themselves.
type Runner struct {
	store store.Store
	log   *slog.Logger

	// PlanOut receives plan-mode step descriptions. Defaults to stdout.
	PlanOut io.Writer
}

// NewRunner creates a runner over the given store.
func NewRunner(st store.Store, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{store: st, log: log, PlanOut: os.Stdout}
}

// action is the state-machine decision for one scanned file.
type action int

const (
	actionSkip action = iota
	actionCreate
	actionResume
	actionRestart
)

// Run ingests every supported file under root. Per-file failures are
// recorded in the result and never abort the batch; only a scan failure
// returns an error.
func (r *Runner) Run(ctx context.Context, root string, opts Options) (*Result, error) {
	opts.Normalize()

	files, err := scanner.Scan(root, scanner.Options{
		MaxFiles:    opts.MaxDocuments,
		IncludePDFs: !opts.SkipPDFs,
	})
	if err != nil {
		r.log.Error("scan failed", "root", root, "error", err)
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	res := &Result{FilesScanned: len(files)}
	r.log.Info("scan complete", "root", root, "files", len(files))
	r.report(opts, Progress{Phase: PhaseScanning, Total: len(files)}, res)

	for i, path := range files {
		r.processFile(ctx, path, opts, res)
		r.report(opts, Progress{Phase: PhaseProcessing, Path: path, Index: i + 1, Total: len(files)}, res)
	}

	r.report(opts, Progress{Phase: PhaseComplete, Index: len(files), Total: len(files)}, res)
	r.log.Info("run complete",
		"processed", res.FilesProcessed,
		"skipped", res.FilesSkipped,
		"resumed", res.FilesResumed,
		"chunks", res.ChunksCreated,
		"errors", len(res.Errors),
	)
	return res, nil
}

func (r *Runner) report(opts Options, p Progress, res *Result) {
	if opts.Progress == nil {
		return
	}
	p.DocumentsProcessed = res.FilesProcessed
	p.ChunksCreated = res.ChunksCreated
	p.Errors = len(res.Errors)
	opts.Progress(p)
}

// processFile runs the per-file algorithm. Any error is captured into the
// run's error list and, when a document exists, recorded on it as FAILED;
// a failure to record that annotation is swallowed so the original error
// is never lost.
func (r *Runner) processFile(ctx context.Context, path string, opts Options, res *Result) {
	log := r.log.With("file", path)
	var docID string

	err := func() error {
		text := extractor.Extract(path, extractor.Options{MaxPDFSizeMB: opts.MaxPDFSizeMB})
		if len([]rune(text)) < opts.MinTextLength {
			r.logFile(opts, log, "skipping file", "reason", "text too short", "length", len(text))
			res.FilesSkipped++
			return nil
		}

		fp := Fingerprint(text)
		existing, err := r.store.GetDocumentByFingerprint(ctx, fp)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("fingerprint lookup: %w", err)
		}

		act, reason := decide(existing, opts)

		if opts.Plan {
			r.planStep(path, act, reason)
			switch act {
			case actionSkip:
				res.FilesSkipped++
			case actionResume:
				res.FilesResumed++
				res.FilesProcessed++
			default:
				res.FilesProcessed++
			}
			return nil
		}

		switch act {
		case actionSkip:
			r.logFile(opts, log, "skipping file", "reason", reason)
			res.FilesSkipped++
			return nil

		case actionRestart:
			r.logFile(opts, log, "reprocessing document", "doc_id", existing.ID, "prior_status", string(existing.Status))
			if err := r.store.DeleteDocument(ctx, existing.ID); err != nil {
				return fmt.Errorf("deleting prior document: %w", err)
			}
			fallthrough

		case actionCreate:
			doc := &store.Document{
				ID:          uuid.NewString(),
				SourcePath:  path,
				Title:       DeriveTitle(text, path),
				Content:     text,
				Fingerprint: fp,
				Status:      store.StatusPending,
				Metadata:    fileMeta(path),
			}
			if err := r.store.CreateDocument(ctx, doc); err != nil {
				return fmt.Errorf("creating document: %w", err)
			}
			docID = doc.ID
			res.DocumentsCreated++
			return r.chunkDocument(ctx, opts, log, docID, text, 0, res)

		case actionResume:
			docID = existing.ID
			highest, err := r.store.HighestChunkIndex(ctx, docID)
			if err != nil {
				return fmt.Errorf("finding resume point: %w", err)
			}
			r.logFile(opts, log, "resuming document", "doc_id", docID, "from_index", highest+1)
			res.FilesResumed++
			res.DocumentsUpdated++
			return r.chunkDocument(ctx, opts, log, docID, text, highest+1, res)
		}
		return nil
	}()

	if err != nil {
		log.Error("file failed", "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", path, err))
		if docID != "" {
			msg := err.Error()
			// Best effort; a secondary failure here is swallowed so the
			// original error stays in the run's error list.
			_ = r.store.UpdateDocumentStatus(ctx, docID, store.StatusFailed, &msg)
		}
	}
}

// chunkDocument recomputes the full chunk list and persists spans from
// resumeFrom onward, one at a time. Recomputing from scratch is what
// makes resumed chunks identical to a from-scratch run.
func (r *Runner) chunkDocument(ctx context.Context, opts Options, log *slog.Logger, docID, text string, resumeFrom int, res *Result) error {
	spans := chunker.Split(text, chunker.Config{
		MaxChars:     opts.ChunkSize,
		OverlapChars: opts.Overlap,
	})

	if err := r.store.UpdateDocumentStatus(ctx, docID, store.StatusInProgress, nil); err != nil {
		return fmt.Errorf("marking in progress: %w", err)
	}

	for _, sp := range spans {
		if sp.Index < resumeFrom {
			continue
		}
		chunk := &store.Chunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Index:      sp.Index,
			Start:      sp.Start,
			End:        sp.End,
			Text:       sp.Text,
			TokenCount: sp.TokenCount,
		}
		if err := r.store.SaveChunk(ctx, chunk); err != nil {
			return fmt.Errorf("saving chunk %d: %w", sp.Index, err)
		}
		res.ChunksCreated++
	}

	if err := r.store.FinalizeDocument(ctx, docID, len(spans)); err != nil {
		return fmt.Errorf("finalizing document: %w", err)
	}
	r.logFile(opts, log, "document complete", "doc_id", docID, "chunks", len(spans))
	res.FilesProcessed++
	return nil
}

// decide applies the status state machine for an encountered fingerprint.
func decide(existing *store.Document, opts Options) (action, string) {
	if existing == nil {
		return actionCreate, "new fingerprint"
	}
	switch existing.Status {
	case store.StatusCompleted:
		if opts.Force {
			return actionRestart, "force reprocess of completed document"
		}
		return actionSkip, "already completed"
	case store.StatusFailed:
		if opts.Force {
			return actionRestart, "force reprocess of failed document"
		}
		return actionSkip, "previously failed (use force to retry)"
	default:
		// PENDING behaves like IN_PROGRESS: the resume flag decides.
		if opts.Resume {
			return actionResume, "resuming in-progress document"
		}
		return actionSkip, "in progress, resume disabled"
	}
}

func (r *Runner) planStep(path string, act action, reason string) {
	verb := map[action]string{
		actionSkip:    "skip",
		actionCreate:  "create",
		actionResume:  "resume",
		actionRestart: "recreate",
	}[act]
	fmt.Fprintf(r.PlanOut, "plan: %s %s (%s)\n", verb, path, reason)
}

// logFile narrates per-file work at info level when verbose, debug
// otherwise. Quiet runs route this away via the handler level.
func (r *Runner) logFile(opts Options, log *slog.Logger, msg string, args ...any) {
	if opts.Verbose {
		log.Info(msg, args...)
		return
	}
	log.Debug(msg, args...)
}

func fileMeta(path string) store.DocumentMeta {
	meta := store.DocumentMeta{
		FileName:  filepath.Base(path),
		Extension: strings.ToLower(filepath.Ext(path)),
	}
	if info, err := os.Stat(path); err == nil {
		meta.ByteSize = info.Size()
	}
	return meta
}
