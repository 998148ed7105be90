package ingest

// Phase identifies where a run is in its lifecycle for progress callbacks.
type Phase string

const (
	PhaseScanning   Phase = "scanning"
	PhaseProcessing Phase = "processing"
	PhaseComplete   Phase = "complete"
)

// Progress is the payload delivered to a ProgressFunc after scanning and
// after each file completes. It is informational only; it cannot abort
// in-flight work.
type Progress struct {
	Phase              Phase  `json:"phase"`
	Path               string `json:"path,omitempty"`
	Index              int    `json:"index"`
	Total              int    `json:"total"`
	DocumentsProcessed int    `json:"documents_processed"`
	ChunksCreated      int    `json:"chunks_created"`
	Errors             int    `json:"errors"`
}

// ProgressFunc receives progress updates during a run.
type ProgressFunc func(Progress)

// Result aggregates the counts of a single ingestion run. It is returned
// even when some files failed; only a scan-level failure aborts a run
// without a result.
type Result struct {
	FilesScanned     int      `json:"files_scanned"`
	FilesProcessed   int      `json:"files_processed"`
	FilesSkipped     int      `json:"files_skipped"`
	FilesResumed     int      `json:"files_resumed"`
	DocumentsCreated int      `json:"documents_created"`
	DocumentsUpdated int      `json:"documents_updated"`
	ChunksCreated    int      `json:"chunks_created"`
	Errors           []string `json:"errors"`
}

// HasErrors reports whether any per-file error was recorded.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}
