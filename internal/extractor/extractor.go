package extractor

import (
	"os"
	"path/filepath"
	"strings"
)

// Options controls extraction.
type Options struct {
	// MaxPDFSizeMB skips PDF parsing entirely for files above this size.
	MaxPDFSizeMB int
}

// DefaultMaxPDFSizeMB bounds memory and time spent on a single PDF.
const DefaultMaxPDFSizeMB = 100

// Extract returns the plain text of the file at path, or "" when
// extraction is not possible: unsupported extension, oversized PDF, or
// any read/parse failure. Callers treat an empty result as a non-fatal
// skip, so no error is returned.
func Extract(path string, opts Options) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		return extractText(path)
	case ".pdf":
		return extractPDF(path, opts.MaxPDFSizeMB)
	default:
		return ""
	}
}

func extractText(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
