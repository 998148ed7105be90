package extractor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtract_MarkdownVerbatim(t *testing.T) {
	dir := t.TempDir()
	content := "# Heading\n\nSome body text.\n"
	path := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got := Extract(path, Options{})
	if got != content {
		t.Errorf("expected verbatim content, got %q", got)
	}
}

func TestExtract_PlainTextVerbatim(t *testing.T) {
	dir := t.TempDir()
	content := "line one\nline two\n"
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := Extract(path, Options{}); got != content {
		t.Errorf("expected verbatim content, got %q", got)
	}
}

func TestExtract_UnsupportedExtensionIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("a,b,c"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := Extract(path, Options{}); got != "" {
		t.Errorf("expected empty text for unsupported extension, got %q", got)
	}
}

func TestExtract_MissingFileIsEmpty(t *testing.T) {
	if got := Extract(filepath.Join(t.TempDir(), "gone.md"), Options{}); got != "" {
		t.Errorf("expected empty text for missing file, got %q", got)
	}
}

func TestExtract_OversizedPDFSkippedWithoutParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.pdf")
	// 2MB of garbage: would fail parsing, but the size gate must reject
	// it before any parse is attempted.
	if err := os.WriteFile(path, make([]byte, 2*1024*1024), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := Extract(path, Options{MaxPDFSizeMB: 1}); got != "" {
		t.Errorf("expected empty text for oversized pdf, got %q", got)
	}
}

func TestExtract_CorruptPDFIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 not actually a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := Extract(path, Options{MaxPDFSizeMB: 100}); got != "" {
		t.Errorf("expected empty text for corrupt pdf, got %q", got)
	}
}
