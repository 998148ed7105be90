package scanner

import (
	"os"
	"path/filepath"
	"strings"
)

// Options controls a scan.
type Options struct {
	// MaxFiles caps how many paths are collected; 0 means unlimited.
	// Traversal stops early once the cap is reached.
	MaxFiles int

	// IncludePDFs adds .pdf to the supported extension set.
	IncludePDFs bool
}

// textExtensions are always collected.
var textExtensions = map[string]bool{
	".md":       true,
	".txt":      true,
	".markdown": true,
}

// Supported reports whether a path would be collected by a scan.
func Supported(path string, includePDFs bool) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if textExtensions[ext] {
		return true
	}
	return includePDFs && ext == ".pdf"
}

// Scan walks root recursively and returns absolute paths of supported
// files in depth-first, directory-listing order. Callers must not depend
// on a specific ordering across runs. A missing or unreadable root yields
// an empty list, not an error; unreadable subdirectories are skipped.
func Scan(root string, opts Options) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	var files []string
	// Explicit worklist rather than recursion so the max-file early exit
	// is a plain loop condition.
	stack := []string{abs}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		// Subdirectories are pushed in reverse so they pop in listing
		// order, keeping traversal depth-first.
		var subdirs []string
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				subdirs = append(subdirs, path)
				continue
			}
			if !Supported(path, opts.IncludePDFs) {
				continue
			}
			files = append(files, path)
			if opts.MaxFiles > 0 && len(files) >= opts.MaxFiles {
				return files, nil
			}
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	return files, nil
}
