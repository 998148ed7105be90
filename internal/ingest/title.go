package ingest

import (
	"bufio"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const maxTitleLen = 100

// DeriveTitle produces a document title from the first non-blank line of
// its text: heading markers are stripped and the result truncated to 100
// characters. When that yields nothing, the source filename without its
// extension is used instead.
func DeriveTitle(content, sourcePath string) string {
	line := firstNonBlankLine(content)
	title := strings.TrimSpace(stripHeading(line))
	title = truncate(title, maxTitleLen)
	if title == "" {
		base := filepath.Base(sourcePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return title
}

func firstNonBlankLine(content string) string {
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}

// stripHeading removes markdown heading markers from a single line. The
// line is run through goldmark so ATX headings are handled the way a
// renderer would; lines goldmark does not consider headings (for example
// "#no-space" or 7+ hashes) fall back to trimming the leading markers.
func stripHeading(line string) string {
	if line == "" || line[0] != '#' {
		return line
	}

	src := []byte(line)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	if h, ok := doc.FirstChild().(*ast.Heading); ok {
		if t := string(h.Text(src)); t != "" {
			return t
		}
	}
	return strings.TrimLeft(strings.TrimLeft(line, "#"), " \t")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
