package extractor

import (
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// extractPDF concatenates per-page text into one string. The size check
// runs before any parsing so oversized files cost one stat call.
func extractPDF(path string, maxSizeMB int) string {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxPDFSizeMB
	}
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	if info.Size() > int64(maxSizeMB)*1024*1024 {
		return ""
	}

	text, err := pdfPageText(path)
	if err != nil {
		return ""
	}
	return text
}

// pdfPageText walks every page of the PDF. The pdf library panics on
// some malformed files, so the whole parse is wrapped in a recover.
func pdfPageText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = nil
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(pageText)
	}
	return buf.String(), nil
}
