package ingest

import (
	"crypto/sha256"
	"fmt"
)

// Fingerprint computes the content fingerprint of extracted text: the
// SHA-256 hex digest of its UTF-8 bytes. Two files whose extracted text
// is byte-identical collapse to the same logical document regardless of
// path.
func Fingerprint(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h[:])
}
