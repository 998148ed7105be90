package chunker

// Config controls chunking behavior.
type Config struct {
	MaxChars     int // Maximum characters per chunk.
	OverlapChars int // Characters shared between consecutive chunks.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxChars:     1500,
		OverlapChars: 200,
	}
}

// Span is one chunk boundary plus its text. Start and End are rune
// offsets into the source text, half-open.
type Span struct {
	Index      int
	Start      int
	End        int
	Text       string
	TokenCount int
}

// Split produces the full chunk list for text. It is deterministic: a
// resumed run recomputes the same spans a from-scratch run would have
// produced, so chunk N is identical no matter where chunking restarted.
//
// Each chunk covers [start, min(start+MaxChars, len)). The next start
// steps back by OverlapChars but always advances by at least one rune,
// which guarantees termination even when the overlap is configured
// larger than the chunk size.
func Split(text string, cfg Config) []Span {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 1500
	}
	if cfg.OverlapChars < 0 {
		cfg.OverlapChars = 0
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var spans []Span
	start := 0
	for i := 0; ; i++ {
		end := start + cfg.MaxChars
		if end > n {
			end = n
		}
		spans = append(spans, Span{
			Index:      i,
			Start:      start,
			End:        end,
			Text:       string(runes[start:end]),
			TokenCount: EstimateTokens(end - start),
		})
		if end == n {
			break
		}
		next := end - cfg.OverlapChars
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return spans
}
