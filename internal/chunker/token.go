package chunker

// EstimateTokens gives a rough token count using the ~4 chars/token
// heuristic. This is intentionally simple — exact tokenization is not
// required for chunking.
func EstimateTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + 3) / 4
}
