package indexer

// Section is a coarse semantic unit of a markdown document, bounded by the
// heading hierarchy. Sections become parent chunks; their text is split into
// size-bounded child chunks for embedding and retrieval.
type Section struct {
	Index       int    // Section index within document (starts at 0)
	HeadingPath string // Format: "# Heading1 > ## Heading2"
	Text        string // Full section text content
}
