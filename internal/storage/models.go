package storage

import "time"

// DocumentRecord represents a markdown document in the database.
type DocumentRecord struct {
	ID        string // UUID
	RelPath   string // Relative path from the library root
	Folder    string // Folder path (path components except filename)
	Title     string // Extracted title from markdown
	CreatedAt time.Time
	UpdatedAt time.Time
	Hash      string // SHA256 hex string of file content
}

// ParentChunkRecord is a coarse semantic unit of a document (heading section).
type ParentChunkRecord struct {
	ID          string // Deterministic UUID, stable across re-indexing of the same content
	DocumentID  string
	ParentIndex int    // Index within document (starts at 0)
	HeadingPath string // Format: "# Heading1 > ## Heading2"
}

// ChildChunkRecord is the atomic retrieval/evidence unit. IDs are derived
// from content so re-indexing unchanged content yields the same IDs (they
// double as vector store point IDs).
type ChildChunkRecord struct {
	ID         string
	ParentID   string
	DocumentID string
	ChildIndex int // Index within parent chunk (starts at 0)
	Text       string
}

// InsightRecord is a persisted final insight for a seed document.
type InsightRecord struct {
	ID         string // UUID
	DocumentID string // Seed document
	Mode       string // "restructuring" or "serendipity"
	Core       string
	Confidence float64
	Payload    string // Full candidate JSON
	CreatedAt  time.Time
}

// FeedbackRecord is an up/down vote on an insight core claim. Claims feed the
// ranking step's feedback-similarity term.
type FeedbackRecord struct {
	ID        string // UUID
	Claim     string
	Vote      int // +1 or -1
	CreatedAt time.Time
}
