package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks notelink-ai/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata. Point IDs are child chunk
// IDs; the payload carries document_id and parent_id for filtering.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
// The index is only ever mutated by the indexing pipeline; retrieval is
// always read-only.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// SearchExcluding performs a nearest-neighbour search, excluding all
	// points belonging to excludeDocumentID (empty string excludes nothing).
	SearchExcluding(ctx context.Context, collection string, query []float32, k int, excludeDocumentID string) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// DeleteByDocument removes all points belonging to a document.
	DeleteByDocument(ctx context.Context, collection string, documentID string) error

	// HasDocument reports whether any points exist for a document.
	HasDocument(ctx context.Context, collection string, documentID string) (bool, error)
}
