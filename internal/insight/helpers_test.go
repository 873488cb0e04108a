package insight

import (
	"context"
	"fmt"

	"notelink-ai/internal/storage"
	"notelink-ai/internal/vectorstore"
)

// fakeGenerator is a scriptable Generator for tests.
type fakeGenerator struct {
	completeFn     func(prompt string, temperature float64) (string, error)
	completeJSONFn func(prompt string, temperature float64) (string, error)
}

func (g *fakeGenerator) Complete(_ context.Context, prompt string, temperature float64) (string, error) {
	if g.completeFn == nil {
		return "", fmt.Errorf("unexpected Complete call")
	}
	return g.completeFn(prompt, temperature)
}

func (g *fakeGenerator) CompleteJSON(_ context.Context, prompt string, temperature float64) (string, error) {
	if g.completeJSONFn == nil {
		return "", fmt.Errorf("unexpected CompleteJSON call")
	}
	return g.completeJSONFn(prompt, temperature)
}

// fakeSearcher returns a fixed hit list for every query.
type fakeSearcher struct {
	hits    []SearchHit
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, query string, _ int) []SearchHit {
	s.queries = append(s.queries, query)
	return s.hits
}

// fakeDocStore is an in-memory DocumentStore.
type fakeDocStore struct {
	docs []storage.DocumentRecord
}

func (s *fakeDocStore) GetByPath(_ context.Context, relPath string) (*storage.DocumentRecord, error) {
	for i := range s.docs {
		if s.docs[i].RelPath == relPath {
			doc := s.docs[i]
			return &doc, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeDocStore) GetByID(_ context.Context, id string) (*storage.DocumentRecord, error) {
	for i := range s.docs {
		if s.docs[i].ID == id {
			doc := s.docs[i]
			return &doc, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeDocStore) ListAll(_ context.Context) ([]storage.DocumentRecord, error) {
	return append([]storage.DocumentRecord(nil), s.docs...), nil
}

func (s *fakeDocStore) Upsert(_ context.Context, doc *storage.DocumentRecord) error {
	for i := range s.docs {
		if s.docs[i].ID == doc.ID {
			s.docs[i] = *doc
			return nil
		}
	}
	s.docs = append(s.docs, *doc)
	return nil
}

func (s *fakeDocStore) Delete(_ context.Context, id string) error {
	for i := range s.docs {
		if s.docs[i].ID == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

// fakeChunkStore is an in-memory ChunkStore keyed by document ID.
type fakeChunkStore struct {
	children map[string][]storage.ChildChunkRecord
}

func (s *fakeChunkStore) ReplaceForDocument(_ context.Context, documentID string, _ []storage.ParentChunkRecord, children []storage.ChildChunkRecord) error {
	if s.children == nil {
		s.children = make(map[string][]storage.ChildChunkRecord)
	}
	s.children[documentID] = append([]storage.ChildChunkRecord(nil), children...)
	return nil
}

func (s *fakeChunkStore) ListParentsByDocument(_ context.Context, _ string) ([]storage.ParentChunkRecord, error) {
	return nil, nil
}

func (s *fakeChunkStore) ListChildrenByDocument(_ context.Context, documentID string) ([]storage.ChildChunkRecord, error) {
	return append([]storage.ChildChunkRecord(nil), s.children[documentID]...), nil
}

func (s *fakeChunkStore) ListChildIDsByDocument(_ context.Context, documentID string) ([]string, error) {
	var ids []string
	for _, c := range s.children[documentID] {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *fakeChunkStore) GetChildByID(_ context.Context, id string) (*storage.ChildChunkRecord, error) {
	for _, children := range s.children {
		for i := range children {
			if children[i].ID == id {
				child := children[i]
				return &child, nil
			}
		}
	}
	return nil, storage.ErrNotFound
}

// fakeEmbedder returns a fixed vector per text, keyed by substring match.
type fakeEmbedder struct {
	vec []float32
	err error
}

func (e *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

// fakeVectorStore serves canned search results and rejects writes.
type fakeVectorStore struct {
	results []vectorstore.SearchResult
	exclude []string
}

func (s *fakeVectorStore) Upsert(context.Context, string, []vectorstore.Point) error {
	return fmt.Errorf("read-only fake")
}

func (s *fakeVectorStore) SearchExcluding(_ context.Context, _ string, _ []float32, k int, excludeDocumentID string) ([]vectorstore.SearchResult, error) {
	s.exclude = append(s.exclude, excludeDocumentID)
	if len(s.results) > k {
		return s.results[:k], nil
	}
	return s.results, nil
}

func (s *fakeVectorStore) Delete(context.Context, string, []string) error {
	return fmt.Errorf("read-only fake")
}

func (s *fakeVectorStore) DeleteByDocument(context.Context, string, string) error {
	return fmt.Errorf("read-only fake")
}

func (s *fakeVectorStore) HasDocument(context.Context, string, string) (bool, error) {
	return false, nil
}

// corpusFixture builds a small document corpus with child chunks for
// retrieval and pipeline tests.
func corpusFixture() (*fakeDocStore, *fakeChunkStore) {
	docs := &fakeDocStore{docs: []storage.DocumentRecord{
		{ID: "seed", RelPath: "seed.md", Title: "Spaced Repetition"},
		{ID: "doc-a", RelPath: "a.md", Title: "Memory Consolidation"},
		{ID: "doc-b", RelPath: "b.md", Title: "Garden Planning"},
	}}
	chunks := &fakeChunkStore{children: map[string][]storage.ChildChunkRecord{
		"seed": {
			{ID: "seed-1", ParentID: "seed-p", DocumentID: "seed", ChildIndex: 0,
				Text: "Spaced repetition schedules reviews at increasing intervals to exploit the spacing effect in memory."},
		},
		"doc-a": {
			{ID: "a-1", ParentID: "a-p", DocumentID: "doc-a", ChildIndex: 0,
				Text: "Memory consolidation during sleep strengthens traces formed by repetition and spacing of practice."},
		},
		"doc-b": {
			{ID: "b-1", ParentID: "b-p", DocumentID: "doc-b", ChildIndex: 0,
				Text: "Crop rotation spreads soil demands across seasons, an interval-based planning habit for gardens."},
		},
	}}
	return docs, chunks
}
