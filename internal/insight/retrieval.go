package insight

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"notelink-ai/internal/contextutil"
	"notelink-ai/internal/storage"
	"notelink-ai/internal/vectorstore"
)

// rrfK is the reciprocal rank fusion constant: score += 1/(rrfK + rank + 1).
const rrfK = 60

// RetrievedCandidate is a fused candidate document for pairing with the seed.
type RetrievedCandidate struct {
	DocumentID string
	Score      float64
	Wildcard   bool
}

// Retriever runs lexical and vector candidate retrieval and fuses the ranked
// lists with reciprocal rank fusion.
type Retriever struct {
	docs       storage.DocumentStore
	chunks     storage.ChunkStore
	embedder   Embedder
	vectors    vectorstore.VectorStore
	collection string
	rng        *rand.Rand
}

// NewRetriever creates a retriever over the document corpus and vector index.
// rng drives wildcard sampling; nil disables wildcards regardless of budget.
func NewRetriever(
	docs storage.DocumentStore,
	chunks storage.ChunkStore,
	embedder Embedder,
	vectors vectorstore.VectorStore,
	collection string,
	rng *rand.Rand,
) *Retriever {
	return &Retriever{
		docs:       docs,
		chunks:     chunks,
		embedder:   embedder,
		vectors:    vectors,
		collection: collection,
		rng:        rng,
	}
}

// Retrieve fuses lexical and per-query vector rankings over the corpus,
// excluding the seed document, optionally injects wildcard documents, and
// truncates to the budget's candidate count. An empty query set or corpus
// yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, queries []string, seedDocumentID string, budget Budget) ([]RetrievedCandidate, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(queries) == 0 {
		return nil, nil
	}

	docs, err := r.docs.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	corpus := make([]storage.DocumentRecord, 0, len(docs))
	for _, doc := range docs {
		if doc.ID != seedDocumentID {
			corpus = append(corpus, doc)
		}
	}
	if len(corpus) == 0 {
		return nil, nil
	}

	var rankedLists [][]string

	lexical, err := r.lexicalRanking(ctx, queries, corpus)
	if err != nil {
		logger.WarnContext(ctx, "lexical ranking failed, continuing with vector lists only", "error", err)
	} else if len(lexical) > 0 {
		rankedLists = append(rankedLists, lexical)
	}

	vectorLists := r.vectorRankings(ctx, queries, seedDocumentID, budget.PerQueryWidth)
	rankedLists = append(rankedLists, vectorLists...)

	fused := rrfFuse(rankedLists)

	candidates := make([]RetrievedCandidate, 0, len(fused))
	fusedSet := make(map[string]struct{}, len(fused))
	for _, f := range fused {
		candidates = append(candidates, RetrievedCandidate{DocumentID: f.id, Score: f.score})
		fusedSet[f.id] = struct{}{}
	}

	// Wildcards: uniform draws from the unfused remainder, for serendipity.
	if r.rng != nil && budget.MaxWildcards > 0 {
		var remainder []string
		for _, doc := range corpus {
			if _, ok := fusedSet[doc.ID]; !ok {
				remainder = append(remainder, doc.ID)
			}
		}
		r.rng.Shuffle(len(remainder), func(i, j int) {
			remainder[i], remainder[j] = remainder[j], remainder[i]
		})
		for i := 0; i < len(remainder) && i < budget.MaxWildcards; i++ {
			candidates = append(candidates, RetrievedCandidate{DocumentID: remainder[i], Wildcard: true})
		}
	}

	if len(candidates) > budget.FinalCandidateCount {
		candidates = candidates[:budget.FinalCandidateCount]
	}

	logger.InfoContext(ctx, "candidate retrieval completed",
		"queries", len(queries),
		"lists", len(rankedLists),
		"candidates", len(candidates),
	)
	return candidates, nil
}

// lexicalRanking orders corpus documents by term-frequency relevance to the
// combined query vocabulary.
func (r *Retriever) lexicalRanking(ctx context.Context, queries []string, corpus []storage.DocumentRecord) ([]string, error) {
	queryTokens := filterStopwords(tokenize(strings.Join(queries, " ")))
	if len(queryTokens) == 0 {
		return nil, nil
	}

	type scored struct {
		id    string
		score float64
	}
	var ranking []scored

	for _, doc := range corpus {
		children, err := r.chunks.ListChildrenByDocument(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load chunks for %s: %w", doc.ID, err)
		}

		var text strings.Builder
		text.WriteString(doc.Title)
		text.WriteString(" ")
		for _, child := range children {
			text.WriteString(child.Text)
			text.WriteString(" ")
		}

		docTokens := tokenize(text.String())
		if len(docTokens) == 0 {
			continue
		}
		freq := make(map[string]int, len(docTokens))
		for _, token := range docTokens {
			freq[token]++
		}

		var matches int
		for _, token := range queryTokens {
			matches += freq[token]
		}
		if matches == 0 {
			continue
		}
		// Length-normalized term frequency, same shape as the chunk-level
		// lexical score.
		ranking = append(ranking, scored{id: doc.ID, score: float64(matches) / (1 + float64(len(docTokens)))})
	}

	sort.SliceStable(ranking, func(i, j int) bool { return ranking[i].score > ranking[j].score })

	ids := make([]string, 0, len(ranking))
	for _, s := range ranking {
		ids = append(ids, s.id)
	}
	return ids, nil
}

// vectorRankings runs one nearest-neighbour search per query and reduces the
// chunk hits to de-duplicated, order-preserving document ID lists.
func (r *Retriever) vectorRankings(ctx context.Context, queries []string, seedDocumentID string, width int) [][]string {
	logger := contextutil.LoggerFromContext(ctx)

	if r.embedder == nil || r.vectors == nil || width <= 0 {
		return nil
	}

	embeddings, err := r.embedder.EmbedTexts(ctx, queries)
	if err != nil {
		logger.WarnContext(ctx, "query embedding failed, skipping vector retrieval", "error", err)
		return nil
	}

	var lists [][]string
	for i, vec := range embeddings {
		if len(vec) == 0 {
			// No vector produced for this query; skip it rather than search
			// with a zero vector.
			continue
		}
		hits, err := r.vectors.SearchExcluding(ctx, r.collection, vec, width, seedDocumentID)
		if err != nil {
			logger.WarnContext(ctx, "vector search failed for query", "query_index", i, "error", err)
			continue
		}

		seen := make(map[string]struct{}, len(hits))
		var list []string
		for _, hit := range hits {
			docID, _ := hit.Meta["document_id"].(string)
			if docID == "" || docID == seedDocumentID {
				continue
			}
			if _, dup := seen[docID]; dup {
				continue
			}
			seen[docID] = struct{}{}
			list = append(list, docID)
		}
		if len(list) > 0 {
			lists = append(lists, list)
		}
	}
	return lists
}

type fusedDoc struct {
	id    string
	score float64
}

// rrfFuse combines ranked document ID lists with reciprocal rank fusion.
// Ties resolve by first appearance across lists, keeping the fusion stable.
func rrfFuse(lists [][]string) []fusedDoc {
	scores := make(map[string]float64)
	order := make(map[string]int)
	next := 0

	for _, list := range lists {
		for rank, id := range list {
			scores[id] += 1.0 / float64(rrfK+rank+1)
			if _, seen := order[id]; !seen {
				order[id] = next
				next++
			}
		}
	}

	fused := make([]fusedDoc, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, fusedDoc{id: id, score: score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return order[fused[i].id] < order[fused[j].id]
	})
	return fused
}
