package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"notelink-ai/internal/storage"
)

const (
	// ChunkerVersion identifies the chunking implementation. Bump it when the
	// chunking logic changes enough to warrant a full re-index.
	ChunkerVersion = "v1.0"
	// tokensPerRune approximates token counting (4 chars per token).
	tokensPerRune = 4.0
)

// IndexStats describes the current state of the index.
type IndexStats struct {
	// Documents is the total number of indexed documents.
	Documents int `json:"documents"`
	// DocumentsWithoutChunks counts documents that produced no child chunks.
	DocumentsWithoutChunks int `json:"documents_without_chunks"`
	// ParentChunks is the total parent chunk count.
	ParentChunks int `json:"parent_chunks"`
	// ChildChunks is the total child chunk count.
	ChildChunks int `json:"child_chunks"`
	// ChildTokenStats summarizes estimated token counts per child chunk.
	ChildTokenStats TokenStats `json:"child_token_stats"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion hashes the chunker version, embedding model, and chunking
	// parameters into a short identifier for the index build.
	IndexVersion string `json:"index_version"`
}

// TokenStats summarizes a token count distribution.
type TokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// Stats computes index statistics from the database. It needs the concrete
// repos for direct read-only queries.
func (p *Pipeline) Stats(ctx context.Context, embeddingModel string) (*IndexStats, error) {
	docRepo, ok := p.docRepo.(*storage.DocumentRepo)
	if !ok {
		return nil, fmt.Errorf("document repo does not expose a database handle")
	}
	db := docRepo.DB()

	stats := &IndexStats{ChunkerVersion: ChunkerVersion}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&stats.Documents); err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE id NOT IN (SELECT DISTINCT document_id FROM child_chunks)",
	).Scan(&stats.DocumentsWithoutChunks); err != nil {
		return nil, fmt.Errorf("failed to count documents without chunks: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM parent_chunks").Scan(&stats.ParentChunks); err != nil {
		return nil, fmt.Errorf("failed to count parent chunks: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT text FROM child_chunks")
	if err != nil {
		return nil, fmt.Errorf("failed to query child chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var tokenCounts []int
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan child chunk: %w", err)
		}
		count := int(math.Round(float64(utf8.RuneCountInString(text)) / tokensPerRune))
		if count < 1 {
			count = 1
		}
		tokenCounts = append(tokenCounts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	stats.ChildChunks = len(tokenCounts)
	stats.ChildTokenStats = computeTokenStats(tokenCounts)

	versionInput := fmt.Sprintf("%s|%s|minSectionSize=%d|maxChildSize=%d",
		ChunkerVersion, embeddingModel, minSectionSize, maxChildSize)
	hash := sha256.Sum256([]byte(versionInput))
	stats.IndexVersion = hex.EncodeToString(hash[:])[:16]

	return stats, nil
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) TokenStats {
	if len(tokenCounts) == 0 {
		return TokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return TokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
