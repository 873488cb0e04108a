package indexer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"notelink-ai/internal/contextutil"
	"notelink-ai/internal/library"
	"notelink-ai/internal/llm"
	"notelink-ai/internal/storage"
	"notelink-ai/internal/vectorstore"
)

// Pipeline orchestrates the indexing of markdown files into SQLite and the
// vector store. Parent and child chunk IDs are derived from content, so
// re-indexing unchanged content produces identical IDs and citations into
// the old index stay valid.
type Pipeline struct {
	manager     *library.Manager
	docRepo     storage.DocumentStore
	chunkRepo   storage.ChunkStore
	embedder    *llm.EmbeddingsClient
	vectorStore vectorstore.VectorStore
	collection  string
	chunker     *GoldmarkChunker
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	manager *library.Manager,
	docRepo storage.DocumentStore,
	chunkRepo storage.ChunkStore,
	embedder *llm.EmbeddingsClient,
	vectorStore vectorstore.VectorStore,
	collection string,
) *Pipeline {
	return &Pipeline{
		manager:     manager,
		docRepo:     docRepo,
		chunkRepo:   chunkRepo,
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		chunker:     NewGoldmarkChunker(),
	}
}

// IndexDocument indexes a single markdown file. Unchanged files (by content
// hash) are skipped. Changed files have their chunks replaced atomically in
// SQLite and their vector points rewritten.
func (p *Pipeline) IndexDocument(ctx context.Context, relPath string) error {
	logger := contextutil.LoggerFromContext(ctx)

	absPath := p.manager.AbsPath(relPath)
	content, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", absPath, err)
	}

	hash := sha256.Sum256(content)
	hashHex := fmt.Sprintf("%x", hash)

	existing, err := p.docRepo.GetByPath(ctx, relPath)
	if err != nil && err != storage.ErrNotFound {
		return fmt.Errorf("failed to check existing document: %w", err)
	}

	if existing != nil && existing.Hash == hashHex {
		logger.DebugContext(ctx, "skipping unchanged file", "rel_path", relPath, "hash", hashHex)
		return nil
	}

	title, sections, err := p.chunker.ChunkMarkdown(content, filepath.Base(relPath))
	if err != nil {
		return fmt.Errorf("failed to chunk markdown: %w", err)
	}

	documentID := uuid.New().String()
	if existing != nil {
		documentID = existing.ID
	}

	folder := filepath.Dir(relPath)
	if folder == "." || folder == "" {
		folder = ""
	} else {
		folder = filepath.ToSlash(folder)
	}

	doc := &storage.DocumentRecord{
		ID:      documentID,
		RelPath: relPath,
		Folder:  folder,
		Title:   title,
		Hash:    hashHex,
	}
	if err := p.docRepo.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	parents, children := p.buildChunkRecords(documentID, sections)

	if len(children) == 0 {
		logger.WarnContext(ctx, "no chunks generated", "rel_path", relPath)
		if err := p.chunkRepo.ReplaceForDocument(ctx, documentID, nil, nil); err != nil {
			return fmt.Errorf("failed to clear chunks: %w", err)
		}
		return nil
	}

	// Old vector points go first; content-derived IDs mean unchanged chunks
	// are simply re-upserted.
	if existing != nil {
		if err := p.vectorStore.DeleteByDocument(ctx, p.collection, documentID); err != nil {
			logger.WarnContext(ctx, "failed to delete old vector points", "error", err, "document_id", documentID)
		}
	}

	if err := p.chunkRepo.ReplaceForDocument(ctx, documentID, parents, children); err != nil {
		return fmt.Errorf("failed to replace chunks: %w", err)
	}

	texts := make([]string, len(children))
	for i, child := range children {
		texts[i] = child.Text
	}
	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(children) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(children), len(embeddings))
	}

	points := make([]vectorstore.Point, 0, len(children))
	skipped := 0
	for i, child := range children {
		if len(embeddings[i]) == 0 {
			// No vector produced for this chunk; it stays searchable
			// lexically but not by vector.
			skipped++
			continue
		}
		points = append(points, vectorstore.Point{
			ID:  child.ID,
			Vec: embeddings[i],
			Meta: map[string]any{
				"document_id": documentID,
				"parent_id":   child.ParentID,
				"child_index": child.ChildIndex,
				"rel_path":    relPath,
				"title":       title,
			},
		})
	}

	if len(points) > 0 {
		if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
			return fmt.Errorf("failed to upsert vectors: %w", err)
		}
	}

	logger.InfoContext(ctx, "indexed document",
		"rel_path", relPath,
		"title", title,
		"parents", len(parents),
		"children", len(children),
		"vectors_skipped", skipped,
	)
	return nil
}

// buildChunkRecords maps sections to parent records and their size-bounded
// child records. IDs are UUIDv5 over document ID, position, and content, so
// identical content at the same position always yields the same ID.
func (p *Pipeline) buildChunkRecords(documentID string, sections []Section) ([]storage.ParentChunkRecord, []storage.ChildChunkRecord) {
	var parents []storage.ParentChunkRecord
	var children []storage.ChildChunkRecord

	for _, section := range sections {
		childTexts := p.chunker.SplitChildren(section)
		if len(childTexts) == 0 {
			continue
		}

		parentID := deterministicID(documentID, strconv.Itoa(section.Index), section.HeadingPath)
		parents = append(parents, storage.ParentChunkRecord{
			ID:          parentID,
			DocumentID:  documentID,
			ParentIndex: section.Index,
			HeadingPath: section.HeadingPath,
		})

		for childIndex, text := range childTexts {
			children = append(children, storage.ChildChunkRecord{
				ID:         deterministicID(parentID, strconv.Itoa(childIndex), text),
				ParentID:   parentID,
				DocumentID: documentID,
				ChildIndex: childIndex,
				Text:       text,
			})
		}
	}

	return parents, children
}

// deterministicID derives a stable UUIDv5 from the given parts.
func deterministicID(parts ...string) string {
	var joined string
	for i, part := range parts {
		if i > 0 {
			joined += "|"
		}
		joined += part
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(joined)).String()
}

// IndexAll scans the library and indexes every markdown file. Per-file
// errors are logged and counted but do not stop the run.
func (p *Pipeline) IndexAll(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	files, err := p.manager.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan library: %w", err)
	}

	logger.InfoContext(ctx, "starting indexing", "total_files", len(files))

	var successCount, errorCount int
	for _, file := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.IndexDocument(ctx, file.RelPath); err != nil {
			errorCount++
			logger.ErrorContext(ctx, "failed to index file", "rel_path", file.RelPath, "error", err)
			continue
		}
		successCount++
	}

	logger.InfoContext(ctx, "indexing completed", "total_files", len(files), "success", successCount, "errors", errorCount)

	if errorCount > 0 {
		return fmt.Errorf("indexing completed with %d errors", errorCount)
	}
	return nil
}
