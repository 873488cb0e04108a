package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks notelink-ai/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ChunkStore defines the interface for parent/child chunk storage operations.
type ChunkStore interface {
	// ReplaceForDocument atomically replaces all chunks of a document.
	// Chunk IDs must be set before calling (they are content-derived).
	ReplaceForDocument(ctx context.Context, documentID string, parents []ParentChunkRecord, children []ChildChunkRecord) error
	// ListParentsByDocument returns parent chunks ordered by parent_index.
	ListParentsByDocument(ctx context.Context, documentID string) ([]ParentChunkRecord, error)
	// ListChildrenByDocument returns child chunks ordered by parent then child index.
	ListChildrenByDocument(ctx context.Context, documentID string) ([]ChildChunkRecord, error)
	// ListChildIDsByDocument returns all child chunk IDs for a document.
	ListChildIDsByDocument(ctx context.Context, documentID string) ([]string, error)
	// GetChildByID gets a child chunk by its ID. Returns ErrNotFound if not found.
	GetChildByID(ctx context.Context, id string) (*ChildChunkRecord, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceForDocument atomically replaces all chunks of a document.
// Used on re-indexing: old chunks go away before new ones are inserted.
func (r *ChunkRepo) ReplaceForDocument(ctx context.Context, documentID string, parents []ParentChunkRecord, children []ChildChunkRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM child_chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to delete child chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM parent_chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to delete parent chunks: %w", err)
	}

	for i := range parents {
		p := &parents[i]
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO parent_chunks (id, document_id, parent_index, heading_path) VALUES (?, ?, ?, ?)",
			p.ID, p.DocumentID, p.ParentIndex, p.HeadingPath,
		); err != nil {
			return fmt.Errorf("failed to insert parent chunk: %w", err)
		}
	}

	for i := range children {
		c := &children[i]
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO child_chunks (id, parent_id, document_id, child_index, text) VALUES (?, ?, ?, ?, ?)",
			c.ID, c.ParentID, c.DocumentID, c.ChildIndex, c.Text,
		); err != nil {
			return fmt.Errorf("failed to insert child chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunk replacement: %w", err)
	}
	return nil
}

// ListParentsByDocument returns parent chunks ordered by parent_index.
func (r *ChunkRepo) ListParentsByDocument(ctx context.Context, documentID string) ([]ParentChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, document_id, parent_index, heading_path FROM parent_chunks WHERE document_id = ? ORDER BY parent_index",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query parent chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var parents []ParentChunkRecord
	for rows.Next() {
		var p ParentChunkRecord
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.ParentIndex, &p.HeadingPath); err != nil {
			return nil, fmt.Errorf("failed to scan parent chunk: %w", err)
		}
		parents = append(parents, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return parents, nil
}

// ListChildrenByDocument returns child chunks ordered by parent then child index.
func (r *ChunkRepo) ListChildrenByDocument(ctx context.Context, documentID string) ([]ChildChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.parent_id, c.document_id, c.child_index, c.text
		 FROM child_chunks c
		 JOIN parent_chunks p ON c.parent_id = p.id
		 WHERE c.document_id = ?
		 ORDER BY p.parent_index, c.child_index`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query child chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var children []ChildChunkRecord
	for rows.Next() {
		var c ChildChunkRecord
		if err := rows.Scan(&c.ID, &c.ParentID, &c.DocumentID, &c.ChildIndex, &c.Text); err != nil {
			return nil, fmt.Errorf("failed to scan child chunk: %w", err)
		}
		children = append(children, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return children, nil
}

// ListChildIDsByDocument returns all child chunk IDs for a document.
// Used to collect vector store point IDs before re-indexing.
func (r *ChunkRepo) ListChildIDsByDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM child_chunks WHERE document_id = ?", documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query child chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan child chunk ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

// GetChildByID gets a child chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetChildByID(ctx context.Context, id string) (*ChildChunkRecord, error) {
	var c ChildChunkRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, parent_id, document_id, child_index, text FROM child_chunks WHERE id = ?",
		id,
	).Scan(&c.ID, &c.ParentID, &c.DocumentID, &c.ChildIndex, &c.Text)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query child chunk: %w", err)
	}
	return &c, nil
}
