package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks notelink-ai/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// GetByPath gets a document by its relative path.
	// Returns nil and ErrNotFound if not found.
	GetByPath(ctx context.Context, relPath string) (*DocumentRecord, error)
	// GetByID gets a document by ID. Returns nil and ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
	// ListAll returns all documents ordered by relative path.
	ListAll(ctx context.Context) ([]DocumentRecord, error)
	// Upsert inserts a new document or updates an existing one by path.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// Delete removes a document by ID.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// DB exposes the underlying handle for read-only statistics queries.
func (r *DocumentRepo) DB() *sql.DB {
	return r.db
}

const documentColumns = "id, rel_path, folder, title, created_at, updated_at, hash"

// GetByPath gets a document by its relative path.
func (r *DocumentRepo) GetByPath(ctx context.Context, relPath string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE rel_path = ?", relPath)
	return scanDocument(row)
}

// GetByID gets a document by ID.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	return scanDocument(row)
}

// ListAll returns all documents ordered by relative path.
func (r *DocumentRepo) ListAll(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents ORDER BY rel_path")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		var createdAtStr, updatedAtStr string
		if err := rows.Scan(&doc.ID, &doc.RelPath, &doc.Folder, &doc.Title, &createdAtStr, &updatedAtStr, &doc.Hash); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.CreatedAt = parseSQLiteTime(createdAtStr)
		doc.UpdatedAt = parseSQLiteTime(updatedAtStr)
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}

// Upsert inserts a new document or updates an existing one by path.
// A new document gets a fresh UUID if doc.ID is empty.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	existing, err := r.GetByPath(ctx, doc.RelPath)
	if err != nil && err != ErrNotFound {
		return fmt.Errorf("failed to check existing document: %w", err)
	}

	if existing != nil {
		doc.ID = existing.ID
		_, err := r.db.ExecContext(ctx,
			"UPDATE documents SET folder = ?, title = ?, updated_at = CURRENT_TIMESTAMP, hash = ? WHERE id = ?",
			doc.Folder, doc.Title, doc.Hash, doc.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		return nil
	}

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO documents (id, rel_path, folder, title, hash) VALUES (?, ?, ?, ?, ?)",
		doc.ID, doc.RelPath, doc.Folder, doc.Title, doc.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// Delete removes a document by ID. Chunks cascade.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func scanDocument(row *sql.Row) (*DocumentRecord, error) {
	var doc DocumentRecord
	var createdAtStr, updatedAtStr string

	err := row.Scan(&doc.ID, &doc.RelPath, &doc.Folder, &doc.Title, &createdAtStr, &updatedAtStr, &doc.Hash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	doc.CreatedAt = parseSQLiteTime(createdAtStr)
	doc.UpdatedAt = parseSQLiteTime(updatedAtStr)
	return &doc, nil
}

// parseSQLiteTime parses the DATETIME string format SQLite emits for
// CURRENT_TIMESTAMP defaults. A zero time is returned for unparsable values.
func parseSQLiteTime(value string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
