package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// InsightStore defines the interface for persisted insight records.
type InsightStore interface {
	// Insert stores a final insight for a document.
	Insert(ctx context.Context, rec *InsightRecord) error
	// ListByDocument returns insights for a document, newest first.
	ListByDocument(ctx context.Context, documentID string) ([]InsightRecord, error)
}

// InsightRepo provides methods for insight record operations.
// It implements the InsightStore interface.
type InsightRepo struct {
	db *sql.DB
}

// NewInsightRepo creates a new InsightRepo.
func NewInsightRepo(db *sql.DB) *InsightRepo {
	return &InsightRepo{db: db}
}

// Insert stores a final insight. A fresh UUID is assigned when rec.ID is empty.
func (r *InsightRepo) Insert(ctx context.Context, rec *InsightRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO insights (id, document_id, mode, core, confidence, payload) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.DocumentID, rec.Mode, rec.Core, rec.Confidence, rec.Payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}
	return nil
}

// ListByDocument returns insights for a document, newest first.
func (r *InsightRepo) ListByDocument(ctx context.Context, documentID string) ([]InsightRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, document_id, mode, core, confidence, payload, created_at FROM insights WHERE document_id = ? ORDER BY created_at DESC",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []InsightRecord
	for rows.Next() {
		var rec InsightRecord
		var createdAtStr string
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.Mode, &rec.Core, &rec.Confidence, &rec.Payload, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		rec.CreatedAt = parseSQLiteTime(createdAtStr)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}
