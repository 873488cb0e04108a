package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_feedback_store.go -package=mocks notelink-ai/internal/storage FeedbackStore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// FeedbackStore defines the interface for insight feedback operations.
type FeedbackStore interface {
	// Insert records an up/down vote on an insight core claim.
	Insert(ctx context.Context, rec *FeedbackRecord) error
	// ListClaims returns the voted claims split by direction.
	ListClaims(ctx context.Context) (upvoted, downvoted []string, err error)
}

// FeedbackRepo provides methods for feedback operations.
// It implements the FeedbackStore interface.
type FeedbackRepo struct {
	db *sql.DB
}

// NewFeedbackRepo creates a new FeedbackRepo.
func NewFeedbackRepo(db *sql.DB) *FeedbackRepo {
	return &FeedbackRepo{db: db}
}

// Insert records an up/down vote. Vote must be +1 or -1.
func (r *FeedbackRepo) Insert(ctx context.Context, rec *FeedbackRecord) error {
	if rec.Vote != 1 && rec.Vote != -1 {
		return fmt.Errorf("vote must be +1 or -1, got %d", rec.Vote)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO feedback (id, claim, vote) VALUES (?, ?, ?)",
		rec.ID, rec.Claim, rec.Vote,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// ListClaims returns the voted claims split by direction, newest first.
func (r *FeedbackRepo) ListClaims(ctx context.Context) ([]string, []string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT claim, vote FROM feedback ORDER BY created_at DESC")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var upvoted, downvoted []string
	for rows.Next() {
		var claim string
		var vote int
		if err := rows.Scan(&claim, &vote); err != nil {
			return nil, nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		if vote > 0 {
			upvoted = append(upvoted, claim)
		} else {
			downvoted = append(downvoted, claim)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("row iteration error: %w", err)
	}
	return upvoted, downvoted, nil
}
