package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/docrequest-portal/internal/models"
)

// ReviewAssignmentRepository manages operator review assignments.
type ReviewAssignmentRepository struct {
	db *sqlx.DB
}

// NewReviewAssignmentRepository constructs the repository.
func NewReviewAssignmentRepository(db *sqlx.DB) *ReviewAssignmentRepository {
	return &ReviewAssignmentRepository{db: db}
}

// CreateReviewAssignment opens an assignment unless one is already open for the request.
func (r *ReviewAssignmentRepository) CreateReviewAssignment(ctx context.Context, requestID, ownerID string) error {
	const query = `INSERT INTO review_assignments (id, request_id, owner_id, status, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (request_id) WHERE status = 'OPEN' DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), requestID, ownerID,
		models.AssignmentStatusOpen, time.Now().UTC()); err != nil {
		return fmt.Errorf("create review assignment: %w", err)
	}
	return nil
}

// CompleteAssignment closes any open assignment for the request. No-op when none is open.
func (r *ReviewAssignmentRepository) CompleteAssignment(ctx context.Context, requestID string) error {
	const query = `UPDATE review_assignments SET status = $2, completed_at = $3 WHERE request_id = $1 AND status = $4`
	if _, err := r.db.ExecContext(ctx, query, requestID, models.AssignmentStatusCompleted,
		time.Now().UTC(), models.AssignmentStatusOpen); err != nil {
		return fmt.Errorf("complete review assignment: %w", err)
	}
	return nil
}

// ListOpenByOwner returns the owner's open assignments, oldest first.
func (r *ReviewAssignmentRepository) ListOpenByOwner(ctx context.Context, ownerID string) ([]models.ReviewAssignment, error) {
	const query = `SELECT id, request_id, owner_id, status, created_at, completed_at
	FROM review_assignments WHERE owner_id = $1 AND status = $2 ORDER BY created_at ASC`
	var items []models.ReviewAssignment
	if err := r.db.SelectContext(ctx, &items, query, ownerID, models.AssignmentStatusOpen); err != nil {
		return nil, fmt.Errorf("list review assignments: %w", err)
	}
	return items, nil
}
