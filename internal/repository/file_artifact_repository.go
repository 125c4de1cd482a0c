package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/docrequest-portal/internal/models"
)

const fileArtifactColumns = `id, request_id, file_name, size_bytes, content_type, storage_key, upload_source,
       review_status, reviewed_by, reviewed_at, rejection_reason, created_at, deleted_at`

// FileArtifactRepository persists uploaded artifacts and their review state.
type FileArtifactRepository struct {
	db *sqlx.DB
}

// NewFileArtifactRepository constructs the repository.
func NewFileArtifactRepository(db *sqlx.DB) *FileArtifactRepository {
	return &FileArtifactRepository{db: db}
}

// ListByRequest returns live artifacts for a request in upload order.
func (r *FileArtifactRepository) ListByRequest(ctx context.Context, requestID string) ([]models.FileArtifact, error) {
	query := `SELECT ` + fileArtifactColumns + ` FROM file_artifacts
	WHERE request_id = $1 AND deleted_at IS NULL ORDER BY created_at ASC, id ASC`
	var artifacts []models.FileArtifact
	if err := r.db.SelectContext(ctx, &artifacts, query, requestID); err != nil {
		return nil, fmt.Errorf("list file artifacts: %w", err)
	}
	return artifacts, nil
}

// Get fetches a live artifact belonging to the request.
func (r *FileArtifactRepository) Get(ctx context.Context, requestID, artifactID string) (*models.FileArtifact, error) {
	query := `SELECT ` + fileArtifactColumns + ` FROM file_artifacts
	WHERE id = $1 AND request_id = $2 AND deleted_at IS NULL`
	var artifact models.FileArtifact
	if err := r.db.GetContext(ctx, &artifact, query, artifactID, requestID); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// ReviewParams captures an operator decision on one artifact.
type ReviewParams struct {
	RequestID       string
	ArtifactID      string
	Status          models.ReviewStatus
	ReviewedBy      string
	ReviewedAt      time.Time
	RejectionReason *string
}

// UpdateReview records a decision while the owning request is still reviewable.
// The request row is share-locked for the duration of the update so a concurrent
// Commit or Reject either waits for the decision or makes it fail.
// Returns ErrRequestClosed when the request has left FilesReceived/UnderReview.
func (r *FileArtifactRepository) UpdateReview(ctx context.Context, params ReviewParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const lockQuery = `SELECT id FROM document_requests WHERE id = $1 AND status = ANY($2) FOR SHARE`
	reviewable := []string{string(models.RequestStatusFilesReceived), string(models.RequestStatusUnderReview)}
	var locked string
	if err = tx.GetContext(ctx, &locked, lockQuery, params.RequestID, pq.Array(reviewable)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRequestClosed
			return err
		}
		return fmt.Errorf("lock document request: %w", err)
	}

	const updateQuery = `UPDATE file_artifacts
	SET review_status = $3, reviewed_by = $4, reviewed_at = $5, rejection_reason = $6
	WHERE id = $1 AND request_id = $2 AND deleted_at IS NULL`
	result, err := tx.ExecContext(ctx, updateQuery, params.ArtifactID, params.RequestID, params.Status,
		params.ReviewedBy, params.ReviewedAt, params.RejectionReason)
	if err != nil {
		return fmt.Errorf("update artifact review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update artifact review rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrRequestClosed
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit review transaction: %w", err)
	}
	return nil
}

// ListLinkedIDs returns ids of the request's artifacts linked to the given entity.
func (r *FileArtifactRepository) ListLinkedIDs(ctx context.Context, requestID, entityType, entityID string) ([]string, error) {
	const query = `SELECT l.artifact_id FROM artifact_links l
	JOIN file_artifacts a ON a.id = l.artifact_id
	WHERE a.request_id = $1 AND l.entity_type = $2 AND l.entity_id = $3
	ORDER BY l.artifact_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, requestID, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list linked artifacts: %w", err)
	}
	return ids, nil
}
