package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/docrequest-portal/internal/models"
)

const documentRequestColumns = `id, display_number, token, token_expires_at, status, instructions, internal_notes,
       originating_type, originating_id, recipient_email, recipient_name, recipient_ref,
       requested_by, requested_at, files_received_at, review_completed_at, review_notes,
       file_count, config_type_id, updated_at`

// DocumentRequestRepository persists document requests. Every status change is a
// conditional update keyed on the expected source statuses.
type DocumentRequestRepository struct {
	db *sqlx.DB
}

// NewDocumentRequestRepository constructs the repository.
func NewDocumentRequestRepository(db *sqlx.DB) *DocumentRequestRepository {
	return &DocumentRequestRepository{db: db}
}

// Create inserts the request and assigns its display number from a sequence.
// A token collision surfaces as ErrUniqueViolation.
func (r *DocumentRequestRepository) Create(ctx context.Context, req *models.DocumentRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.RequestedAt.IsZero() {
		req.RequestedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.RequestedAt
	}
	const query = `INSERT INTO document_requests
	(id, display_number, token, token_expires_at, status, instructions, internal_notes, originating_type, originating_id,
	 recipient_email, recipient_name, recipient_ref, requested_by, requested_at, file_count, config_type_id, updated_at)
	VALUES ($1, 'DR-' || LPAD(nextval('document_request_number_seq')::text, 6, '0'), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 0, $14, $15)
	RETURNING display_number`
	err := r.db.QueryRowxContext(ctx, query,
		req.ID, req.Token, req.TokenExpiresAt, req.Status, req.Instructions, req.InternalNotes,
		req.OriginatingType, req.OriginatingID, req.RecipientEmail, req.RecipientName, req.RecipientRef,
		req.RequestedBy, req.RequestedAt, req.ConfigTypeID, req.UpdatedAt,
	).Scan(&req.DisplayNumber)
	if err != nil {
		return fmt.Errorf("create document request: %w", translateWriteError(err))
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *DocumentRequestRepository) GetByID(ctx context.Context, id string) (*models.DocumentRequest, error) {
	query := `SELECT ` + documentRequestColumns + ` FROM document_requests WHERE id = $1`
	var req models.DocumentRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// GetByToken fetches a request by its normalized portal token.
func (r *DocumentRequestRepository) GetByToken(ctx context.Context, token string) (*models.DocumentRequest, error) {
	query := `SELECT ` + documentRequestColumns + ` FROM document_requests WHERE token = $1`
	var req models.DocumentRequest
	if err := r.db.GetContext(ctx, &req, query, token); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter, newest first, with the total count.
func (r *DocumentRequestRepository) List(ctx context.Context, filter models.DocumentRequestFilter) ([]models.DocumentRequest, int, error) {
	args := make([]interface{}, 0, 5)
	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Status)))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.OriginatingType != "" {
		args = append(args, filter.OriginatingType)
		conditions = append(conditions, fmt.Sprintf("originating_type = $%d", len(args)))
	}
	if filter.OriginatingID != "" {
		args = append(args, filter.OriginatingID)
		conditions = append(conditions, fmt.Sprintf("originating_id = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM document_requests"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count document requests: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM document_requests%s ORDER BY requested_at DESC LIMIT %d OFFSET %d",
		documentRequestColumns, where, limit, offset)

	var requests []models.DocumentRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list document requests: %w", err)
	}
	return requests, total, nil
}

// TransitionParams describes a conditional status change.
type TransitionParams struct {
	ID                string
	From              []models.RequestStatus
	To                models.RequestStatus
	At                time.Time
	ReviewNotes       *string
	RequireOpenWindow bool
}

// Transition applies a status change only when the row is still in one of params.From.
// Returns ErrTransitionLost when no row matched.
func (r *DocumentRequestRepository) Transition(ctx context.Context, params TransitionParams) error {
	setParts := []string{"status = $2", "updated_at = $4"}
	args := []interface{}{params.ID, params.To, pq.Array(statusStrings(params.From)), params.At}
	switch params.To {
	case models.RequestStatusFilesReceived:
		setParts = append(setParts, "files_received_at = COALESCE(files_received_at, $4)")
	case models.RequestStatusApproved, models.RequestStatusRejected:
		setParts = append(setParts, "review_completed_at = $4")
	}
	if params.ReviewNotes != nil {
		args = append(args, *params.ReviewNotes)
		setParts = append(setParts, fmt.Sprintf("review_notes = $%d", len(args)))
	}
	query := fmt.Sprintf("UPDATE document_requests SET %s WHERE id = $1 AND status = ANY($3)", strings.Join(setParts, ", "))
	if params.RequireOpenWindow {
		query += " AND token_expires_at > $4"
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition document request %s to %s: %w", params.ID, params.To, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTransitionLost
	}
	return nil
}

// ExpireIfPast moves a single request to Expired when its token window has closed.
// Reports whether this call performed the transition.
func (r *DocumentRequestRepository) ExpireIfPast(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `UPDATE document_requests SET status = $3, updated_at = $2
	WHERE id = $1 AND token_expires_at <= $2 AND status = ANY($4)`
	result, err := r.db.ExecContext(ctx, query, id, now, models.RequestStatusExpired,
		pq.Array(statusStrings(models.TransitionSources(models.RequestStatusExpired))))
	if err != nil {
		return false, fmt.Errorf("expire document request %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("expire rows affected: %w", err)
	}
	return affected > 0, nil
}

// ExpireStale expires every non-terminal request whose token window closed before now
// and returns the affected ids.
func (r *DocumentRequestRepository) ExpireStale(ctx context.Context, now time.Time) ([]string, error) {
	const query = `UPDATE document_requests SET status = $2, updated_at = $1
	WHERE token_expires_at < $1 AND status = ANY($3)
	RETURNING id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, now, models.RequestStatusExpired,
		pq.Array(statusStrings(models.TransitionSources(models.RequestStatusExpired)))); err != nil {
		return nil, fmt.Errorf("expire stale document requests: %w", err)
	}
	return ids, nil
}

// StageParams describes a batch of uploaded artifacts to persist against a request.
type StageParams struct {
	RequestID string
	Artifacts []models.FileArtifact
	At        time.Time
}

// StageResult reports the effects of staging.
type StageResult struct {
	FirstUpload bool
	FileCount   int
}

// StageArtifacts persists uploaded artifacts in one transaction: it locks the request
// row while the request is open, inserts the artifacts, moves Sent to FilesReceived and
// recomputes file_count. ErrRequestClosed means nothing was written.
func (r *DocumentRequestRepository) StageArtifacts(ctx context.Context, params StageParams) (result StageResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return StageResult{}, fmt.Errorf("begin stage transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const guardQuery = `UPDATE document_requests SET updated_at = $2
	WHERE id = $1 AND status = ANY($3) AND token_expires_at > $2`
	open := []models.RequestStatus{models.RequestStatusSent, models.RequestStatusFilesReceived, models.RequestStatusUnderReview}
	res, err := tx.ExecContext(ctx, guardQuery, params.RequestID, params.At, pq.Array(statusStrings(open)))
	if err != nil {
		return StageResult{}, fmt.Errorf("lock document request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return StageResult{}, fmt.Errorf("lock rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrRequestClosed
		return StageResult{}, err
	}

	const insertQuery = `INSERT INTO file_artifacts
	(id, request_id, file_name, size_bytes, content_type, storage_key, upload_source, review_status, created_at)
	VALUES (:id, :request_id, :file_name, :size_bytes, :content_type, :storage_key, :upload_source, :review_status, :created_at)`
	for i := range params.Artifacts {
		artifact := &params.Artifacts[i]
		if artifact.ID == "" {
			artifact.ID = uuid.NewString()
		}
		artifact.RequestID = params.RequestID
		if artifact.CreatedAt.IsZero() {
			artifact.CreatedAt = params.At
		}
		if _, err = tx.NamedExecContext(ctx, insertQuery, artifact); err != nil {
			return StageResult{}, fmt.Errorf("insert file artifact: %w", translateWriteError(err))
		}
	}

	const receivedQuery = `UPDATE document_requests SET status = $3, files_received_at = $2
	WHERE id = $1 AND status = $4`
	res, err = tx.ExecContext(ctx, receivedQuery, params.RequestID, params.At,
		models.RequestStatusFilesReceived, models.RequestStatusSent)
	if err != nil {
		return StageResult{}, fmt.Errorf("mark files received: %w", err)
	}
	if affected, err = res.RowsAffected(); err != nil {
		return StageResult{}, fmt.Errorf("files received rows affected: %w", err)
	}
	result.FirstUpload = affected == 1

	const countQuery = `UPDATE document_requests
	SET file_count = (SELECT COUNT(*) FROM file_artifacts WHERE request_id = $1 AND deleted_at IS NULL)
	WHERE id = $1
	RETURNING file_count`
	if err = tx.GetContext(ctx, &result.FileCount, countQuery, params.RequestID); err != nil {
		return StageResult{}, fmt.Errorf("recompute file count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return StageResult{}, fmt.Errorf("commit stage transaction: %w", err)
	}
	return result, nil
}

// CommitParams describes the approval of a request into its originating entity.
type CommitParams struct {
	RequestID  string
	EntityType string
	EntityID   string
	At         time.Time
}

// Commit approves the request and links every approved artifact to the originating
// entity in a single transaction. The status update runs first so that concurrent
// commits serialize on the request row; the loser sees ErrTransitionLost and nothing
// it attempted is kept. Returns the number of links created by this call.
func (r *DocumentRequestRepository) Commit(ctx context.Context, params CommitParams) (linked int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin commit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const approveQuery = `UPDATE document_requests SET status = $3, review_completed_at = $2, updated_at = $2
	WHERE id = $1 AND status = ANY($4) AND token_expires_at > $2`
	res, err := tx.ExecContext(ctx, approveQuery, params.RequestID, params.At, models.RequestStatusApproved,
		pq.Array(statusStrings(models.TransitionSources(models.RequestStatusApproved))))
	if err != nil {
		return 0, fmt.Errorf("approve document request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("approve rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrTransitionLost
		return 0, err
	}

	const linkQuery = `INSERT INTO artifact_links (artifact_id, entity_type, entity_id, created_at)
	SELECT id, $2, $3, $4 FROM file_artifacts
	WHERE request_id = $1 AND review_status = $5 AND deleted_at IS NULL
	ON CONFLICT (artifact_id, entity_type, entity_id) DO NOTHING`
	res, err = tx.ExecContext(ctx, linkQuery, params.RequestID, params.EntityType, params.EntityID, params.At, models.ReviewStatusApproved)
	if err != nil {
		return 0, fmt.Errorf("link approved artifacts: %w", err)
	}
	created, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("link rows affected: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit approval transaction: %w", err)
	}
	return int(created), nil
}

func statusStrings(statuses []models.RequestStatus) []string {
	result := make([]string, len(statuses))
	for i, status := range statuses {
		result[i] = string(status)
	}
	return result
}
