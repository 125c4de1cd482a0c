package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/docrequest-portal/internal/dto"
	"github.com/noah-isme/docrequest-portal/internal/models"
	"github.com/noah-isme/docrequest-portal/internal/repository"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
)

const (
	defaultExpirationDays = 30
	requestResource       = "document_request"
)

type documentRequestStore interface {
	Create(ctx context.Context, req *models.DocumentRequest) error
	GetByID(ctx context.Context, id string) (*models.DocumentRequest, error)
	List(ctx context.Context, filter models.DocumentRequestFilter) ([]models.DocumentRequest, int, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
	ExpireIfPast(ctx context.Context, id string, now time.Time) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) ([]string, error)
	Commit(ctx context.Context, params repository.CommitParams) (int, error)
}

type requestArtifactReader interface {
	ListByRequest(ctx context.Context, requestID string) ([]models.FileArtifact, error)
	ListLinkedIDs(ctx context.Context, requestID, entityType, entityID string) ([]string, error)
}

type recipientResolver interface {
	ResolveWithConfig(ctx context.Context, cfg *models.EntityTypeConfig, entityID string) (*models.RecipientDescriptor, error)
}

type recipientNotifier interface {
	NotifyRecipient(ctx context.Context, notification models.RecipientNotification)
}

type reviewAssignments interface {
	CreateReviewAssignment(ctx context.Context, requestID, ownerID string) error
	CompleteAssignment(ctx context.Context, requestID string) error
}

// RequestServiceConfig carries deployment settings for the lifecycle manager.
type RequestServiceConfig struct {
	PortalBaseURL string
}

// RequestServiceDeps groups the collaborators of RequestService.
type RequestServiceDeps struct {
	Requests    documentRequestStore
	Artifacts   requestArtifactReader
	Configs     configProvider
	Resolver    recipientResolver
	Records     recordFetcher
	Notifier    recipientNotifier
	Assignments reviewAssignments
	Audit       auditLogger
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// RequestServiceOption customises RequestService behaviour.
type RequestServiceOption func(*RequestService)

// WithRequestClock overrides the time source.
func WithRequestClock(now func() time.Time) RequestServiceOption {
	return func(s *RequestService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenGenerator overrides portal token generation.
func WithTokenGenerator(gen func() (string, error)) RequestServiceOption {
	return func(s *RequestService) {
		if gen != nil {
			s.newToken = gen
		}
	}
}

// RequestService owns the document request state machine: creation, sending,
// approval into the originating record, rejection and expiration.
type RequestService struct {
	requests    documentRequestStore
	artifacts   requestArtifactReader
	configs     configProvider
	resolver    recipientResolver
	records     recordFetcher
	notifier    recipientNotifier
	assignments reviewAssignments
	audit       auditTrail
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         RequestServiceConfig

	now      func() time.Time
	newToken func() (string, error)
}

// NewRequestService constructs the lifecycle manager.
func NewRequestService(deps RequestServiceDeps, cfg RequestServiceConfig, opts ...RequestServiceOption) *RequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	svc := &RequestService{
		requests:    deps.Requests,
		artifacts:   deps.Artifacts,
		configs:     deps.Configs,
		resolver:    deps.Resolver,
		records:     deps.Records,
		notifier:    deps.Notifier,
		assignments: deps.Assignments,
		audit:       auditTrail{store: deps.Audit, logger: logger, source: "request-service"},
		metrics:     deps.Metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         defaultClock,
		newToken:    NewPortalToken,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewPortalToken returns 128 random bits in canonical lowercase hyphenated form.
func NewPortalToken() (string, error) {
	var raw uuid.UUID
	if _, err := io.ReadFull(rand.Reader, raw[:]); err != nil {
		return "", fmt.Errorf("generate portal token: %w", err)
	}
	return raw.String(), nil
}

// defaultClock truncates to the database timestamp precision so values read back compare equal.
func defaultClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// CreateRequest resolves the recipient, mints a token and persists the request as
// Sent (or Draft). The recipient is notified only for Sent requests.
func (s *RequestService) CreateRequest(ctx context.Context, req dto.CreateDocumentRequest, actorID string) (*dto.CreateDocumentRequestResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document request payload")
	}

	cfg, err := s.configs.GetConfig(ctx, req.OriginatingType)
	if err != nil {
		return nil, err
	}
	recipient, err := s.resolver.ResolveWithConfig(ctx, cfg, req.OriginatingID)
	if err != nil {
		return nil, err
	}

	days := cfg.DefaultExpirationDays
	if req.ExpirationOverrideDays != nil {
		days = *req.ExpirationOverrideDays
	}
	if days <= 0 {
		days = defaultExpirationDays
	}

	status := models.RequestStatusSent
	if req.SaveAsDraft {
		status = models.RequestStatusDraft
	}

	now := s.now()
	doc := &models.DocumentRequest{
		TokenExpiresAt:  now.AddDate(0, 0, days),
		Status:          status,
		Instructions:    strings.TrimSpace(req.Instructions),
		InternalNotes:   strings.TrimSpace(req.InternalNotes),
		OriginatingType: cfg.TypeID,
		OriginatingID:   req.OriginatingID,
		RecipientEmail:  recipient.Email,
		RecipientName:   recipient.Name,
		RecipientRef:    recipient.ContactRef,
		RequestedBy:     actorID,
		RequestedAt:     now,
		ConfigTypeID:    cfg.TypeID,
		UpdatedAt:       now,
	}

	token, err := s.newToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate portal token")
	}
	doc.Token = token
	if err = s.requests.Create(ctx, doc); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			s.logger.Warn("portal token collision", zap.String("originating_type", doc.OriginatingType), zap.String("originating_id", doc.OriginatingID))
		}
		return nil, storeFailure(err, "failed to create document request")
	}

	s.metrics.RecordRequestCreated(status)
	s.audit.emit(ctx, actorID, models.AuditActionRequestCreate, requestResource, doc.ID, map[string]interface{}{
		"displayNumber":   doc.DisplayNumber,
		"status":          doc.Status,
		"originatingType": doc.OriginatingType,
		"originatingId":   doc.OriginatingID,
		"tokenExpiresAt":  doc.TokenExpiresAt,
	})
	if status == models.RequestStatusSent {
		s.notify(ctx, doc, cfg)
	}

	return &dto.CreateDocumentRequestResult{
		RequestID:     doc.ID,
		DisplayNumber: doc.DisplayNumber,
		Status:        doc.Status,
		ExpiresAt:     doc.TokenExpiresAt,
	}, nil
}

// SendRequest moves a Draft to Sent and notifies the recipient.
func (s *RequestService) SendRequest(ctx context.Context, requestID, actorID string) (*models.DocumentRequest, error) {
	doc, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.rejectIfExpired(ctx, doc, now); err != nil {
		return nil, err
	}
	if !models.CanTransition(doc.Status, models.RequestStatusSent) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("request in status %s cannot be sent", doc.Status))
	}
	err = s.requests.Transition(ctx, repository.TransitionParams{
		ID:                doc.ID,
		From:              models.TransitionSources(models.RequestStatusSent),
		To:                models.RequestStatusSent,
		At:                now,
		RequireOpenWindow: true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrTransitionLost) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently")
		}
		return nil, storeFailure(err, "failed to send document request")
	}
	doc.Status = models.RequestStatusSent
	doc.UpdatedAt = now
	s.metrics.RecordTransition(models.RequestStatusSent)
	s.audit.emit(ctx, actorID, models.AuditActionRequestSend, requestResource, doc.ID, nil)

	cfg, err := s.configs.GetConfig(ctx, doc.ConfigTypeID)
	if err != nil {
		s.logger.Warn("skipping notification, configuration unavailable", zap.String("request_id", doc.ID), zap.Error(err))
		return doc, nil
	}
	s.notify(ctx, doc, cfg)
	return doc, nil
}

// GetRequest returns a request with its live artifacts. A request past its window
// is expired on read.
func (s *RequestService) GetRequest(ctx context.Context, requestID string) (*dto.DocumentRequestDetail, error) {
	doc, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !doc.Status.IsTerminal() && doc.ExpiredAt(s.now()) {
		s.expire(ctx, doc, s.now())
	}
	files, err := s.artifacts.ListByRequest(ctx, doc.ID)
	if err != nil {
		return nil, storeFailure(err, "failed to load request files")
	}
	if files == nil {
		files = []models.FileArtifact{}
	}
	return &dto.DocumentRequestDetail{DocumentRequest: *doc, Files: files}, nil
}

// ListRequests returns a page of requests.
func (s *RequestService) ListRequests(ctx context.Context, query dto.DocumentRequestQuery) ([]models.DocumentRequest, *models.Pagination, error) {
	page := query.Page
	if page <= 0 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	filter := models.DocumentRequestFilter{
		OriginatingType: query.OriginatingType,
		OriginatingID:   query.OriginatingID,
		RequestedBy:     query.RequestedBy,
		Limit:           size,
		Offset:          (page - 1) * size,
	}
	for _, raw := range query.Status {
		for _, part := range strings.Split(raw, ",") {
			status := models.RequestStatus(strings.ToUpper(strings.TrimSpace(part)))
			if status == "" {
				continue
			}
			if !status.Valid() {
				return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", part))
			}
			filter.Status = append(filter.Status, status)
		}
	}
	items, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, nil, storeFailure(err, "failed to list document requests")
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// RunExpirationSweep expires every non-terminal request whose window has closed.
// It is idempotent: a second run at the same instant affects nothing.
func (s *RequestService) RunExpirationSweep(ctx context.Context) (int, error) {
	start := time.Now()
	ids, err := s.requests.ExpireStale(ctx, s.now())
	s.metrics.ObserveSweep(time.Since(start))
	if err != nil {
		return 0, storeFailure(err, "failed to expire document requests")
	}
	for _, id := range ids {
		s.closeAssignment(ctx, id)
		s.audit.emit(ctx, "", models.AuditActionRequestExpire, requestResource, id, map[string]string{"source": expirySweep})
	}
	s.metrics.RecordExpirations(expirySweep, len(ids))
	s.logger.Info("expiration sweep finished", zap.Int("expired", len(ids)))
	return len(ids), nil
}

// CommitApprovedFiles links every approved artifact to the originating record and
// approves the request in one atomic step. Re-invoking on an Approved request
// returns the original result without further effects.
func (s *RequestService) CommitApprovedFiles(ctx context.Context, requestID, actorID string) (*models.CommitResult, error) {
	doc, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if doc.Status == models.RequestStatusApproved {
		s.metrics.RecordCommit(outcomeReplay)
		s.closeAssignment(ctx, doc.ID)
		return s.commitResult(ctx, doc)
	}

	now := s.now()
	if err := s.rejectIfExpired(ctx, doc, now); err != nil {
		return nil, err
	}
	if !models.CanTransition(doc.Status, models.RequestStatusApproved) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("request in status %s cannot be committed", doc.Status))
	}

	files, err := s.artifacts.ListByRequest(ctx, doc.ID)
	if err != nil {
		return nil, storeFailure(err, "failed to load request files")
	}
	approved := 0
	for _, file := range files {
		if file.ReviewStatus == models.ReviewStatusApproved {
			approved++
		}
	}
	if approved == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "at least one approved file is required to commit")
	}

	if _, err := s.records.Fetch(ctx, doc.OriginatingType, doc.OriginatingID, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "originating record no longer exists")
		}
		return nil, storeFailure(err, "failed to load originating record")
	}

	linked, err := s.requests.Commit(ctx, repository.CommitParams{
		RequestID:  doc.ID,
		EntityType: doc.OriginatingType,
		EntityID:   doc.OriginatingID,
		At:         now,
	})
	if err != nil {
		if !errors.Is(err, repository.ErrTransitionLost) {
			s.metrics.RecordCommit(outcomeFailed)
			return nil, storeFailure(err, "failed to commit approved files")
		}
		current, loadErr := s.load(ctx, doc.ID)
		if loadErr != nil {
			return nil, loadErr
		}
		if current.Status == models.RequestStatusApproved {
			s.metrics.RecordCommit(outcomeReplay)
			return s.commitResult(ctx, current)
		}
		s.metrics.RecordCommit(outcomeConflict)
		return nil, appErrors.Clone(appErrors.ErrCommitConflict, fmt.Sprintf("request moved to %s before it could be committed", current.Status))
	}

	s.closeAssignment(ctx, doc.ID)
	s.metrics.RecordCommit(outcomeOK)
	s.metrics.RecordTransition(models.RequestStatusApproved)
	s.audit.emit(ctx, actorID, models.AuditActionRequestCommit, requestResource, doc.ID, map[string]interface{}{
		"linked":          linked,
		"originatingType": doc.OriginatingType,
		"originatingId":   doc.OriginatingID,
	})

	doc.Status = models.RequestStatusApproved
	doc.ReviewCompletedAt = &now
	return s.commitResult(ctx, doc)
}

// RejectRequest closes the request as Rejected with reviewer notes.
func (s *RequestService) RejectRequest(ctx context.Context, requestID string, req dto.RejectDocumentRequest, actorID string) (*models.DocumentRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection notes are required")
	}
	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection notes are required")
	}

	doc, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.rejectIfExpired(ctx, doc, now); err != nil {
		return nil, err
	}
	if doc.Status == models.RequestStatusFilesReceived {
		if err := s.startReview(ctx, doc.ID, now); err != nil {
			return nil, err
		}
		doc.Status = models.RequestStatusUnderReview
	}
	if !models.CanTransition(doc.Status, models.RequestStatusRejected) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("request in status %s cannot be rejected", doc.Status))
	}

	err = s.requests.Transition(ctx, repository.TransitionParams{
		ID:                doc.ID,
		From:              models.TransitionSources(models.RequestStatusRejected),
		To:                models.RequestStatusRejected,
		At:                now,
		ReviewNotes:       &notes,
		RequireOpenWindow: true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrTransitionLost) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently")
		}
		return nil, storeFailure(err, "failed to reject document request")
	}

	s.closeAssignment(ctx, doc.ID)
	s.metrics.RecordTransition(models.RequestStatusRejected)
	s.audit.emit(ctx, actorID, models.AuditActionRequestReject, requestResource, doc.ID, map[string]string{"notes": notes})

	doc.Status = models.RequestStatusRejected
	doc.ReviewNotes = &notes
	doc.ReviewCompletedAt = &now
	doc.UpdatedAt = now
	return doc, nil
}

func (s *RequestService) startReview(ctx context.Context, requestID string, now time.Time) error {
	err := s.requests.Transition(ctx, repository.TransitionParams{
		ID:                requestID,
		From:              models.TransitionSources(models.RequestStatusUnderReview),
		To:                models.RequestStatusUnderReview,
		At:                now,
		RequireOpenWindow: true,
	})
	switch {
	case err == nil:
		s.metrics.RecordTransition(models.RequestStatusUnderReview)
		return nil
	case errors.Is(err, repository.ErrTransitionLost):
		// Another reviewer got there first; the next guarded write decides.
		return nil
	default:
		return storeFailure(err, "failed to start review")
	}
}

func (s *RequestService) commitResult(ctx context.Context, doc *models.DocumentRequest) (*models.CommitResult, error) {
	ids, err := s.artifacts.ListLinkedIDs(ctx, doc.ID, doc.OriginatingType, doc.OriginatingID)
	if err != nil {
		return nil, storeFailure(err, "failed to load committed files")
	}
	if ids == nil {
		ids = []string{}
	}
	completedAt := doc.UpdatedAt
	if doc.ReviewCompletedAt != nil {
		completedAt = *doc.ReviewCompletedAt
	}
	return &models.CommitResult{
		RequestID:         doc.ID,
		DisplayNumber:     doc.DisplayNumber,
		Status:            models.RequestStatusApproved,
		LinkedArtifactIDs: ids,
		ReviewCompletedAt: completedAt.UTC(),
	}, nil
}

func (s *RequestService) load(ctx context.Context, requestID string) (*models.DocumentRequest, error) {
	doc, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document request not found")
		}
		return nil, storeFailure(err, "failed to load document request")
	}
	return doc, nil
}

// rejectIfExpired expires a non-terminal request whose window has closed and reports it.
func (s *RequestService) rejectIfExpired(ctx context.Context, doc *models.DocumentRequest, now time.Time) error {
	if doc.Status.IsTerminal() || !doc.ExpiredAt(now) {
		return nil
	}
	s.expire(ctx, doc, now)
	return appErrors.Clone(appErrors.ErrPreconditionFailed, "request has expired")
}

func (s *RequestService) expire(ctx context.Context, doc *models.DocumentRequest, now time.Time) {
	changed, err := s.requests.ExpireIfPast(ctx, doc.ID, now)
	if err != nil {
		s.logger.Warn("lazy expiration failed", zap.String("request_id", doc.ID), zap.Error(err))
		return
	}
	if !changed {
		if current, err := s.requests.GetByID(ctx, doc.ID); err == nil {
			doc.Status = current.Status
		}
		return
	}
	doc.Status = models.RequestStatusExpired
	s.metrics.RecordExpirations(expirySourceLazy, 1)
	s.closeAssignment(ctx, doc.ID)
	s.audit.emit(ctx, "", models.AuditActionRequestExpire, requestResource, doc.ID, map[string]string{"source": expirySourceLazy})
}

func (s *RequestService) closeAssignment(ctx context.Context, requestID string) {
	if s.assignments == nil {
		return
	}
	if err := s.assignments.CompleteAssignment(ctx, requestID); err != nil {
		s.logger.Warn("failed to complete review assignment", zap.String("request_id", requestID), zap.Error(err))
	}
}

func (s *RequestService) notify(ctx context.Context, doc *models.DocumentRequest, cfg *models.EntityTypeConfig) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyRecipient(ctx, models.RecipientNotification{
		TemplateID:     cfg.NotificationTemplateID,
		RecipientEmail: doc.RecipientEmail,
		RecipientName:  doc.RecipientName,
		RequestNumber:  doc.DisplayNumber,
		RequestDate:    doc.RequestedAt,
		Instructions:   doc.Instructions,
		ExpirationDate: doc.TokenExpiresAt,
		UploadURL:      s.cfg.PortalBaseURL + "/" + doc.Token,
	})
}
