package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/docrequest-portal/internal/models"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
)

type assignmentLister interface {
	ListOpenByOwner(ctx context.Context, ownerID string) ([]models.ReviewAssignment, error)
}

type auditReader interface {
	ListByResource(ctx context.Context, resource, resourceID string) ([]models.AuditLog, error)
}

type requestLookup interface {
	GetByID(ctx context.Context, id string) (*models.DocumentRequest, error)
}

// ActivityService answers operator work queue and history queries.
type ActivityService struct {
	requests    requestLookup
	assignments assignmentLister
	audit       auditReader
	logger      *zap.Logger
}

// NewActivityService constructs the service.
func NewActivityService(requests requestLookup, assignments assignmentLister, audit auditReader, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{requests: requests, assignments: assignments, audit: audit, logger: logger}
}

// OpenAssignments lists the review work waiting on an operator.
func (s *ActivityService) OpenAssignments(ctx context.Context, ownerID string) ([]models.ReviewAssignment, error) {
	if ownerID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	items, err := s.assignments.ListOpenByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeFailure(err, "failed to list review assignments")
	}
	if items == nil {
		items = []models.ReviewAssignment{}
	}
	return items, nil
}

// RequestHistory returns the audit trail of one request, oldest first.
func (s *ActivityService) RequestHistory(ctx context.Context, requestID string) ([]models.AuditLog, error) {
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document request not found")
		}
		return nil, storeFailure(err, "failed to load document request")
	}
	logs, err := s.audit.ListByResource(ctx, requestResource, requestID)
	if err != nil {
		return nil, storeFailure(err, "failed to load request history")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return logs, nil
}
