package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/docrequest-portal/internal/models"
	"github.com/noah-isme/docrequest-portal/internal/repository"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditTrail writes best-effort audit entries; failures are logged, never returned.
type auditTrail struct {
	store  auditLogger
	logger *zap.Logger
	source string
}

func (a auditTrail) emit(ctx context.Context, actorID string, action, resource, resourceID string, values interface{}) {
	if a.store == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  a.source,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if values != nil {
		if payload, err := json.Marshal(values); err == nil {
			entry.NewValues = payload
		}
	}
	if err := a.store.CreateAuditLog(ctx, entry); err != nil && a.logger != nil {
		a.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

// storeFailure maps a persistence error to a retryable or internal error.
func storeFailure(err error, message string) *appErrors.Error {
	if repository.IsTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, appErrors.ErrTransientStore.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
