package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/docrequest-portal/internal/dto"
	"github.com/noah-isme/docrequest-portal/internal/models"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
)

const portalTokenLength = 36

type sessionRequestStore interface {
	GetByToken(ctx context.Context, token string) (*models.DocumentRequest, error)
	ExpireIfPast(ctx context.Context, id string, now time.Time) (bool, error)
}

// PortalSession is an authorized anonymous session bound to one request.
type PortalSession struct {
	Request models.DocumentRequest
	Config  models.EntityTypeConfig
}

// TokenSessionService authorizes anonymous portal access. Every failure mode is
// reported with the same error so callers cannot tell why a token was refused.
type TokenSessionService struct {
	requests sessionRequestStore
	configs  configProvider
	audit    auditTrail
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// TokenSessionOption customises TokenSessionService behaviour.
type TokenSessionOption func(*TokenSessionService)

// WithSessionClock overrides the time source.
func WithSessionClock(now func() time.Time) TokenSessionOption {
	return func(s *TokenSessionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTokenSessionService constructs the validator.
func NewTokenSessionService(requests sessionRequestStore, configs configProvider, audit auditLogger, metrics *MetricsService, logger *zap.Logger, opts ...TokenSessionOption) *TokenSessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &TokenSessionService{
		requests: requests,
		configs:  configs,
		audit:    auditTrail{store: audit, logger: logger, source: "portal"},
		metrics:  metrics,
		logger:   logger,
		now:      defaultClock,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NormalizePortalToken lowercases a token and reports whether it is well formed.
func NormalizePortalToken(raw string) (string, bool) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if len(token) != portalTokenLength {
		return "", false
	}
	if _, err := uuid.Parse(token); err != nil {
		return "", false
	}
	return token, true
}

// ValidateToken returns the minimal view the anonymous party may see.
func (s *TokenSessionService) ValidateToken(ctx context.Context, rawToken string) (*dto.SessionView, error) {
	session, err := s.Authorize(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	return &dto.SessionView{
		DisplayNumber:     session.Request.DisplayNumber,
		RequestDate:       session.Request.RequestedAt,
		Instructions:      session.Request.Instructions,
		ReceivedFileCount: session.Request.FileCount,
		Limits:            session.Config.Limits(),
	}, nil
}

// Authorize runs the full token check: shape, lookup, expiry (expiring lazily),
// status, then configuration.
func (s *TokenSessionService) Authorize(ctx context.Context, rawToken string) (*PortalSession, error) {
	token, ok := NormalizePortalToken(rawToken)
	if !ok {
		return nil, s.deny("malformed", "")
	}

	req, err := s.requests.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.deny("unknown", "")
		}
		return nil, storeFailure(err, "failed to load document request")
	}

	now := s.now()
	if req.ExpiredAt(now) {
		if !req.Status.IsTerminal() {
			s.expire(ctx, req.ID, now)
		}
		return nil, s.deny("expired", req.ID)
	}
	if req.Status.IsTerminal() || req.Status == models.RequestStatusDraft {
		return nil, s.deny("status "+string(req.Status), req.ID)
	}

	cfg, err := s.configs.GetConfig(ctx, req.ConfigTypeID)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrNotConfigured.Code {
			return nil, s.deny("type not configured", req.ID)
		}
		return nil, err
	}

	s.metrics.RecordTokenValidation(true)
	return &PortalSession{Request: *req, Config: *cfg}, nil
}

func (s *TokenSessionService) expire(ctx context.Context, requestID string, now time.Time) {
	changed, err := s.requests.ExpireIfPast(ctx, requestID, now)
	if err != nil {
		s.logger.Warn("lazy expiration failed", zap.String("request_id", requestID), zap.Error(err))
		return
	}
	if changed {
		s.metrics.RecordExpirations(expirySourceLazy, 1)
		s.audit.emit(ctx, "", models.AuditActionRequestExpire, requestResource, requestID, map[string]string{"source": expirySourceLazy})
	}
}

func (s *TokenSessionService) deny(reason, requestID string) *appErrors.Error {
	s.metrics.RecordTokenValidation(false)
	s.logger.Debug("portal token refused", zap.String("reason", reason), zap.String("request_id", requestID))
	return appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
}
