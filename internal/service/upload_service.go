package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/docrequest-portal/internal/dto"
	"github.com/noah-isme/docrequest-portal/internal/models"
	"github.com/noah-isme/docrequest-portal/internal/repository"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
)

type portalAuthorizer interface {
	Authorize(ctx context.Context, rawToken string) (*PortalSession, error)
}

type artifactStager interface {
	StageArtifacts(ctx context.Context, params repository.StageParams) (repository.StageResult, error)
}

type blobWriter interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

type assignmentCreator interface {
	CreateReviewAssignment(ctx context.Context, requestID, ownerID string) error
}

// UploadFile is one part of a multipart upload. Open is called at most once.
type UploadFile struct {
	FileName     string
	DeclaredSize int64
	Open         func() (io.ReadCloser, error)
}

type decodedFile struct {
	id          string
	name        string
	ext         string
	contentType string
	content     []byte
	key         string
}

// UploadServiceConfig carries deployment settings for uploads.
type UploadServiceConfig struct {
	DefaultOwnerID string
}

// UploadService accepts anonymous uploads. A batch is validated in full before
// anything is stored, and nothing is kept if any step fails.
type UploadService struct {
	sessions    portalAuthorizer
	stager      artifactStager
	blobs       blobWriter
	assignments assignmentCreator
	audit       auditTrail
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         UploadServiceConfig
	now         func() time.Time
}

// NewUploadService constructs the upload handler service.
func NewUploadService(sessions portalAuthorizer, stager artifactStager, blobs blobWriter, assignments assignmentCreator, audit auditLogger, metrics *MetricsService, logger *zap.Logger, cfg UploadServiceConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{
		sessions:    sessions,
		stager:      stager,
		blobs:       blobs,
		assignments: assignments,
		audit:       auditTrail{store: audit, logger: logger, source: "portal"},
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         defaultClock,
	}
}

// Upload validates the token again, checks every file against the configured
// limits, stores the blobs and stages the artifacts atomically.
func (s *UploadService) Upload(ctx context.Context, rawToken string, files []UploadFile) (*dto.UploadResult, error) {
	session, err := s.sessions.Authorize(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	cfg := session.Config
	req := session.Request

	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one file is required")
	}
	if len(files) > cfg.MaxFilesPerUpload {
		return nil, s.limitExceeded(fmt.Sprintf("too many files: %d (maximum %d per upload)", len(files), cfg.MaxFilesPerUpload))
	}

	for _, file := range files {
		name := cleanFileName(file.FileName)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "every file needs a name")
		}
		ext := models.FileExtension(name)
		if !cfg.AllowsExtension(ext) {
			return nil, s.limitExceeded(fmt.Sprintf("file type of %q is not allowed", name))
		}
		if file.DeclaredSize > cfg.MaxFileSizeBytes {
			return nil, s.limitExceeded(fmt.Sprintf("%q exceeds the maximum size of %d bytes", name, cfg.MaxFileSizeBytes))
		}
	}

	decoded := make([]decodedFile, 0, len(files))
	for _, file := range files {
		item, err := s.decode(file, cfg.MaxFileSizeBytes)
		if err != nil {
			return nil, err
		}
		item.key = path.Join("requests", req.ID, item.id+"."+item.ext)
		decoded = append(decoded, item)
	}

	stored := make([]string, 0, len(decoded))
	for _, item := range decoded {
		if err := s.blobs.Put(ctx, item.key, bytes.NewReader(item.content), int64(len(item.content)), item.contentType); err != nil {
			s.discard(ctx, stored)
			s.metrics.RecordUpload(outcomeFailed)
			return nil, appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, appErrors.ErrTransientStore.Message)
		}
		stored = append(stored, item.key)
	}

	now := s.now()
	artifacts := make([]models.FileArtifact, len(decoded))
	sizes := make([]int64, len(decoded))
	for i, item := range decoded {
		artifacts[i] = models.FileArtifact{
			ID:           item.id,
			RequestID:    req.ID,
			FileName:     item.name,
			SizeBytes:    int64(len(item.content)),
			ContentType:  item.contentType,
			StorageKey:   item.key,
			UploadSource: models.UploadSourcePortal,
			ReviewStatus: models.ReviewStatusPending,
			CreatedAt:    now,
		}
		sizes[i] = int64(len(item.content))
	}

	result, err := s.stager.StageArtifacts(ctx, repository.StageParams{RequestID: req.ID, Artifacts: artifacts, At: now})
	if err != nil {
		s.discard(ctx, stored)
		if errors.Is(err, repository.ErrRequestClosed) {
			s.metrics.RecordUpload(outcomeRejected)
			return nil, appErrors.Clone(appErrors.ErrInvalidOrExpiredToken, "")
		}
		s.metrics.RecordUpload(outcomeFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, appErrors.ErrTransientStore.Message)
	}

	if result.FirstUpload {
		s.metrics.RecordTransition(models.RequestStatusFilesReceived)
		owner := req.RequestedBy
		if owner == "" {
			owner = s.cfg.DefaultOwnerID
		}
		if s.assignments != nil && owner != "" {
			if err := s.assignments.CreateReviewAssignment(ctx, req.ID, owner); err != nil {
				s.logger.Warn("failed to create review assignment", zap.String("request_id", req.ID), zap.Error(err))
			}
		}
	}

	s.metrics.RecordUpload(outcomeOK, sizes...)
	s.audit.emit(ctx, "", models.AuditActionRequestUpload, requestResource, req.ID, map[string]interface{}{
		"files":       len(artifacts),
		"firstUpload": result.FirstUpload,
	})
	return &dto.UploadResult{Accepted: len(artifacts), ReceivedFileCount: result.FileCount}, nil
}

func (s *UploadService) decode(file UploadFile, maxBytes int64) (decodedFile, error) {
	name := cleanFileName(file.FileName)
	src, err := file.Open()
	if err != nil {
		return decodedFile{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("could not read %q", name))
	}
	defer src.Close() //nolint:errcheck

	content, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return decodedFile{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("could not read %q", name))
	}
	if int64(len(content)) > maxBytes {
		return decodedFile{}, s.limitExceeded(fmt.Sprintf("%q exceeds the maximum size of %d bytes", name, maxBytes))
	}
	if len(content) == 0 {
		return decodedFile{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%q is empty", name))
	}
	return decodedFile{
		id:          uuid.NewString(),
		name:        name,
		ext:         models.FileExtension(name),
		contentType: mimetype.Detect(content).String(),
		content:     content,
	}, nil
}

func (s *UploadService) discard(ctx context.Context, keys []string) {
	cleanupCtx := context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.blobs.Delete(cleanupCtx, key); err != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *UploadService) limitExceeded(message string) *appErrors.Error {
	s.metrics.RecordUpload(outcomeRejected)
	return appErrors.Clone(appErrors.ErrUploadLimitExceeded, message)
}

// cleanFileName strips any client supplied directory components.
func cleanFileName(raw string) string {
	name := strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "." || name == ".." {
		return ""
	}
	return name
}
