package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/docrequest-portal/internal/dto"
	"github.com/noah-isme/docrequest-portal/internal/models"
	"github.com/noah-isme/docrequest-portal/internal/repository"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
	"github.com/noah-isme/docrequest-portal/pkg/export"
)

// Manifest formats.
const (
	ManifestFormatCSV = "csv"
	ManifestFormatPDF = "pdf"
)

type reviewRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.DocumentRequest, error)
	ExpireIfPast(ctx context.Context, id string, now time.Time) (bool, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
}

type reviewArtifactStore interface {
	ListByRequest(ctx context.Context, requestID string) ([]models.FileArtifact, error)
	Get(ctx context.Context, requestID, artifactID string) (*models.FileArtifact, error)
	UpdateReview(ctx context.Context, params repository.ReviewParams) error
}

type downloadSigner interface {
	Generate(subjectID, scope string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (subjectID, scope string, expiresAt time.Time, err error)
}

type blobReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ManifestFile is a rendered review manifest.
type ManifestFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ArtifactContent is an open artifact stream; callers must close Body.
type ArtifactContent struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Body        io.ReadCloser
}

// ReviewServiceDeps groups the collaborators of ReviewService.
type ReviewServiceDeps struct {
	Requests  reviewRequestStore
	Artifacts reviewArtifactStore
	Blobs     blobReader
	Signer    downloadSigner
	CSV       csvRenderer
	PDF       pdfRenderer
	Audit     auditLogger
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// ReviewService records per-file decisions and gives operators access to staged files.
type ReviewService struct {
	requests     reviewRequestStore
	artifacts    reviewArtifactStore
	blobs        blobReader
	signer       downloadSigner
	csv          csvRenderer
	pdf          pdfRenderer
	audit        auditTrail
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	downloadBase string
	now          func() time.Time
}

// NewReviewService constructs the service. downloadBase is the public path that
// serves signed artifact downloads.
func NewReviewService(deps ReviewServiceDeps, downloadBase string) *ReviewService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &ReviewService{
		requests:     deps.Requests,
		artifacts:    deps.Artifacts,
		blobs:        deps.Blobs,
		signer:       deps.Signer,
		csv:          deps.CSV,
		pdf:          deps.PDF,
		audit:        auditTrail{store: deps.Audit, logger: logger, source: "review-service"},
		metrics:      deps.Metrics,
		validator:    validate,
		logger:       logger,
		downloadBase: strings.TrimRight(downloadBase, "/"),
		now:          defaultClock,
	}
}

// ReviewFile approves or rejects one artifact. The first decision on a request in
// FilesReceived moves it to UnderReview.
func (s *ReviewService) ReviewFile(ctx context.Context, requestID, artifactID string, req dto.ReviewFileRequest, reviewerID string) (*models.FileArtifact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	decision := models.ReviewStatus(req.Decision)
	reason := strings.TrimSpace(req.Reason)
	if decision == models.ReviewStatusRejected && reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required")
	}

	doc, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !doc.Status.IsTerminal() && doc.ExpiredAt(now) {
		if changed, expErr := s.requests.ExpireIfPast(ctx, doc.ID, now); expErr == nil && changed {
			s.metrics.RecordExpirations(expirySourceLazy, 1)
		}
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "request has expired")
	}
	if doc.Status != models.RequestStatusFilesReceived && doc.Status != models.RequestStatusUnderReview {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("files cannot be reviewed while the request is %s", doc.Status))
	}

	artifact, err := s.artifacts.Get(ctx, doc.ID, artifactID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, storeFailure(err, "failed to load file")
	}

	if doc.Status == models.RequestStatusFilesReceived {
		err := s.requests.Transition(ctx, repository.TransitionParams{
			ID:                doc.ID,
			From:              models.TransitionSources(models.RequestStatusUnderReview),
			To:                models.RequestStatusUnderReview,
			At:                now,
			RequireOpenWindow: true,
		})
		switch {
		case err == nil:
			s.metrics.RecordTransition(models.RequestStatusUnderReview)
		case errors.Is(err, repository.ErrTransitionLost):
			// moved by a concurrent reviewer; UpdateReview re-checks the status
		default:
			return nil, storeFailure(err, "failed to start review")
		}
	}

	params := repository.ReviewParams{
		RequestID:  doc.ID,
		ArtifactID: artifact.ID,
		Status:     decision,
		ReviewedBy: reviewerID,
		ReviewedAt: now,
	}
	if decision == models.ReviewStatusRejected {
		params.RejectionReason = &reason
	}
	if err := s.artifacts.UpdateReview(ctx, params); err != nil {
		if errors.Is(err, repository.ErrRequestClosed) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request is no longer under review")
		}
		return nil, storeFailure(err, "failed to record review decision")
	}

	artifact.ReviewStatus = decision
	artifact.ReviewedBy = &reviewerID
	artifact.ReviewedAt = &now
	artifact.RejectionReason = params.RejectionReason
	s.audit.emit(ctx, reviewerID, models.AuditActionFileReview, "file_artifact", artifact.ID, map[string]interface{}{
		"requestId": doc.ID,
		"decision":  decision,
		"reason":    reason,
	})
	return artifact, nil
}

// DownloadLink issues a signed, time-limited link for one artifact.
func (s *ReviewService) DownloadLink(ctx context.Context, requestID, artifactID string) (*dto.ArtifactDownload, error) {
	artifact, err := s.artifacts.Get(ctx, requestID, artifactID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, storeFailure(err, "failed to load file")
	}
	token, expiresAt, err := s.signer.Generate(artifact.ID, artifact.RequestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &dto.ArtifactDownload{
		ArtifactID: artifact.ID,
		FileName:   artifact.FileName,
		URL:        s.downloadBase + "/" + url.PathEscape(token),
		ExpiresAt:  expiresAt,
	}, nil
}

// OpenDownload verifies a signed link and opens the artifact.
func (s *ReviewService) OpenDownload(ctx context.Context, token string) (*ArtifactContent, error) {
	artifactID, requestID, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "download link is invalid or has expired")
	}
	artifact, err := s.artifacts.Get(ctx, requestID, artifactID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, storeFailure(err, "failed to load file")
	}
	body, err := s.blobs.Get(ctx, artifact.StorageKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, appErrors.ErrTransientStore.Message)
	}
	return &ArtifactContent{
		FileName:    artifact.FileName,
		ContentType: artifact.ContentType,
		SizeBytes:   artifact.SizeBytes,
		Body:        body,
	}, nil
}

// ExportManifest renders the request's files and review decisions as CSV or PDF.
func (s *ReviewService) ExportManifest(ctx context.Context, requestID, format, actorID string) (*ManifestFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ManifestFormatCSV
	}
	if format != ManifestFormatCSV && format != ManifestFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	doc, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	files, err := s.artifacts.ListByRequest(ctx, doc.ID)
	if err != nil {
		return nil, storeFailure(err, "failed to load request files")
	}

	dataset := manifestDataset(doc, files)
	var (
		content     []byte
		contentType string
	)
	switch format {
	case ManifestFormatPDF:
		content, err = s.pdf.Render(dataset, "Review manifest "+doc.DisplayNumber)
		contentType = "application/pdf"
	default:
		content, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render manifest")
	}

	s.audit.emit(ctx, actorID, models.AuditActionManifestExport, requestResource, doc.ID, map[string]string{"format": format})
	return &ManifestFile{
		FileName:    fmt.Sprintf("%s-manifest.%s", doc.DisplayNumber, format),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func manifestDataset(doc *models.DocumentRequest, files []models.FileArtifact) export.Dataset {
	headers := []string{"File", "Size (bytes)", "Type", "Uploaded", "Decision", "Reviewed By", "Reason"}
	rows := make([]map[string]string, 0, len(files))
	for _, file := range files {
		row := map[string]string{
			"File":         file.FileName,
			"Size (bytes)": strconv.FormatInt(file.SizeBytes, 10),
			"Type":         file.ContentType,
			"Uploaded":     file.CreatedAt.UTC().Format(time.RFC3339),
			"Decision":     string(file.ReviewStatus),
		}
		if file.ReviewedBy != nil {
			row["Reviewed By"] = *file.ReviewedBy
		}
		if file.RejectionReason != nil {
			row["Reason"] = *file.RejectionReason
		}
		rows = append(rows, row)
	}
	return export.Dataset{
		Headers: headers,
		Rows:    rows,
		Summary: []export.SummaryLine{
			{Label: "Request", Value: doc.DisplayNumber},
			{Label: "Status", Value: string(doc.Status)},
			{Label: "Recipient", Value: doc.RecipientName},
			{Label: "Requested", Value: doc.RequestedAt.UTC().Format("2006-01-02")},
			{Label: "Files", Value: strconv.Itoa(len(files))},
		},
	}
}

func (s *ReviewService) loadRequest(ctx context.Context, requestID string) (*models.DocumentRequest, error) {
	doc, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document request not found")
		}
		return nil, storeFailure(err, "failed to load document request")
	}
	return doc, nil
}
