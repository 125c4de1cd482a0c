package service

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/docrequest-portal/internal/dto"
	"github.com/noah-isme/docrequest-portal/internal/models"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
	"github.com/noah-isme/docrequest-portal/pkg/export"
	"github.com/noah-isme/docrequest-portal/pkg/storage"
)

type reviewHarness struct {
	svc   *ReviewService
	store *memoryPortalStore
	blobs *blobStoreStub
	audit *auditRecorder
}

func newReviewHarness(t *testing.T) *reviewHarness {
	t.Helper()
	h := &reviewHarness{store: newMemoryPortalStore(), blobs: newBlobStoreStub(), audit: &auditRecorder{}}
	h.svc = NewReviewService(ReviewServiceDeps{
		Requests:  h.store,
		Artifacts: h.store,
		Blobs:     h.blobs,
		Signer:    storage.NewSignedURLSigner("test-secret", time.Minute),
		CSV:       export.NewCSVExporter(),
		PDF:       export.NewPDFExporter(),
		Audit:     h.audit,
	}, "https://api.test/api/v1/downloads/")
	h.svc.now = func() time.Time { return testNow }
	return h
}

func TestReviewFileStartsReview(t *testing.T) {
	h := newReviewHarness(t)
	file := reviewedFile("a.pdf", models.ReviewStatusPending)
	file.ID = "artifact-1"
	doc := h.store.seed(openRequest(models.RequestStatusFilesReceived), file)

	reviewed, err := h.svc.ReviewFile(context.Background(), doc.ID, "artifact-1", dto.ReviewFileRequest{Decision: "APPROVED"}, "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusApproved, reviewed.ReviewStatus)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, "reviewer-1", *reviewed.ReviewedBy)
	assert.Equal(t, models.RequestStatusUnderReview, h.store.status(doc.ID))
	assert.Equal(t, []string{models.AuditActionFileReview}, h.audit.actions())

	reviewed, err = h.svc.ReviewFile(context.Background(), doc.ID, "artifact-1", dto.ReviewFileRequest{Decision: "REJECTED", Reason: "blurry"}, "reviewer-2")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusRejected, reviewed.ReviewStatus)
	require.NotNil(t, reviewed.RejectionReason)
	assert.Equal(t, "blurry", *reviewed.RejectionReason)
}

func TestReviewFileValidation(t *testing.T) {
	h := newReviewHarness(t)
	file := reviewedFile("a.pdf", models.ReviewStatusPending)
	file.ID = "artifact-1"
	doc := h.store.seed(openRequest(models.RequestStatusUnderReview), file)

	_, err := h.svc.ReviewFile(context.Background(), doc.ID, "artifact-1", dto.ReviewFileRequest{Decision: "REJECTED", Reason: " "}, "reviewer-1")
	assertErrorCode(t, err, appErrors.ErrValidation)

	_, err = h.svc.ReviewFile(context.Background(), doc.ID, "artifact-1", dto.ReviewFileRequest{Decision: "MAYBE"}, "reviewer-1")
	assertErrorCode(t, err, appErrors.ErrValidation)

	_, err = h.svc.ReviewFile(context.Background(), doc.ID, "missing", dto.ReviewFileRequest{Decision: "APPROVED"}, "reviewer-1")
	assertErrorCode(t, err, appErrors.ErrNotFound)
}

func TestReviewFileRequiresReviewableRequest(t *testing.T) {
	h := newReviewHarness(t)
	file := reviewedFile("a.pdf", models.ReviewStatusApproved)
	file.ID = "artifact-1"
	doc := h.store.seed(openRequest(models.RequestStatusApproved), file)

	_, err := h.svc.ReviewFile(context.Background(), doc.ID, "artifact-1", dto.ReviewFileRequest{Decision: "REJECTED", Reason: "late"}, "reviewer-1")
	assertErrorCode(t, err, appErrors.ErrPreconditionFailed)

	stale := openRequest(models.RequestStatusUnderReview)
	stale.Token = "cccccccc-0000-4000-8000-000000000001"
	stale.TokenExpiresAt = testNow.Add(-time.Second)
	staleFile := reviewedFile("b.pdf", models.ReviewStatusPending)
	staleFile.ID = "artifact-2"
	staleDoc := h.store.seed(stale, staleFile)

	_, err = h.svc.ReviewFile(context.Background(), staleDoc.ID, "artifact-2", dto.ReviewFileRequest{Decision: "APPROVED"}, "reviewer-1")
	assertErrorCode(t, err, appErrors.ErrPreconditionFailed)
	assert.Equal(t, models.RequestStatusExpired, h.store.status(staleDoc.ID))
}

func TestDownloadLinkRoundTrip(t *testing.T) {
	h := newReviewHarness(t)
	file := reviewedFile("a.pdf", models.ReviewStatusPending)
	file.ID = "artifact-1"
	doc := h.store.seed(openRequest(models.RequestStatusFilesReceived), file)
	h.blobs.objects[file.StorageKey] = []byte(pdfBody)

	link, err := h.svc.DownloadLink(context.Background(), doc.ID, "artifact-1")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", link.FileName)
	require.True(t, strings.HasPrefix(link.URL, "https://api.test/api/v1/downloads/"))

	escaped := strings.TrimPrefix(link.URL, "https://api.test/api/v1/downloads/")
	token, err := url.PathUnescape(escaped)
	require.NoError(t, err)

	content, err := h.svc.OpenDownload(context.Background(), token)
	require.NoError(t, err)
	defer content.Body.Close() //nolint:errcheck
	data, err := io.ReadAll(content.Body)
	require.NoError(t, err)
	assert.Equal(t, pdfBody, string(data))
	assert.Equal(t, "application/pdf", content.ContentType)

	_, err = h.svc.OpenDownload(context.Background(), token+"x")
	assertErrorCode(t, err, appErrors.ErrNotFound)

	_, err = h.svc.DownloadLink(context.Background(), "other-request", "artifact-1")
	assertErrorCode(t, err, appErrors.ErrNotFound)
}

func TestExportManifest(t *testing.T) {
	h := newReviewHarness(t)
	rejected := reviewedFile("b.pdf", models.ReviewStatusRejected)
	reason := "=cmd|' /C calc'!A0"
	rejected.RejectionReason = &reason
	doc := h.store.seed(openRequest(models.RequestStatusUnderReview), reviewedFile("a.pdf", models.ReviewStatusApproved), rejected)

	manifest, err := h.svc.ExportManifest(context.Background(), doc.ID, "", "operator-1")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", manifest.ContentType)
	assert.Equal(t, doc.DisplayNumber+"-manifest.csv", manifest.FileName)
	body := string(manifest.Content)
	assert.Contains(t, body, "a.pdf")
	assert.Contains(t, body, "b.pdf")
	assert.NotContains(t, body, "\n=cmd")
	assert.NotContains(t, body, ",=cmd")

	pdf, err := h.svc.ExportManifest(context.Background(), doc.ID, "PDF", "operator-1")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Content), "%PDF"))

	_, err = h.svc.ExportManifest(context.Background(), doc.ID, "xlsx", "operator-1")
	assertErrorCode(t, err, appErrors.ErrValidation)
	assert.Equal(t, []string{models.AuditActionManifestExport, models.AuditActionManifestExport}, h.audit.actions())
}
