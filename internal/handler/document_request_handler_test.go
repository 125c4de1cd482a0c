package handler

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/docrequest-portal/internal/dto"
	"github.com/noah-isme/docrequest-portal/internal/models"
	"github.com/noah-isme/docrequest-portal/internal/service"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
)

type requestLifecycleMock struct {
	created    *dto.CreateDocumentRequest
	query      dto.DocumentRequestQuery
	commitErr  error
	commitCall int
	actor      string
}

func (m *requestLifecycleMock) CreateRequest(ctx context.Context, req dto.CreateDocumentRequest, actorID string) (*dto.CreateDocumentRequestResult, error) {
	m.created = &req
	m.actor = actorID
	return &dto.CreateDocumentRequestResult{RequestID: "req-1", DisplayNumber: "DR-000001", Status: models.RequestStatusSent}, nil
}

func (m *requestLifecycleMock) SendRequest(ctx context.Context, requestID, actorID string) (*models.DocumentRequest, error) {
	return &models.DocumentRequest{ID: requestID, Status: models.RequestStatusSent}, nil
}

func (m *requestLifecycleMock) GetRequest(ctx context.Context, requestID string) (*dto.DocumentRequestDetail, error) {
	if requestID != "req-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document request not found")
	}
	return &dto.DocumentRequestDetail{DocumentRequest: models.DocumentRequest{ID: requestID, Token: "secret-token"}}, nil
}

func (m *requestLifecycleMock) ListRequests(ctx context.Context, query dto.DocumentRequestQuery) ([]models.DocumentRequest, *models.Pagination, error) {
	m.query = query
	return []models.DocumentRequest{{ID: "req-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *requestLifecycleMock) CommitApprovedFiles(ctx context.Context, requestID, actorID string) (*models.CommitResult, error) {
	m.commitCall++
	if m.commitErr != nil {
		return nil, m.commitErr
	}
	return &models.CommitResult{RequestID: requestID, Status: models.RequestStatusApproved, LinkedArtifactIDs: []string{"a1"}}, nil
}

func (m *requestLifecycleMock) RejectRequest(ctx context.Context, requestID string, req dto.RejectDocumentRequest, actorID string) (*models.DocumentRequest, error) {
	notes := req.Notes
	return &models.DocumentRequest{ID: requestID, Status: models.RequestStatusRejected, ReviewNotes: &notes}, nil
}

type reviewOperationsMock struct {
	review   *dto.ReviewFileRequest
	manifest *service.ManifestFile
}

func (m *reviewOperationsMock) ReviewFile(ctx context.Context, requestID, artifactID string, req dto.ReviewFileRequest, reviewerID string) (*models.FileArtifact, error) {
	m.review = &req
	return &models.FileArtifact{ID: artifactID, RequestID: requestID}, nil
}

func (m *reviewOperationsMock) DownloadLink(ctx context.Context, requestID, artifactID string) (*dto.ArtifactDownload, error) {
	return &dto.ArtifactDownload{ArtifactID: artifactID, URL: "https://api.test/downloads/signed", ExpiresAt: time.Now().Add(time.Minute)}, nil
}

func (m *reviewOperationsMock) ExportManifest(ctx context.Context, requestID, format, actorID string) (*service.ManifestFile, error) {
	if format == "xml" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported manifest format")
	}
	return m.manifest, nil
}

func newDocumentRequestHandler() (*DocumentRequestHandler, *requestLifecycleMock, *reviewOperationsMock) {
	requests := &requestLifecycleMock{}
	review := &reviewOperationsMock{manifest: &service.ManifestFile{FileName: "DR-000001-manifest.csv", ContentType: "text/csv", Content: []byte("file,status\n")}}
	return NewDocumentRequestHandler(requests, review), requests, review
}

func TestDocumentRequestHandlerCreate(t *testing.T) {
	h, requests, _ := newDocumentRequestHandler()
	c, w := newTestContext(http.MethodPost, "/document-requests", jsonBody(t, dto.CreateDocumentRequest{
		OriginatingType: "Vendor",
		OriginatingID:   "v-1",
		Instructions:    "W-9 please",
	}), nil)

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, requests.created)
	assert.Equal(t, "Vendor", requests.created.OriginatingType)
	assert.Equal(t, "operator-1", requests.actor)
}

func TestDocumentRequestHandlerCreateInvalidJSON(t *testing.T) {
	h, requests, _ := newDocumentRequestHandler()
	c, w := newTestContext(http.MethodPost, "/document-requests", bytes.NewReader([]byte(`{`)), nil)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, requests.created)
}

func TestDocumentRequestHandlerListBindsQuery(t *testing.T) {
	h, requests, _ := newDocumentRequestHandler()
	c, w := newTestContext(http.MethodGet, "/document-requests?status=SENT&status=EXPIRED&originatingType=Vendor&page=2", nil, nil)

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"SENT", "EXPIRED"}, requests.query.Status)
	assert.Equal(t, "Vendor", requests.query.OriginatingType)
	assert.Equal(t, 2, requests.query.Page)
	assert.Contains(t, decodeEnvelope(t, w), "pagination")
}

func TestDocumentRequestHandlerGetHidesToken(t *testing.T) {
	h, _, _ := newDocumentRequestHandler()
	c, w := newTestContext(http.MethodGet, "/document-requests/req-1", nil, gin.Params{{Key: "id", Value: "req-1"}})

	h.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-token")

	c, w = newTestContext(http.MethodGet, "/document-requests/other", nil, gin.Params{{Key: "id", Value: "other"}})
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentRequestHandlerCommitConflict(t *testing.T) {
	h, requests, _ := newDocumentRequestHandler()
	requests.commitErr = appErrors.ErrCommitConflict
	c, w := newTestContext(http.MethodPost, "/document-requests/req-1/commit", nil, gin.Params{{Key: "id", Value: "req-1"}})

	h.Commit(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrCommitConflict.Code, errorCode(t, w))
	assert.Equal(t, 1, requests.commitCall)
}

func TestDocumentRequestHandlerCommit(t *testing.T) {
	h, _, _ := newDocumentRequestHandler()
	c, w := newTestContext(http.MethodPost, "/document-requests/req-1/commit", nil, gin.Params{{Key: "id", Value: "req-1"}})

	h.Commit(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"linkedArtifactIds":["a1"]`)
}

func TestDocumentRequestHandlerRejectRequiresBody(t *testing.T) {
	h, _, _ := newDocumentRequestHandler()
	c, w := newTestContext(http.MethodPost, "/document-requests/req-1/reject", bytes.NewReader([]byte(`nope`)), gin.Params{{Key: "id", Value: "req-1"}})

	h.Reject(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodPost, "/document-requests/req-1/reject", jsonBody(t, dto.RejectDocumentRequest{Notes: "unreadable scan"}), gin.Params{{Key: "id", Value: "req-1"}})
	h.Reject(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "unreadable scan")
}

func TestDocumentRequestHandlerReviewFile(t *testing.T) {
	h, _, review := newDocumentRequestHandler()
	c, w := newTestContext(http.MethodPatch, "/document-requests/req-1/files/a1/review",
		jsonBody(t, dto.ReviewFileRequest{Decision: "APPROVED"}),
		gin.Params{{Key: "id", Value: "req-1"}, {Key: "fileId", Value: "a1"}})

	h.ReviewFile(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, review.review)
	assert.Equal(t, "APPROVED", review.review.Decision)
}

func TestDocumentRequestHandlerDownloadURL(t *testing.T) {
	h, _, _ := newDocumentRequestHandler()
	c, w := newTestContext(http.MethodGet, "/document-requests/req-1/files/a1/download-url", nil,
		gin.Params{{Key: "id", Value: "req-1"}, {Key: "fileId", Value: "a1"}})

	h.DownloadURL(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://api.test/downloads/signed")
}

func TestDocumentRequestHandlerManifest(t *testing.T) {
	h, _, _ := newDocumentRequestHandler()
	c, w := newTestContext(http.MethodGet, "/document-requests/req-1/manifest?format=csv", nil, gin.Params{{Key: "id", Value: "req-1"}})

	h.Manifest(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "DR-000001-manifest.csv")
	assert.Equal(t, "file,status\n", w.Body.String())

	c, w = newTestContext(http.MethodGet, "/document-requests/req-1/manifest?format=xml", nil, gin.Params{{Key: "id", Value: "req-1"}})
	h.Manifest(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
