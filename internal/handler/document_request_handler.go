package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/docrequest-portal/internal/dto"
	"github.com/noah-isme/docrequest-portal/internal/models"
	"github.com/noah-isme/docrequest-portal/internal/service"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
	"github.com/noah-isme/docrequest-portal/pkg/response"
)

type requestLifecycle interface {
	CreateRequest(ctx context.Context, req dto.CreateDocumentRequest, actorID string) (*dto.CreateDocumentRequestResult, error)
	SendRequest(ctx context.Context, requestID, actorID string) (*models.DocumentRequest, error)
	GetRequest(ctx context.Context, requestID string) (*dto.DocumentRequestDetail, error)
	ListRequests(ctx context.Context, query dto.DocumentRequestQuery) ([]models.DocumentRequest, *models.Pagination, error)
	CommitApprovedFiles(ctx context.Context, requestID, actorID string) (*models.CommitResult, error)
	RejectRequest(ctx context.Context, requestID string, req dto.RejectDocumentRequest, actorID string) (*models.DocumentRequest, error)
}

type reviewOperations interface {
	ReviewFile(ctx context.Context, requestID, artifactID string, req dto.ReviewFileRequest, reviewerID string) (*models.FileArtifact, error)
	DownloadLink(ctx context.Context, requestID, artifactID string) (*dto.ArtifactDownload, error)
	ExportManifest(ctx context.Context, requestID, format, actorID string) (*service.ManifestFile, error)
}

// DocumentRequestHandler serves the operator surface for document requests.
type DocumentRequestHandler struct {
	requests requestLifecycle
	review   reviewOperations
}

// NewDocumentRequestHandler builds a new handler.
func NewDocumentRequestHandler(requests requestLifecycle, review reviewOperations) *DocumentRequestHandler {
	return &DocumentRequestHandler{requests: requests, review: review}
}

// Create godoc
// @Summary Request documents from the recipient of a record
// @Tags DocumentRequests
// @Accept json
// @Produce json
// @Param payload body dto.CreateDocumentRequest true "Request"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /document-requests [post]
func (h *DocumentRequestHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document request payload"))
		return
	}
	result, err := h.requests.CreateRequest(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List document requests
// @Tags DocumentRequests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param originatingType query string false "Originating entity type"
// @Param originatingId query string false "Originating entity id"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /document-requests [get]
func (h *DocumentRequestHandler) List(c *gin.Context) {
	var query dto.DocumentRequestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.requests.ListRequests(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a document request with its files
// @Tags DocumentRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /document-requests/{id} [get]
func (h *DocumentRequestHandler) Get(c *gin.Context) {
	detail, err := h.requests.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Send godoc
// @Summary Send a draft request to its recipient
// @Tags DocumentRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /document-requests/{id}/send [post]
func (h *DocumentRequestHandler) Send(c *gin.Context) {
	doc, err := h.requests.SendRequest(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Commit godoc
// @Summary Link approved files to the originating record and approve the request
// @Tags DocumentRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /document-requests/{id}/commit [post]
func (h *DocumentRequestHandler) Commit(c *gin.Context) {
	result, err := h.requests.CommitApprovedFiles(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject a request
// @Tags DocumentRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectDocumentRequest true "Review notes"
// @Success 200 {object} response.Envelope
// @Router /document-requests/{id}/reject [post]
func (h *DocumentRequestHandler) Reject(c *gin.Context) {
	var req dto.RejectDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "rejection notes are required"))
		return
	}
	doc, err := h.requests.RejectRequest(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// ReviewFile godoc
// @Summary Approve or reject one uploaded file
// @Tags DocumentRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param fileId path string true "File ID"
// @Param payload body dto.ReviewFileRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /document-requests/{id}/files/{fileId}/review [patch]
func (h *DocumentRequestHandler) ReviewFile(c *gin.Context) {
	var req dto.ReviewFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	artifact, err := h.review.ReviewFile(c.Request.Context(), c.Param("id"), c.Param("fileId"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, artifact, nil)
}

// DownloadURL godoc
// @Summary Issue a short-lived download link for a file
// @Tags DocumentRequests
// @Produce json
// @Param id path string true "Request ID"
// @Param fileId path string true "File ID"
// @Success 200 {object} response.Envelope
// @Router /document-requests/{id}/files/{fileId}/download-url [get]
func (h *DocumentRequestHandler) DownloadURL(c *gin.Context) {
	link, err := h.review.DownloadLink(c.Request.Context(), c.Param("id"), c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Manifest godoc
// @Summary Export the review manifest of a request
// @Tags DocumentRequests
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Request ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /document-requests/{id}/manifest [get]
func (h *DocumentRequestHandler) Manifest(c *gin.Context) {
	manifest, err := h.review.ExportManifest(c.Request.Context(), c.Param("id"), c.Query("format"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, manifest.ContentType, manifest.FileName, manifest.Content)
}
