package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/docrequest-portal/internal/dto"
	"github.com/noah-isme/docrequest-portal/internal/service"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
	"github.com/noah-isme/docrequest-portal/pkg/response"
)

const (
	uploadFormField        = "files"
	multipartMemoryBytes   = 8 << 20
	defaultMaxRequestBytes = 256 << 20
)

type portalSessions interface {
	ValidateToken(ctx context.Context, rawToken string) (*dto.SessionView, error)
}

type portalUploads interface {
	Upload(ctx context.Context, rawToken string, files []service.UploadFile) (*dto.UploadResult, error)
}

// PortalHandler serves the anonymous, token addressed endpoints.
type PortalHandler struct {
	sessions        portalSessions
	uploads         portalUploads
	maxRequestBytes int64
}

// NewPortalHandler builds the portal handler. maxRequestBytes caps the whole
// multipart body; per-file limits are enforced by the upload service.
func NewPortalHandler(sessions portalSessions, uploads portalUploads, maxRequestBytes int64) *PortalHandler {
	if maxRequestBytes <= 0 {
		maxRequestBytes = defaultMaxRequestBytes
	}
	return &PortalHandler{sessions: sessions, uploads: uploads, maxRequestBytes: maxRequestBytes}
}

// Session godoc
// @Summary Validate a portal token
// @Tags Portal
// @Produce json
// @Param token path string true "Portal token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /portal/{token} [get]
func (h *PortalHandler) Session(c *gin.Context) {
	view, err := h.sessions.ValidateToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Upload godoc
// @Summary Upload requested documents
// @Tags Portal
// @Accept multipart/form-data
// @Produce json
// @Param token path string true "Portal token"
// @Param files formData file true "Documents"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /portal/{token}/files [post]
func (h *PortalHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxRequestBytes)
	if err := c.Request.ParseMultipartForm(multipartMemoryBytes); err != nil {
		if bodyTooLarge(err) {
			response.Error(c, appErrors.Clone(appErrors.ErrUploadLimitExceeded, "upload is too large"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart payload"))
		return
	}
	form := c.Request.MultipartForm
	defer func() { _ = form.RemoveAll() }()

	headers := form.File[uploadFormField]
	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, uploadFileFrom(fh))
	}

	result, err := h.uploads.Upload(c.Request.Context(), c.Param("token"), files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func bodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func uploadFileFrom(fh *multipart.FileHeader) service.UploadFile {
	return service.UploadFile{
		FileName:     fh.Filename,
		DeclaredSize: fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
