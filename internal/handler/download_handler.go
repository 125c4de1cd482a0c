package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/docrequest-portal/internal/service"
	"github.com/noah-isme/docrequest-portal/pkg/response"
)

type downloadOpener interface {
	OpenDownload(ctx context.Context, token string) (*service.ArtifactContent, error)
}

// DownloadHandler streams artifacts behind signed links.
type DownloadHandler struct {
	downloads downloadOpener
}

// NewDownloadHandler builds a download handler.
func NewDownloadHandler(downloads downloadOpener) *DownloadHandler {
	return &DownloadHandler{downloads: downloads}
}

// Download godoc
// @Summary Download an uploaded file through a signed link
// @Tags Downloads
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *DownloadHandler) Download(c *gin.Context) {
	content, err := h.downloads.OpenDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer content.Body.Close()

	response.AttachmentStream(c, content.SizeBytes, content.ContentType, content.FileName, content.Body)
}
