package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/docrequest-portal/internal/service"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
)

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

type downloadOpenerMock struct {
	body *trackingBody
}

func (m *downloadOpenerMock) OpenDownload(ctx context.Context, token string) (*service.ArtifactContent, error) {
	if token != "signed" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or has expired")
	}
	return &service.ArtifactContent{FileName: "w9.pdf", ContentType: "application/pdf", SizeBytes: 8, Body: m.body}, nil
}

func TestDownloadHandlerStreamsArtifact(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("%PDF-1.4")}
	h := NewDownloadHandler(&downloadOpenerMock{body: body})
	c, w := newTestContext(http.MethodGet, "/downloads/signed", nil, gin.Params{{Key: "token", Value: "signed"}})

	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=w9.pdf", w.Header().Get("Content-Disposition"))
	assert.True(t, body.closed)
}

func TestDownloadHandlerInvalidToken(t *testing.T) {
	h := NewDownloadHandler(&downloadOpenerMock{})
	c, w := newTestContext(http.MethodGet, "/downloads/forged", nil, gin.Params{{Key: "token", Value: "forged"}})

	h.Download(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
