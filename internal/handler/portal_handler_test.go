package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/docrequest-portal/internal/dto"
	"github.com/noah-isme/docrequest-portal/internal/service"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
)

type portalSessionsMock struct {
	valid string
}

func (m *portalSessionsMock) ValidateToken(ctx context.Context, rawToken string) (*dto.SessionView, error) {
	if rawToken != m.valid {
		return nil, appErrors.ErrInvalidOrExpiredToken
	}
	return &dto.SessionView{DisplayNumber: "DR-000001", Instructions: "Upload your W-9"}, nil
}

type portalUploadsMock struct {
	token    string
	names    []string
	contents []string
}

func (m *portalUploadsMock) Upload(ctx context.Context, rawToken string, files []service.UploadFile) (*dto.UploadResult, error) {
	m.token = rawToken
	for _, file := range files {
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		raw, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		m.names = append(m.names, file.FileName)
		m.contents = append(m.contents, string(raw))
	}
	return &dto.UploadResult{Accepted: len(files), ReceivedFileCount: len(files)}, nil
}

func multipartRequest(t *testing.T, target string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := writer.CreateFormFile(uploadFormField, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestPortalHandlerSession(t *testing.T) {
	h := NewPortalHandler(&portalSessionsMock{valid: "tok"}, &portalUploadsMock{}, 0)

	c, w := newTestContext(http.MethodGet, "/portal/tok", nil, gin.Params{{Key: "token", Value: "tok"}})
	h.Session(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Upload your W-9")

	c, w = newTestContext(http.MethodGet, "/portal/bad", nil, gin.Params{{Key: "token", Value: "bad"}})
	h.Session(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appErrors.ErrInvalidOrExpiredToken.Code, errorCode(t, w))
}

func TestPortalHandlerUploadPassesFiles(t *testing.T) {
	uploads := &portalUploadsMock{}
	h := NewPortalHandler(&portalSessionsMock{valid: "tok"}, uploads, 0)
	c, w := newTestContext(http.MethodPost, "/portal/tok/files", nil, gin.Params{{Key: "token", Value: "tok"}})
	c.Request = multipartRequest(t, "/portal/tok/files", map[string]string{"w9.pdf": "%PDF-1.4 body"})

	h.Upload(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tok", uploads.token)
	assert.Equal(t, []string{"w9.pdf"}, uploads.names)
	assert.Equal(t, []string{"%PDF-1.4 body"}, uploads.contents)
}

func TestPortalHandlerUploadTooLarge(t *testing.T) {
	uploads := &portalUploadsMock{}
	h := NewPortalHandler(&portalSessionsMock{valid: "tok"}, uploads, 64)
	c, w := newTestContext(http.MethodPost, "/portal/tok/files", nil, gin.Params{{Key: "token", Value: "tok"}})
	c.Request = multipartRequest(t, "/portal/tok/files", map[string]string{"big.pdf": string(bytes.Repeat([]byte("x"), 4096))})

	h.Upload(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, appErrors.ErrUploadLimitExceeded.Code, errorCode(t, w))
	assert.Empty(t, uploads.token)
}

func TestPortalHandlerUploadRejectsNonMultipart(t *testing.T) {
	uploads := &portalUploadsMock{}
	h := NewPortalHandler(&portalSessionsMock{valid: "tok"}, uploads, 0)
	c, w := newTestContext(http.MethodPost, "/portal/tok/files", bytes.NewReader([]byte(`{}`)), gin.Params{{Key: "token", Value: "tok"}})

	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, uploads.token)
}
