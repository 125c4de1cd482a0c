package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandlerMe(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/auth/me", nil, nil)

	NewAuthHandler().Me(c)

	require.Equal(t, http.StatusOK, w.Code)
	data, ok := decodeEnvelope(t, w)["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "operator-1", data["id"])
	assert.Equal(t, "OPERATOR", data["role"])
}

func TestAuthHandlerMeWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)

	NewAuthHandler().Me(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
}
