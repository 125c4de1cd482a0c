package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/docrequest-portal/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	h := NewMetricsHandler(nil, map[string]Pinger{"postgres": up})
	c, w := newTestContext(http.MethodGet, "/readyz", nil, nil)
	h.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":"up"`)

	h = NewMetricsHandler(nil, map[string]Pinger{"postgres": up, "redis": down})
	c, w = newTestContext(http.MethodGet, "/readyz", nil, nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"down"`)
}

func TestMetricsHandlerSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordCacheOperation(true, 0)

	h := NewMetricsHandler(metrics, nil)
	c, w := newTestContext(http.MethodGet, "/metrics/summary", nil, nil)
	h.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cache_hits":1`)

	h = NewMetricsHandler(nil, nil)
	c, w = newTestContext(http.MethodGet, "/metrics/summary", nil, nil)
	h.Summary(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
