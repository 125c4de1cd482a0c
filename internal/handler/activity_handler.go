package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/docrequest-portal/internal/models"
	"github.com/noah-isme/docrequest-portal/pkg/response"
)

type activityQueries interface {
	OpenAssignments(ctx context.Context, ownerID string) ([]models.ReviewAssignment, error)
	RequestHistory(ctx context.Context, requestID string) ([]models.AuditLog, error)
}

// ActivityHandler serves operator work queues and request history.
type ActivityHandler struct {
	activity activityQueries
}

// NewActivityHandler builds an activity handler.
func NewActivityHandler(activity activityQueries) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// MyAssignments godoc
// @Summary List open review assignments of the caller
// @Tags Activity
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /review-assignments [get]
func (h *ActivityHandler) MyAssignments(c *gin.Context) {
	items, err := h.activity.OpenAssignments(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// History godoc
// @Summary Audit history of a document request
// @Tags Activity
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /document-requests/{id}/history [get]
func (h *ActivityHandler) History(c *gin.Context) {
	logs, err := h.activity.RequestHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
