package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/docrequest-portal/internal/dto"
	"github.com/noah-isme/docrequest-portal/internal/models"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
	"github.com/noah-isme/docrequest-portal/pkg/response"
)

type entityTypeRegistry interface {
	ListActiveTypes(ctx context.Context) ([]models.EntityTypeConfig, error)
	GetConfig(ctx context.Context, typeID string) (*models.EntityTypeConfig, error)
	UpsertConfig(ctx context.Context, typeID string, req dto.UpsertEntityTypeConfigRequest, actorID string) (*models.EntityTypeConfig, error)
	SetActive(ctx context.Context, typeID string, active bool, actorID string) error
	InvalidateAll(ctx context.Context, actorID string) error
}

// EntityTypeConfigHandler exposes the configuration registry.
type EntityTypeConfigHandler struct {
	registry entityTypeRegistry
}

// NewEntityTypeConfigHandler builds a new handler.
func NewEntityTypeConfigHandler(registry entityTypeRegistry) *EntityTypeConfigHandler {
	return &EntityTypeConfigHandler{registry: registry}
}

// ListActive godoc
// @Summary List entity types that accept document requests
// @Tags EntityTypes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /entity-types [get]
func (h *EntityTypeConfigHandler) ListActive(c *gin.Context) {
	items, err := h.registry.ListActiveTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get the active configuration of an entity type
// @Tags EntityTypes
// @Produce json
// @Param typeId path string true "Entity type"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /entity-types/{typeId} [get]
func (h *EntityTypeConfigHandler) Get(c *gin.Context) {
	cfg, err := h.registry.GetConfig(c.Request.Context(), c.Param("typeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Upsert godoc
// @Summary Create or replace an entity type configuration
// @Tags EntityTypes
// @Accept json
// @Produce json
// @Param typeId path string true "Entity type"
// @Param payload body dto.UpsertEntityTypeConfigRequest true "Configuration"
// @Success 200 {object} response.Envelope
// @Router /entity-types/{typeId} [put]
func (h *EntityTypeConfigHandler) Upsert(c *gin.Context) {
	var req dto.UpsertEntityTypeConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid entity type configuration payload"))
		return
	}
	cfg, err := h.registry.UpsertConfig(c.Request.Context(), c.Param("typeId"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// SetActive godoc
// @Summary Enable or disable document requests for an entity type
// @Tags EntityTypes
// @Accept json
// @Param typeId path string true "Entity type"
// @Param payload body dto.SetEntityTypeActiveRequest true "Toggle"
// @Success 204
// @Router /entity-types/{typeId}/active [patch]
func (h *EntityTypeConfigHandler) SetActive(c *gin.Context) {
	var req dto.SetEntityTypeActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "isActive is required"))
		return
	}
	if err := h.registry.SetActive(c.Request.Context(), c.Param("typeId"), *req.IsActive, actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// FlushCache godoc
// @Summary Drop every cached entity type configuration
// @Tags EntityTypes
// @Success 204
// @Router /entity-types/cache [delete]
func (h *EntityTypeConfigHandler) FlushCache(c *gin.Context) {
	if err := h.registry.InvalidateAll(c.Request.Context(), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
