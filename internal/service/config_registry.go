package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/docrequest-portal/internal/dto"
	"github.com/noah-isme/docrequest-portal/internal/fieldpath"
	"github.com/noah-isme/docrequest-portal/internal/models"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
)

const registryCacheKeyPrefix = "entity_type_config:"

var typeIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]{0,63}$`)

type entityTypeConfigStore interface {
	Get(ctx context.Context, typeID string) (*models.EntityTypeConfig, error)
	ListActive(ctx context.Context) ([]models.EntityTypeConfig, error)
	Upsert(ctx context.Context, cfg *models.EntityTypeConfig) error
	SetActive(ctx context.Context, typeID string, active bool, updatedBy *string) (bool, error)
}

type sharedCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Invalidate(ctx context.Context, pattern string) error
}

// ConfigRegistry serves entity type configurations through an in-process map, an
// optional shared cache, and finally the database. Cached entries are immutable
// until Invalidate is called for their type.
type ConfigRegistry struct {
	store     entityTypeConfigStore
	shared    sharedCache
	sharedTTL time.Duration
	validator *validator.Validate
	audit     auditTrail
	logger    *zap.Logger

	mu      sync.RWMutex
	entries map[string]models.EntityTypeConfig
}

// NewConfigRegistry constructs the registry. shared may be nil.
func NewConfigRegistry(store entityTypeConfigStore, shared sharedCache, sharedTTL time.Duration, validate *validator.Validate, audit auditLogger, logger *zap.Logger) *ConfigRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ConfigRegistry{
		store:     store,
		shared:    shared,
		sharedTTL: sharedTTL,
		validator: validate,
		audit:     auditTrail{store: audit, logger: logger, source: "config-registry"},
		logger:    logger,
		entries:   make(map[string]models.EntityTypeConfig),
	}
}

// GetConfig returns the active configuration for typeID or ErrNotConfigured.
func (r *ConfigRegistry) GetConfig(ctx context.Context, typeID string) (*models.EntityTypeConfig, error) {
	cfg, err := r.lookup(ctx, strings.TrimSpace(typeID))
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive {
		return nil, notConfigured(typeID)
	}
	clone := cfg.Clone()
	return &clone, nil
}

// ListActiveTypes returns all active configurations and warms the local tier.
func (r *ConfigRegistry) ListActiveTypes(ctx context.Context) ([]models.EntityTypeConfig, error) {
	configs, err := r.store.ListActive(ctx)
	if err != nil {
		return nil, storeFailure(err, "failed to list entity type configurations")
	}
	result := make([]models.EntityTypeConfig, 0, len(configs))
	for _, cfg := range configs {
		r.remember(cfg)
		result = append(result, cfg.Clone())
	}
	return result, nil
}

// Invalidate drops the cached entry for typeID from every tier.
func (r *ConfigRegistry) Invalidate(ctx context.Context, typeID string) {
	r.mu.Lock()
	delete(r.entries, typeID)
	r.mu.Unlock()
	if r.shared != nil {
		if err := r.shared.Delete(ctx, registryCacheKeyPrefix+typeID); err != nil {
			r.logger.Warn("failed to invalidate shared registry entry", zap.String("type_id", typeID), zap.Error(err))
		}
	}
}

// InvalidateAll empties the local tier and every shared entry, for use after
// configurations were changed directly in the database.
func (r *ConfigRegistry) InvalidateAll(ctx context.Context, actorID string) error {
	r.mu.Lock()
	dropped := len(r.entries)
	r.entries = make(map[string]models.EntityTypeConfig)
	r.mu.Unlock()
	if r.shared != nil {
		if err := r.shared.Invalidate(ctx, registryCacheKeyPrefix+"*"); err != nil {
			return storeFailure(err, "failed to flush shared registry cache")
		}
	}
	r.logger.Info("registry cache flushed", zap.Int("local_entries", dropped))
	r.audit.emit(ctx, actorID, models.AuditActionConfigFlush, "entity_type_config", "*", nil)
	return nil
}

// UpsertConfig validates and stores a configuration, then invalidates its cache entries.
func (r *ConfigRegistry) UpsertConfig(ctx context.Context, typeID string, req dto.UpsertEntityTypeConfigRequest, actorID string) (*models.EntityTypeConfig, error) {
	typeID = strings.TrimSpace(typeID)
	if !typeIDPattern.MatchString(typeID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "typeId must start with a letter and contain only letters, digits, '_', '.' or '-'")
	}
	if err := r.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entity type configuration payload")
	}
	for _, raw := range []string{req.RecipientEmailPath, req.RecipientNamePath, req.RecipientRefPath} {
		if _, err := fieldpath.Parse(raw); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
	}
	extensions := models.NormalizeExtensions(req.AllowedExtensions)
	if len(extensions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "allowedExtensions must contain at least one extension")
	}

	cfg := &models.EntityTypeConfig{
		TypeID:                 typeID,
		IsActive:               req.IsActive,
		RecipientEmailPath:     strings.TrimSpace(req.RecipientEmailPath),
		RecipientNamePath:      strings.TrimSpace(req.RecipientNamePath),
		RecipientRefPath:       strings.TrimSpace(req.RecipientRefPath),
		DefaultExpirationDays:  req.DefaultExpirationDays,
		MaxFileSizeBytes:       req.MaxFileSizeBytes,
		MaxFilesPerUpload:      req.MaxFilesPerUpload,
		AllowedExtensions:      extensions,
		QuickActionLabel:       strings.TrimSpace(req.QuickActionLabel),
		NotificationTemplateID: strings.TrimSpace(req.NotificationTemplateID),
		UpdatedBy:              optionalString(actorID),
		UpdatedAt:              time.Now().UTC(),
	}
	if err := r.store.Upsert(ctx, cfg); err != nil {
		return nil, storeFailure(err, "failed to save entity type configuration")
	}
	r.Invalidate(ctx, typeID)
	r.audit.emit(ctx, actorID, models.AuditActionConfigUpdate, "entity_type_config", typeID, cfg)

	clone := cfg.Clone()
	return &clone, nil
}

// SetActive toggles whether a type accepts new document requests.
func (r *ConfigRegistry) SetActive(ctx context.Context, typeID string, active bool, actorID string) error {
	found, err := r.store.SetActive(ctx, typeID, active, optionalString(actorID))
	if err != nil {
		return storeFailure(err, "failed to update entity type configuration")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("entity type %q not found", typeID))
	}
	r.Invalidate(ctx, typeID)
	r.audit.emit(ctx, actorID, models.AuditActionConfigUpdate, "entity_type_config", typeID, map[string]bool{"isActive": active})
	return nil
}

func (r *ConfigRegistry) lookup(ctx context.Context, typeID string) (models.EntityTypeConfig, error) {
	if typeID == "" {
		return models.EntityTypeConfig{}, notConfigured(typeID)
	}

	r.mu.RLock()
	cfg, ok := r.entries[typeID]
	r.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	key := registryCacheKeyPrefix + typeID
	if r.shared != nil {
		var cached models.EntityTypeConfig
		if hit, err := r.shared.Get(ctx, key, &cached); err == nil && hit {
			r.remember(cached)
			return cached, nil
		}
	}

	stored, err := r.store.Get(ctx, typeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.EntityTypeConfig{}, notConfigured(typeID)
		}
		return models.EntityTypeConfig{}, storeFailure(err, "failed to load entity type configuration")
	}
	r.remember(*stored)
	if r.shared != nil {
		_ = r.shared.Set(ctx, key, stored, r.sharedTTL)
	}
	return stored.Clone(), nil
}

func (r *ConfigRegistry) remember(cfg models.EntityTypeConfig) {
	r.mu.Lock()
	r.entries[cfg.TypeID] = cfg.Clone()
	r.mu.Unlock()
}

func notConfigured(typeID string) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrNotConfigured, fmt.Sprintf("entity type %q is not configured for document requests", typeID))
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	v := strings.TrimSpace(value)
	return &v
}
