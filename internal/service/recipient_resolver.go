package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/docrequest-portal/internal/fieldpath"
	"github.com/noah-isme/docrequest-portal/internal/models"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
)

const defaultRecipientName = "Recipient"

type configProvider interface {
	GetConfig(ctx context.Context, typeID string) (*models.EntityTypeConfig, error)
}

type recordFetcher interface {
	Fetch(ctx context.Context, entityType, entityID string, paths []fieldpath.Path) (*models.Record, error)
}

// RecipientResolver derives the recipient of a request from the originating record
// using the field paths configured for its entity type.
type RecipientResolver struct {
	configs configProvider
	records recordFetcher
	logger  *zap.Logger
}

// NewRecipientResolver constructs the resolver.
func NewRecipientResolver(configs configProvider, records recordFetcher, logger *zap.Logger) *RecipientResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipientResolver{configs: configs, records: records, logger: logger}
}

// Resolve looks up the configuration for entityType and resolves the recipient.
func (r *RecipientResolver) Resolve(ctx context.Context, entityType, entityID string) (*models.RecipientDescriptor, error) {
	cfg, err := r.configs.GetConfig(ctx, entityType)
	if err != nil {
		return nil, err
	}
	return r.ResolveWithConfig(ctx, cfg, entityID)
}

// ResolveWithConfig resolves the recipient using an already loaded configuration.
// All configured paths are fetched with one call to the record store.
func (r *RecipientResolver) ResolveWithConfig(ctx context.Context, cfg *models.EntityTypeConfig, entityID string) (*models.RecipientDescriptor, error) {
	emailPath, err := r.parse(cfg, cfg.RecipientEmailPath)
	if err != nil {
		return nil, err
	}
	namePath, err := r.parse(cfg, cfg.RecipientNamePath)
	if err != nil {
		return nil, err
	}
	refPath, err := r.parse(cfg, cfg.RecipientRefPath)
	if err != nil {
		return nil, err
	}
	if emailPath.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrMissingRecipientEmail, fmt.Sprintf("no recipient email path is configured for %q", cfg.TypeID))
	}

	paths := make([]fieldpath.Path, 0, 3)
	for _, p := range []fieldpath.Path{emailPath, namePath, refPath} {
		if !p.IsZero() {
			paths = append(paths, p)
		}
	}
	record, err := r.records.Fetch(ctx, cfg.TypeID, entityID, paths)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %q not found", cfg.TypeID, entityID))
		}
		return nil, storeFailure(err, "failed to load originating record")
	}

	email, err := r.evaluate(cfg, emailPath, record)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingRecipientEmail, "the originating record has no recipient email address")
	}

	name, err := r.evaluate(cfg, namePath, record)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = defaultRecipientName
	}

	ref, err := r.evaluate(cfg, refPath, record)
	if err != nil {
		return nil, err
	}

	return &models.RecipientDescriptor{Name: name, Email: email, ContactRef: optionalString(ref)}, nil
}

func (r *RecipientResolver) parse(cfg *models.EntityTypeConfig, raw string) (fieldpath.Path, error) {
	p, err := fieldpath.Parse(raw)
	if err != nil {
		return fieldpath.Path{}, r.invalidPath(cfg, err)
	}
	return p, nil
}

func (r *RecipientResolver) evaluate(cfg *models.EntityTypeConfig, p fieldpath.Path, record *models.Record) (string, error) {
	value, err := p.Evaluate(record)
	if err != nil {
		return "", r.invalidPath(cfg, err)
	}
	return value, nil
}

func (r *RecipientResolver) invalidPath(cfg *models.EntityTypeConfig, err error) *appErrors.Error {
	r.logger.Error("recipient field path cannot be resolved", zap.String("type_id", cfg.TypeID), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInvalidFieldPath.Code, appErrors.ErrInvalidFieldPath.Status, appErrors.ErrInvalidFieldPath.Message)
}
