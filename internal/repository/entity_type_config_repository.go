package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/docrequest-portal/internal/models"
)

const entityTypeConfigColumns = `type_id, is_active, recipient_email_path, recipient_name_path, recipient_ref_path,
       default_expiration_days, max_file_size_bytes, max_files_per_upload, allowed_extensions,
       quick_action_label, notification_template_id, updated_by, updated_at`

// EntityTypeConfigRepository persists per-entity-type request configuration.
type EntityTypeConfigRepository struct {
	db *sqlx.DB
}

// NewEntityTypeConfigRepository constructs the repository.
func NewEntityTypeConfigRepository(db *sqlx.DB) *EntityTypeConfigRepository {
	return &EntityTypeConfigRepository{db: db}
}

// Get fetches a configuration regardless of its active flag.
func (r *EntityTypeConfigRepository) Get(ctx context.Context, typeID string) (*models.EntityTypeConfig, error) {
	query := `SELECT ` + entityTypeConfigColumns + ` FROM entity_type_configs WHERE type_id = $1`
	var cfg models.EntityTypeConfig
	if err := r.db.GetContext(ctx, &cfg, query, typeID); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListActive returns every active configuration ordered by type id.
func (r *EntityTypeConfigRepository) ListActive(ctx context.Context) ([]models.EntityTypeConfig, error) {
	query := `SELECT ` + entityTypeConfigColumns + ` FROM entity_type_configs WHERE is_active = TRUE ORDER BY type_id`
	var configs []models.EntityTypeConfig
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("list entity type configs: %w", err)
	}
	return configs, nil
}

// Upsert inserts or replaces a configuration.
func (r *EntityTypeConfigRepository) Upsert(ctx context.Context, cfg *models.EntityTypeConfig) error {
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO entity_type_configs (type_id, is_active, recipient_email_path, recipient_name_path, recipient_ref_path,
	default_expiration_days, max_file_size_bytes, max_files_per_upload, allowed_extensions,
	quick_action_label, notification_template_id, updated_by, updated_at)
	VALUES (:type_id, :is_active, :recipient_email_path, :recipient_name_path, :recipient_ref_path,
	:default_expiration_days, :max_file_size_bytes, :max_files_per_upload, :allowed_extensions,
	:quick_action_label, :notification_template_id, :updated_by, :updated_at)
	ON CONFLICT (type_id) DO UPDATE SET
		is_active = EXCLUDED.is_active,
		recipient_email_path = EXCLUDED.recipient_email_path,
		recipient_name_path = EXCLUDED.recipient_name_path,
		recipient_ref_path = EXCLUDED.recipient_ref_path,
		default_expiration_days = EXCLUDED.default_expiration_days,
		max_file_size_bytes = EXCLUDED.max_file_size_bytes,
		max_files_per_upload = EXCLUDED.max_files_per_upload,
		allowed_extensions = EXCLUDED.allowed_extensions,
		quick_action_label = EXCLUDED.quick_action_label,
		notification_template_id = EXCLUDED.notification_template_id,
		updated_by = EXCLUDED.updated_by,
		updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("upsert entity type config %s: %w", cfg.TypeID, err)
	}
	return nil
}

// SetActive toggles the active flag. Returns false when the type does not exist.
func (r *EntityTypeConfigRepository) SetActive(ctx context.Context, typeID string, active bool, updatedBy *string) (bool, error) {
	const query = `UPDATE entity_type_configs SET is_active = $2, updated_by = $3, updated_at = $4 WHERE type_id = $1`
	result, err := r.db.ExecContext(ctx, query, typeID, active, updatedBy, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set entity type config active %s: %w", typeID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set entity type config active rows affected: %w", err)
	}
	return affected > 0, nil
}
