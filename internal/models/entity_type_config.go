package models

import (
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

// EntityTypeConfig declares how document requests behave for one originating entity type.
type EntityTypeConfig struct {
	TypeID                 string         `db:"type_id" json:"typeId"`
	IsActive               bool           `db:"is_active" json:"isActive"`
	RecipientEmailPath     string         `db:"recipient_email_path" json:"recipientEmailPath"`
	RecipientNamePath      string         `db:"recipient_name_path" json:"recipientNamePath,omitempty"`
	RecipientRefPath       string         `db:"recipient_ref_path" json:"recipientRefPath,omitempty"`
	DefaultExpirationDays  int            `db:"default_expiration_days" json:"defaultExpirationDays"`
	MaxFileSizeBytes       int64          `db:"max_file_size_bytes" json:"maxFileSizeBytes"`
	MaxFilesPerUpload      int            `db:"max_files_per_upload" json:"maxFilesPerUpload"`
	AllowedExtensions      pq.StringArray `db:"allowed_extensions" json:"allowedExtensions"`
	QuickActionLabel       string         `db:"quick_action_label" json:"quickActionLabel,omitempty"`
	NotificationTemplateID string         `db:"notification_template_id" json:"notificationTemplateId,omitempty"`
	UpdatedBy              *string        `db:"updated_by" json:"updatedBy,omitempty"`
	UpdatedAt              time.Time      `db:"updated_at" json:"updatedAt"`
}

// UploadLimits are the per-upload constraints disclosed to the anonymous party.
type UploadLimits struct {
	MaxFileSizeBytes  int64    `json:"maxFileSizeBytes"`
	MaxFilesPerUpload int      `json:"maxFilesPerUpload"`
	AllowedExtensions []string `json:"allowedExtensions"`
}

// Clone returns a deep copy so cached values are never shared with callers.
func (c EntityTypeConfig) Clone() EntityTypeConfig {
	clone := c
	if c.AllowedExtensions != nil {
		clone.AllowedExtensions = append(pq.StringArray(nil), c.AllowedExtensions...)
	}
	if c.UpdatedBy != nil {
		by := *c.UpdatedBy
		clone.UpdatedBy = &by
	}
	return clone
}

// Limits returns the upload limits with extensions sorted.
func (c EntityTypeConfig) Limits() UploadLimits {
	exts := append([]string(nil), c.AllowedExtensions...)
	sort.Strings(exts)
	return UploadLimits{
		MaxFileSizeBytes:  c.MaxFileSizeBytes,
		MaxFilesPerUpload: c.MaxFilesPerUpload,
		AllowedExtensions: exts,
	}
}

// AllowsExtension reports whether ext (without dot) is permitted. Comparison is case-insensitive.
func (c EntityTypeConfig) AllowsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range c.AllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

// NormalizeExtensions lowercases, strips leading dots and de-duplicates extension entries.
func NormalizeExtensions(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	result := make([]string, 0, len(raw))
	for _, ext := range raw {
		ext = strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		result = append(result, ext)
	}
	sort.Strings(result)
	return result
}

// FileExtension returns the lowercase substring after the last '.', or "" when there is none.
func FileExtension(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(fileName[idx+1:])
}
