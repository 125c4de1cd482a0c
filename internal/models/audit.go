package models

import (
	"encoding/json"
	"time"
)

// AuditAction constants represent actions to be logged.
const (
	AuditActionConfigUpdate   = "ENTITY_TYPE_CONFIG_UPDATE"
	AuditActionConfigFlush    = "ENTITY_TYPE_CONFIG_CACHE_FLUSH"
	AuditActionRequestCreate  = "DOCUMENT_REQUEST_CREATE"
	AuditActionRequestSend    = "DOCUMENT_REQUEST_SEND"
	AuditActionRequestUpload  = "DOCUMENT_REQUEST_UPLOAD"
	AuditActionFileReview     = "FILE_ARTIFACT_REVIEW"
	AuditActionRequestCommit  = "DOCUMENT_REQUEST_COMMIT"
	AuditActionRequestReject  = "DOCUMENT_REQUEST_REJECT"
	AuditActionRequestExpire  = "DOCUMENT_REQUEST_EXPIRE"
	AuditActionManifestExport = "DOCUMENT_REQUEST_MANIFEST_EXPORT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	Action     string          `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID *string         `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  json.RawMessage `db:"old_values" json:"old_values,omitempty"`
	NewValues  json.RawMessage `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ip_address"`
	UserAgent  string          `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
