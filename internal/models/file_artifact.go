package models

import "time"

// UploadSource records where an artifact came from.
type UploadSource string

const (
	UploadSourcePortal    UploadSource = "PORTAL_UPLOAD"
	UploadSourceInternal  UploadSource = "INTERNAL"
	UploadSourceMigration UploadSource = "MIGRATION"
)

// ReviewStatus captures the operator decision on a single artifact.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "PENDING_REVIEW"
	ReviewStatusApproved ReviewStatus = "APPROVED"
	ReviewStatusRejected ReviewStatus = "REJECTED"
)

// FileArtifact is one uploaded file staged against a request.
type FileArtifact struct {
	ID              string       `db:"id" json:"id"`
	RequestID       string       `db:"request_id" json:"requestId"`
	FileName        string       `db:"file_name" json:"fileName"`
	SizeBytes       int64        `db:"size_bytes" json:"sizeBytes"`
	ContentType     string       `db:"content_type" json:"contentType"`
	StorageKey      string       `db:"storage_key" json:"-"`
	UploadSource    UploadSource `db:"upload_source" json:"uploadSource"`
	ReviewStatus    ReviewStatus `db:"review_status" json:"reviewStatus"`
	ReviewedBy      *string      `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time   `db:"reviewed_at" json:"reviewedAt,omitempty"`
	RejectionReason *string      `db:"rejection_reason" json:"rejectionReason,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
	DeletedAt       *time.Time   `db:"deleted_at" json:"-"`
}

// ArtifactLink attaches an artifact to an entity other than its owning request.
type ArtifactLink struct {
	ArtifactID string    `db:"artifact_id" json:"artifactId"`
	EntityType string    `db:"entity_type" json:"entityType"`
	EntityID   string    `db:"entity_id" json:"entityId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// CommitResult is the outcome of committing approved artifacts to the originating entity.
type CommitResult struct {
	RequestID         string        `json:"requestId"`
	DisplayNumber     string        `json:"displayNumber"`
	Status            RequestStatus `json:"status"`
	LinkedArtifactIDs []string      `json:"linkedArtifactIds"`
	ReviewCompletedAt time.Time     `json:"reviewCompletedAt"`
}
