package dto

import (
	"time"

	"github.com/noah-isme/docrequest-portal/internal/models"
)

// CreateDocumentRequest is the operator payload for starting a request.
type CreateDocumentRequest struct {
	OriginatingType        string `json:"originatingType" validate:"required,max=64"`
	OriginatingID          string `json:"originatingId" validate:"required,max=128"`
	Instructions           string `json:"instructions" validate:"max=4000"`
	InternalNotes          string `json:"internalNotes" validate:"max=4000"`
	ExpirationOverrideDays *int   `json:"expirationOverrideDays" validate:"omitempty,min=1,max=365"`
	SaveAsDraft            bool   `json:"saveAsDraft"`
}

// CreateDocumentRequestResult is returned after creation.
type CreateDocumentRequestResult struct {
	RequestID     string               `json:"requestId"`
	DisplayNumber string               `json:"displayNumber"`
	Status        models.RequestStatus `json:"status"`
	ExpiresAt     time.Time            `json:"expiresAt"`
}

// DocumentRequestQuery holds list filters.
type DocumentRequestQuery struct {
	Status          []string `form:"status"`
	OriginatingType string   `form:"originatingType"`
	OriginatingID   string   `form:"originatingId"`
	RequestedBy     string   `form:"requestedBy"`
	Page            int      `form:"page"`
	PageSize        int      `form:"pageSize"`
}

// DocumentRequestDetail is the operator view of a request and its staged files.
type DocumentRequestDetail struct {
	models.DocumentRequest
	Files []models.FileArtifact `json:"files"`
}

// ReviewFileRequest records the decision for one artifact.
type ReviewFileRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Reason   string `json:"reason" validate:"max=1000"`
}

// RejectDocumentRequest closes a request without committing files.
type RejectDocumentRequest struct {
	Notes string `json:"notes" validate:"required,max=4000"`
}

// ArtifactDownload is a signed, time-limited link to an artifact.
type ArtifactDownload struct {
	ArtifactID string    `json:"artifactId"`
	FileName   string    `json:"fileName"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
