package dto

import (
	"time"

	"github.com/noah-isme/docrequest-portal/internal/models"
)

// SessionView is everything the anonymous party may see about a request. The
// token expiry, originating entity and recipient stay server-side.
type SessionView struct {
	DisplayNumber     string              `json:"displayNumber"`
	RequestDate       time.Time           `json:"requestDate"`
	Instructions      string              `json:"instructions"`
	ReceivedFileCount int                 `json:"receivedFileCount"`
	Limits            models.UploadLimits `json:"limits"`
}

// UploadResult summarises an accepted upload batch.
type UploadResult struct {
	Accepted          int `json:"accepted"`
	ReceivedFileCount int `json:"receivedFileCount"`
}
