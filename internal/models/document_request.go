package models

import "time"

// RequestStatus is the lifecycle state of a document request.
type RequestStatus string

const (
	RequestStatusDraft         RequestStatus = "DRAFT"
	RequestStatusSent          RequestStatus = "SENT"
	RequestStatusFilesReceived RequestStatus = "FILES_RECEIVED"
	RequestStatusUnderReview   RequestStatus = "UNDER_REVIEW"
	RequestStatusApproved      RequestStatus = "APPROVED"
	RequestStatusRejected      RequestStatus = "REJECTED"
	RequestStatusExpired       RequestStatus = "EXPIRED"
)

// allStatuses keeps a stable ordering for derived lists.
var allStatuses = []RequestStatus{
	RequestStatusDraft,
	RequestStatusSent,
	RequestStatusFilesReceived,
	RequestStatusUnderReview,
	RequestStatusApproved,
	RequestStatusRejected,
	RequestStatusExpired,
}

var transitions = map[RequestStatus]map[RequestStatus]struct{}{
	RequestStatusDraft: {
		RequestStatusSent:    {},
		RequestStatusExpired: {},
	},
	RequestStatusSent: {
		RequestStatusFilesReceived: {},
		RequestStatusExpired:       {},
	},
	RequestStatusFilesReceived: {
		RequestStatusUnderReview: {},
		RequestStatusApproved:    {},
		RequestStatusExpired:     {},
	},
	RequestStatusUnderReview: {
		RequestStatusApproved: {},
		RequestStatusRejected: {},
		RequestStatusExpired:  {},
	},
}

// CanTransition is the single authority on which status moves are legal.
// Approved, Rejected and Expired have no outgoing edges.
func CanTransition(from, to RequestStatus) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// TransitionSources lists every status that may legally move to the target.
func TransitionSources(to RequestStatus) []RequestStatus {
	sources := make([]RequestStatus, 0, 4)
	for _, from := range allStatuses {
		if CanTransition(from, to) {
			sources = append(sources, from)
		}
	}
	return sources
}

// Valid reports whether the status is one of the known values.
func (s RequestStatus) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is absorbing.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected || s == RequestStatusExpired
}

// DocumentRequest is the aggregate root of a request for documents from an external party.
type DocumentRequest struct {
	ID                string        `db:"id" json:"id"`
	DisplayNumber     string        `db:"display_number" json:"displayNumber"`
	Token             string        `db:"token" json:"-"`
	TokenExpiresAt    time.Time     `db:"token_expires_at" json:"tokenExpiresAt"`
	Status            RequestStatus `db:"status" json:"status"`
	Instructions      string        `db:"instructions" json:"instructions"`
	InternalNotes     string        `db:"internal_notes" json:"internalNotes,omitempty"`
	OriginatingType   string        `db:"originating_type" json:"originatingType"`
	OriginatingID     string        `db:"originating_id" json:"originatingId"`
	RecipientEmail    string        `db:"recipient_email" json:"recipientEmail"`
	RecipientName     string        `db:"recipient_name" json:"recipientName"`
	RecipientRef      *string       `db:"recipient_ref" json:"recipientRef,omitempty"`
	RequestedBy       string        `db:"requested_by" json:"requestedBy"`
	RequestedAt       time.Time     `db:"requested_at" json:"requestedAt"`
	FilesReceivedAt   *time.Time    `db:"files_received_at" json:"filesReceivedAt,omitempty"`
	ReviewCompletedAt *time.Time    `db:"review_completed_at" json:"reviewCompletedAt,omitempty"`
	ReviewNotes       *string       `db:"review_notes" json:"reviewNotes,omitempty"`
	FileCount         int           `db:"file_count" json:"fileCount"`
	ConfigTypeID      string        `db:"config_type_id" json:"configTypeId"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updatedAt"`
}

// ExpiredAt reports whether the token window has closed at the given instant.
func (r *DocumentRequest) ExpiredAt(now time.Time) bool {
	return !now.Before(r.TokenExpiresAt)
}

// DocumentRequestFilter constrains listing queries.
type DocumentRequestFilter struct {
	Status          []RequestStatus
	OriginatingType string
	OriginatingID   string
	RequestedBy     string
	Limit           int
	Offset          int
}

// RecipientDescriptor is the resolved contact for a request.
type RecipientDescriptor struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	ContactRef *string `json:"contactRef,omitempty"`
}

// RecipientNotification carries the merge fields for the outbound request message.
type RecipientNotification struct {
	TemplateID     string
	RecipientEmail string
	RecipientName  string
	RequestNumber  string
	RequestDate    time.Time
	Instructions   string
	ExpirationDate time.Time
	UploadURL      string
}

// MergeFields flattens the notification into template data.
func (n RecipientNotification) MergeFields() map[string]interface{} {
	return map[string]interface{}{
		"requestNumber":  n.RequestNumber,
		"requestDate":    n.RequestDate.Format("2006-01-02"),
		"instructions":   n.Instructions,
		"expirationDate": n.ExpirationDate.Format("2006-01-02"),
		"uploadUrl":      n.UploadURL,
		"recipientName":  n.RecipientName,
	}
}
