package models

import "time"

// AssignmentStatus tracks a review assignment.
type AssignmentStatus string

const (
	AssignmentStatusOpen      AssignmentStatus = "OPEN"
	AssignmentStatusCompleted AssignmentStatus = "COMPLETED"
)

// ReviewAssignment asks an operator to review staged files for a request.
type ReviewAssignment struct {
	ID          string           `db:"id" json:"id"`
	RequestID   string           `db:"request_id" json:"requestId"`
	OwnerID     string           `db:"owner_id" json:"ownerId"`
	Status      AssignmentStatus `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
	CompletedAt *time.Time       `db:"completed_at" json:"completedAt,omitempty"`
}
