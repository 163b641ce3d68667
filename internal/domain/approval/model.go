package approval

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bedside/bedside/internal/domain/triage"
)

// Entry status values. An entry is created pending and resolved exactly once.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Staff roles an entry can be assigned to.
const (
	AssigneePrimaryNurse       = "primary_nurse"
	AssigneeAttendingPhysician = "attending_physician"
)

var (
	ErrNotFound = errors.New("approval entry not found")

	// ErrInvalidState is returned when resolving an entry that is no longer
	// pending. The stored entry is left untouched.
	ErrInvalidState = errors.New("approval entry is not pending")
)

// Entry maps to the approval_queue table. One row per request that needs a
// staff sign-off before it is acted on.
type Entry struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	QueueRef       string          `db:"queue_ref" json:"queue_ref"`
	RequestID      uuid.UUID       `db:"request_id" json:"request_id"`
	PatientID      uuid.UUID       `db:"patient_id" json:"patient_id"`
	RequestText    string          `db:"request_text" json:"request_text"`
	Category       triage.Category `db:"category" json:"category"`
	Urgency        triage.Urgency  `db:"urgency" json:"urgency"`
	AssignedRole   string          `db:"assigned_role" json:"assigned_role"`
	Status         string          `db:"status" json:"status"`
	SLADeadline    time.Time       `db:"sla_deadline" json:"sla_deadline"`
	EscalatedAt    *time.Time      `db:"escalated_at" json:"escalated_at,omitempty"`
	ResolvedBy     *string         `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolutionNote *string         `db:"resolution_note" json:"resolution_note,omitempty"`
	ResolvedAt     *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
