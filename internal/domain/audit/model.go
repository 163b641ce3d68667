package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/bedside/bedside/internal/domain/policy"
	"github.com/bedside/bedside/internal/domain/triage"
)

// Resolution status recorded for a processed request.
const (
	ResolutionEscalated = "escalated"
	ResolutionPending   = "pending"
	ResolutionCompleted = "completed"
)

// Entry is one immutable row in the audit trail. Every processed request
// produces exactly one entry capturing the full decision context.
// StaffNotified holds one delivery outcome per notification attempt,
// formatted recipient/channel=status.
type Entry struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	LogRef           string            `db:"log_ref" json:"log_ref"`
	RequestID        uuid.UUID         `db:"request_id" json:"request_id"`
	PatientID        uuid.UUID         `db:"patient_id" json:"patient_id"`
	QueryText        string            `db:"query_text" json:"query_text"`
	Category         triage.Category   `db:"category" json:"category"`
	Urgency          triage.Urgency    `db:"urgency" json:"urgency"`
	Escalation       policy.Escalation `db:"escalation" json:"escalation"`
	PolicyTags       []string          `db:"policy_tags" json:"policy_tags"`
	Reasoning        string            `db:"reasoning" json:"reasoning"`
	ResponseText     string            `db:"response_text" json:"response_text"`
	StaffNotified    []string          `db:"staff_notified" json:"staff_notified"`
	ApprovalRequired bool              `db:"approval_required" json:"approval_required"`
	ResolutionStatus string            `db:"resolution_status" json:"resolution_status"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
}
