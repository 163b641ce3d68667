package intake

import (
	"time"

	"github.com/google/uuid"

	"github.com/bedside/bedside/internal/domain/notification"
	"github.com/bedside/bedside/internal/domain/policy"
	"github.com/bedside/bedside/internal/domain/triage"
)

// Request status values, mirrored into the audit trail resolution status.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusEscalated = "escalated"
)

// CareRequest maps to the care_requests table. One row per patient utterance,
// capturing both what was asked and how the pipeline handled it.
type CareRequest struct {
	ID                  uuid.UUID         `db:"id" json:"id"`
	PatientID           uuid.UUID         `db:"patient_id" json:"patient_id"`
	Text                string            `db:"text" json:"text"`
	Category            triage.Category   `db:"category" json:"category"`
	Urgency             triage.Urgency    `db:"urgency" json:"urgency"`
	Distress            triage.Distress   `db:"distress" json:"distress"`
	Confidence          float64           `db:"confidence" json:"confidence"`
	MatchedKeywords     []string          `db:"matched_keywords" json:"matched_keywords"`
	Escalation          policy.Escalation `db:"escalation" json:"escalation"`
	PolicyTags          []string          `db:"policy_tags" json:"policy_tags"`
	Reasoning           string            `db:"reasoning" json:"reasoning"`
	RequiresApproval    bool              `db:"requires_approval" json:"requires_approval"`
	EstimatedResponse   int               `db:"estimated_response_seconds" json:"estimated_response_seconds"`
	ResponseText        string            `db:"response_text" json:"response_text"`
	Status              string            `db:"status" json:"status"`
	NeedsReconciliation bool              `db:"needs_reconciliation" json:"needs_reconciliation"`
	CreatedAt           time.Time         `db:"created_at" json:"created_at"`
}

// ProcessInput identifies the patient by internal id or hospital id and
// carries the raw request text.
type ProcessInput struct {
	PatientID  uuid.UUID `json:"patient_id,omitempty"`
	HospitalID string    `json:"hospital_id,omitempty"`
	Text       string    `json:"text"`
}

// Result is what the bedside device shows the patient, plus the references
// staff use to follow up.
type Result struct {
	RequestID         uuid.UUID                `json:"request_id"`
	PatientID         uuid.UUID                `json:"patient_id"`
	Category          triage.Category          `json:"category"`
	Urgency           triage.Urgency           `json:"urgency"`
	Escalation        policy.Escalation        `json:"escalation"`
	RequiresApproval  bool                     `json:"requires_approval"`
	EstimatedResponse int                      `json:"estimated_response_seconds"`
	ResponseText      string                   `json:"response_text"`
	PolicyTags        []string                 `json:"policy_tags"`
	Status            string                   `json:"status"`
	QueueRef          string                   `json:"queue_ref,omitempty"`
	LogRef            string                   `json:"log_ref,omitempty"`
	Notified          []notification.Recipient `json:"notified,omitempty"`
}
