// Package policy turns a triage classification into an operational decision:
// whether staff approval is required, who the request escalates to, and how
// fast a response is promised. Rules are applied in a fixed order and the
// escalation level only ever rises.
package policy

import (
	"fmt"
	"strings"

	"github.com/bedside/bedside/internal/domain/triage"
)

// Escalation is the staff tier a request is routed to.
type Escalation string

const (
	EscalationNone      Escalation = "none"
	EscalationNurse     Escalation = "nurse"
	EscalationDoctor    Escalation = "doctor"
	EscalationEmergency Escalation = "emergency"
)

var escalationRank = map[Escalation]int{
	EscalationNone:      0,
	EscalationNurse:     1,
	EscalationDoctor:    2,
	EscalationEmergency: 3,
}

// Rank returns the position of the escalation level in the total order
// none < nurse < doctor < emergency.
func (e Escalation) Rank() int {
	return escalationRank[e]
}

// Policy tags, recorded in trigger order for audit explainability.
const (
	TagEmergencyProtocol       = "EMERGENCY_PROTOCOL"
	TagMedicalApprovalRequired = "MEDICAL_REQUEST_APPROVAL_REQUIRED"
	TagHighUrgencyDoctor       = "HIGH_URGENCY_DOCTOR_NOTIFICATION"
	TagMedicationNurseRequired = "MEDICATION_REQUEST_NURSE_REQUIRED"
	TagDistressEscalation      = "DISTRESS_ESCALATION"
	TagNonMedicalAutoResponse  = "NON_MEDICAL_AUTO_RESPONSE"
)

// Estimated response promises in seconds, by rule.
const (
	emergencyResponseSecs  = 60
	medicalResponseSecs    = 300
	doctorResponseSecs     = 180
	distressResponseSecs   = 180
	nonMedicalResponseSecs = 5
)

// Decision is the single policy decision produced for a request.
type Decision struct {
	RequiresApproval         bool       `json:"requires_approval"`
	Escalation               Escalation `json:"escalation"`
	Policies                 []string   `json:"policies"`
	Reasoning                string     `json:"reasoning"`
	EstimatedResponseSeconds int        `json:"estimated_response_seconds"`
	Medication               bool       `json:"medication"`
}

// Validate rejects decisions that violate the emergency invariant before they
// reach response composition. A failure here is a pipeline bug, not bad data.
func (d *Decision) Validate() error {
	if d.Escalation == EscalationEmergency && d.RequiresApproval {
		return fmt.Errorf("policy invariant violation: emergency escalation with approval required")
	}
	return nil
}

// decisionBuilder accumulates rule outcomes. Escalation is monotonic: a later
// rule can raise the level but never lower it.
type decisionBuilder struct {
	d       Decision
	reasons []string
}

func newDecisionBuilder() *decisionBuilder {
	return &decisionBuilder{
		d: Decision{
			Escalation:               EscalationNone,
			EstimatedResponseSeconds: medicalResponseSecs,
		},
	}
}

func (b *decisionBuilder) escalate(level Escalation) {
	if level.Rank() > b.d.Escalation.Rank() {
		b.d.Escalation = level
	}
}

func (b *decisionBuilder) apply(tag, reason string) {
	b.d.Policies = append(b.d.Policies, tag)
	b.reasons = append(b.reasons, reason)
}

func (b *decisionBuilder) build() Decision {
	b.d.Reasoning = strings.Join(b.reasons, "; ")
	return b.d
}

// Engine evaluates policy rules. It holds no mutable state and is safe for
// concurrent use.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate maps a classification and the original request text to a Decision.
// Rules run in a fixed order; each triggered rule appends its tag and reason.
func (e *Engine) Evaluate(c triage.Classification, text string) Decision {
	b := newDecisionBuilder()

	// Rule 1: emergencies escalate immediately and bypass the approval gate.
	emergency := c.Category == triage.CategoryEmergency || c.Urgency == triage.UrgencyCritical
	if emergency {
		b.escalate(EscalationEmergency)
		b.d.RequiresApproval = false
		b.d.EstimatedResponseSeconds = emergencyResponseSecs
		b.apply(TagEmergencyProtocol, "emergency detected, immediate escalation to emergency response team")
	} else if c.Category == triage.CategoryMedical {
		// Rule 2: medical requests need staff sign-off before any action.
		b.d.RequiresApproval = true
		b.escalate(EscalationNurse)
		b.d.EstimatedResponseSeconds = medicalResponseSecs
		b.apply(TagMedicalApprovalRequired, "medical request requires staff approval")

		if c.Urgency == triage.UrgencyHigh || c.Urgency == triage.UrgencyCritical {
			b.escalate(EscalationDoctor)
			b.d.EstimatedResponseSeconds = doctorResponseSecs
			b.apply(TagHighUrgencyDoctor, "high urgency medical request, doctor notified")
		}
	}

	// Rule 3: medication wording forces the nurse gate whatever branch ran,
	// but never downgrades an emergency escalation.
	if triage.MentionsMedication(text) {
		b.d.Medication = true
		if b.d.Escalation.Rank() < EscalationEmergency.Rank() {
			b.d.RequiresApproval = true
			if b.d.Escalation.Rank() < EscalationNurse.Rank() {
				b.escalate(EscalationNurse)
				b.d.EstimatedResponseSeconds = medicalResponseSecs
			}
		}
		b.apply(TagMedicationNurseRequired, "medication request requires nurse involvement")
	}

	// Rule 4: visible distress routes to a nurse even when nothing else did.
	if (c.Distress == triage.DistressMedium || c.Distress == triage.DistressHigh) &&
		b.d.Escalation == EscalationNone {
		b.escalate(EscalationNurse)
		b.d.EstimatedResponseSeconds = distressResponseSecs
		b.apply(TagDistressEscalation, "patient distress detected, nurse check-in requested")
	}

	// Rule 5: routine comfort requests are answered automatically.
	if c.Category == triage.CategoryNonMedical && b.d.Escalation == EscalationNone {
		b.d.RequiresApproval = false
		b.d.EstimatedResponseSeconds = nonMedicalResponseSecs
		b.apply(TagNonMedicalAutoResponse, "non-medical request auto-acknowledged")
	}

	return b.build()
}
