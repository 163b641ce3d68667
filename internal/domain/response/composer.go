// Package response composes the patient-facing reply for a processed request.
// Every reply comes from a fixed template table; the composer never generates
// free-form clinical content, which is what makes the no-medical-advice
// guarantee structural.
package response

import (
	"strings"

	"github.com/bedside/bedside/internal/domain/policy"
	"github.com/bedside/bedside/internal/domain/triage"
)

const (
	emergencyReply = "I've immediately notified the emergency response team. Help is on the way. Please stay calm, someone will be with you right away."

	approvalTemplate = "I've notified your {{role}} about your request. They'll be with you shortly."

	nonMedicalFallback = "I've noted your request and informed the nursing staff."

	genericFallback = "I'm coordinating with your care team about your request. Someone will follow up with you soon."
)

// cannedReply maps a keyword set to a fixed reply. First match wins, in table
// order.
type cannedReply struct {
	keywords []string
	reply    string
}

var cannedReplies = []cannedReply{
	{[]string{"water"}, "I'll let the staff know you'd like some water. Someone will bring it to you shortly."},
	{[]string{"temperature", "hot", "cold", "warm"}, "I'll ask the staff to adjust the room temperature for you."},
	{[]string{"tv", "television", "channel", "remote"}, "I'll have someone help you with the television."},
	{[]string{"light", "lights", "lamp"}, "I'll ask someone to adjust the lighting for you."},
	{[]string{"visitor", "visiting", "family"}, "Visiting hours are 9am to 8pm. I'll let the staff know you're expecting someone."},
	{[]string{"time", "date"}, "A staff member will stop by shortly and can confirm the time for you."},
}

// Composer renders patient-facing replies. It holds no mutable state and is
// safe for concurrent use.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// Compose maps a policy decision, the intent category, and the original text
// to a reply.
func (cm *Composer) Compose(d policy.Decision, category triage.Category, originalText string) string {
	if d.Escalation == policy.EscalationEmergency {
		return emergencyReply
	}

	if d.RequiresApproval &&
		(d.Escalation == policy.EscalationNurse || d.Escalation == policy.EscalationDoctor) {
		role := "nurse"
		if d.Escalation == policy.EscalationDoctor {
			role = "doctor"
		}
		return Render(approvalTemplate, map[string]string{"role": role})
	}

	if category == triage.CategoryNonMedical {
		lowered := strings.ToLower(originalText)
		for _, cr := range cannedReplies {
			for _, kw := range cr.keywords {
				if strings.Contains(lowered, kw) {
					return cr.reply
				}
			}
		}
		return nonMedicalFallback
	}

	return genericFallback
}

// Render substitutes {{key}} placeholders in a template.
func Render(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}
