package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bedside/bedside/internal/domain/approval"
	"github.com/bedside/bedside/internal/domain/audit"
	"github.com/bedside/bedside/internal/domain/notification"
	"github.com/bedside/bedside/internal/domain/patient"
	"github.com/bedside/bedside/internal/domain/policy"
	"github.com/bedside/bedside/internal/domain/response"
	"github.com/bedside/bedside/internal/domain/triage"
	"github.com/bedside/bedside/internal/platform/dashboard"
)

// historyWindow is how many prior requests feed repeat-request detection.
const historyWindow = 3

// Service runs the full request pipeline: classify, decide, compose, notify,
// queue for approval when needed, and audit. Every processed request writes
// exactly one audit entry.
type Service struct {
	repo        Repository
	patients    patient.Repository
	classifier  *triage.Classifier
	engine      *policy.Engine
	composer    *response.Composer
	dispatcher  *notification.Dispatcher
	approvals   *approval.Service
	audits      *audit.Service
	hub         *dashboard.Hub
	defaultWard string
	logger      zerolog.Logger
}

func NewService(
	repo Repository,
	patients patient.Repository,
	dispatcher *notification.Dispatcher,
	approvals *approval.Service,
	audits *audit.Service,
	hub *dashboard.Hub,
	defaultWard string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		patients:    patients,
		classifier:  triage.NewClassifier(),
		engine:      policy.NewEngine(),
		composer:    response.NewComposer(),
		dispatcher:  dispatcher,
		approvals:   approvals,
		audits:      audits,
		hub:         hub,
		defaultWard: defaultWard,
		logger:      logger,
	}
}

// Process handles one patient utterance end to end and returns what the
// bedside device should display. Notification delivery is awaited so the
// returned result reflects who was actually reached.
func (s *Service) Process(ctx context.Context, in ProcessInput) (*Result, error) {
	if in.Text == "" {
		return nil, fmt.Errorf("text is required")
	}

	p, err := s.lookupPatient(ctx, in)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.RecentTexts(ctx, p.ID, historyWindow)
	if err != nil {
		s.logger.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("failed to load request history")
		history = nil
	}

	classification := s.classifier.Classify(in.Text, history)
	decision := s.engine.Evaluate(classification, in.Text)
	if err := decision.Validate(); err != nil {
		s.logger.Error().Err(err).Str("patient_id", p.ID.String()).Msg("policy decision rejected")
		return nil, err
	}
	responseText := s.composer.Compose(decision, classification.Category, in.Text)

	req := &CareRequest{
		ID:                uuid.New(),
		PatientID:         p.ID,
		Text:              in.Text,
		Category:          classification.Category,
		Urgency:           classification.Urgency,
		Distress:          classification.Distress,
		Confidence:        classification.Confidence,
		MatchedKeywords:   classification.MatchedKeywords,
		Escalation:        decision.Escalation,
		PolicyTags:        decision.Policies,
		Reasoning:         decision.Reasoning,
		RequiresApproval:  decision.RequiresApproval,
		EstimatedResponse: decision.EstimatedResponseSeconds,
		ResponseText:      responseText,
		Status:            resolutionStatus(decision),
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("persist care request: %w", err)
	}

	s.logger.Info().
		Str("request_id", req.ID.String()).
		Str("patient_id", p.ID.String()).
		Str("category", string(req.Category)).
		Str("urgency", string(req.Urgency)).
		Str("escalation", string(req.Escalation)).
		Bool("requires_approval", req.RequiresApproval).
		Msg("care request processed")

	recipients := resolveRecipients(p, decision)
	var deliveries []*notification.Record
	if len(recipients) > 0 {
		deliveries = s.dispatcher.Dispatch(ctx, notification.Message{
			RequestID: req.ID,
			PatientID: p.ID,
			Ward:      s.wardFor(p),
			Priority:  req.Urgency,
			Body:      notificationBody(p, req),
		}, recipients)
	}

	result := &Result{
		RequestID:         req.ID,
		PatientID:         p.ID,
		Category:          req.Category,
		Urgency:           req.Urgency,
		Escalation:        req.Escalation,
		RequiresApproval:  req.RequiresApproval,
		EstimatedResponse: req.EstimatedResponse,
		ResponseText:      req.ResponseText,
		PolicyTags:        req.PolicyTags,
		Status:            req.Status,
		Notified:          recipients,
	}

	if decision.RequiresApproval {
		entry, err := s.approvals.Enqueue(ctx, approval.EnqueueInput{
			RequestID:   req.ID,
			PatientID:   p.ID,
			RequestText: in.Text,
			Category:    req.Category,
			Urgency:     req.Urgency,
			Medication:  decision.Medication,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("request_id", req.ID.String()).Msg("failed to enqueue approval")
			s.flagReconciliation(ctx, req.ID)
		} else {
			result.QueueRef = entry.QueueRef
			s.hub.Publish(ctx, dashboard.Event{
				Type:      dashboard.EventApprovalCreated,
				Ward:      s.wardFor(p),
				RequestID: req.ID.String(),
				Priority:  string(req.Urgency),
				Message:   fmt.Sprintf("Approval %s assigned to %s", entry.QueueRef, entry.AssignedRole),
				Timestamp: time.Now().UTC(),
			})
		}
	}

	s.recordAudit(ctx, p, req, deliveries, result)
	return result, nil
}

func (s *Service) lookupPatient(ctx context.Context, in ProcessInput) (*patient.Patient, error) {
	if in.PatientID != uuid.Nil {
		return s.patients.GetByID(ctx, in.PatientID)
	}
	if in.HospitalID != "" {
		return s.patients.GetByHospitalID(ctx, in.HospitalID)
	}
	return nil, fmt.Errorf("patient_id or hospital_id is required")
}

// recordAudit writes the single audit entry for the request. A failed write
// is surfaced loudly and flags the request for reconciliation, but does not
// fail the request itself.
func (s *Service) recordAudit(ctx context.Context, p *patient.Patient, req *CareRequest, deliveries []*notification.Record, result *Result) {
	staff := make([]string, 0, len(deliveries))
	for _, rec := range deliveries {
		staff = append(staff, fmt.Sprintf("%s/%s=%s", rec.RecipientID, rec.Channel, rec.Status))
	}
	entry := &audit.Entry{
		RequestID:        req.ID,
		PatientID:        p.ID,
		QueryText:        req.Text,
		Category:         req.Category,
		Urgency:          req.Urgency,
		Escalation:       req.Escalation,
		PolicyTags:       req.PolicyTags,
		Reasoning:        req.Reasoning,
		ResponseText:     req.ResponseText,
		StaffNotified:    staff,
		ApprovalRequired: req.RequiresApproval,
		ResolutionStatus: req.Status,
	}
	if err := s.audits.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("request_id", req.ID.String()).
			Str("patient_id", p.ID.String()).
			Msg("CRITICAL: audit trail write lost")
		s.hub.Publish(ctx, dashboard.Event{
			Type:      dashboard.EventAuditWriteFailed,
			Ward:      s.wardFor(p),
			RequestID: req.ID.String(),
			Message:   "audit write failed, request flagged for reconciliation",
			Timestamp: time.Now().UTC(),
		})
		s.flagReconciliation(ctx, req.ID)
		return
	}
	result.LogRef = entry.LogRef
}

func (s *Service) flagReconciliation(ctx context.Context, id uuid.UUID) {
	if err := s.repo.MarkNeedsReconciliation(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("request_id", id.String()).Msg("failed to flag request for reconciliation")
	}
}

func (s *Service) wardFor(p *patient.Patient) string {
	if p.Ward != "" {
		return p.Ward
	}
	return s.defaultWard
}

// resolveRecipients maps the escalation tier to the staff who must hear about
// the request, falling back to on-duty roles when the patient has no assigned
// staff on file.
func resolveRecipients(p *patient.Patient, d policy.Decision) []notification.Recipient {
	nurse := notification.Recipient{ID: "charge-nurse", Role: "nurse"}
	if p.PrimaryNurseID != nil {
		nurse.ID = p.PrimaryNurseID.String()
	}
	physician := notification.Recipient{ID: "on-call-physician", Role: "physician"}
	if p.AttendingPhysicianID != nil {
		physician.ID = p.AttendingPhysicianID.String()
	}

	switch d.Escalation {
	case policy.EscalationNurse:
		return []notification.Recipient{nurse}
	case policy.EscalationDoctor:
		return []notification.Recipient{physician, nurse}
	case policy.EscalationEmergency:
		return []notification.Recipient{
			{ID: "emergency-response-team", Role: "emergency"},
			physician,
			nurse,
		}
	default:
		return nil
	}
}

func notificationBody(p *patient.Patient, req *CareRequest) string {
	location := p.Ward
	if p.Room != nil {
		location += " room " + *p.Room
	}
	return fmt.Sprintf("[%s] %s (%s): %s", req.Urgency, p.Name, location, req.Text)
}

// resolutionStatus derives the request status from the decision: emergencies
// are escalated, approval-gated requests stay pending, everything else is
// answered on the spot.
func resolutionStatus(d policy.Decision) string {
	switch {
	case d.Escalation == policy.EscalationEmergency:
		return StatusEscalated
	case d.RequiresApproval:
		return StatusPending
	default:
		return StatusCompleted
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CareRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*CareRequest, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
