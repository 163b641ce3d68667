package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bedside/bedside/internal/domain/triage"
)

// slaMinutes maps request urgency to the minutes staff have to resolve the
// entry before it is escalated.
var slaMinutes = map[triage.Urgency]int{
	triage.UrgencyCritical: 5,
	triage.UrgencyHigh:     15,
	triage.UrgencyMedium:   30,
	triage.UrgencyLow:      60,
}

// EnqueueInput carries the request context needed to open an approval entry.
type EnqueueInput struct {
	RequestID   uuid.UUID
	PatientID   uuid.UUID
	RequestText string
	Category    triage.Category
	Urgency     triage.Urgency
	Medication  bool
}

// BreachHandler is invoked for each entry whose SLA deadline passes while it
// is still pending.
type BreachHandler func(e *Entry)

type Service struct {
	repo     Repository
	logger   zerolog.Logger
	onBreach BreachHandler
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// SetBreachHandler registers the callback fired on SLA breaches. Must be
// called before RunSLASweeper starts.
func (s *Service) SetBreachHandler(fn BreachHandler) {
	s.onBreach = fn
}

// Enqueue opens a pending approval entry for a request, assigning it to the
// responsible role and stamping an SLA deadline derived from urgency.
func (s *Service) Enqueue(ctx context.Context, in EnqueueInput) (*Entry, error) {
	if in.RequestID == uuid.Nil {
		return nil, fmt.Errorf("request_id is required")
	}
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}

	minutes, ok := slaMinutes[in.Urgency]
	if !ok {
		minutes = slaMinutes[triage.UrgencyLow]
	}
	now := time.Now().UTC()

	e := &Entry{
		ID:           uuid.New(),
		QueueRef:     newQueueRef(now),
		RequestID:    in.RequestID,
		PatientID:    in.PatientID,
		RequestText:  in.RequestText,
		Category:     in.Category,
		Urgency:      in.Urgency,
		AssignedRole: assignRole(in),
		Status:       StatusPending,
		SLADeadline:  now.Add(time.Duration(minutes) * time.Minute),
		CreatedAt:    now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// assignRole picks the staff role responsible for the entry. Medication
// requests go to the primary nurse; otherwise critical urgency pulls in the
// attending physician.
func assignRole(in EnqueueInput) string {
	if in.Medication {
		return AssigneePrimaryNurse
	}
	if in.Urgency == triage.UrgencyCritical {
		return AssigneeAttendingPhysician
	}
	return AssigneePrimaryNurse
}

// newQueueRef produces a human-readable queue reference, e.g.
// APR-20260831-1a2b3c4d.
func newQueueRef(now time.Time) string {
	return "APR-" + now.Format("20060102") + "-" + strings.Split(uuid.New().String(), "-")[0]
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Entry, int, error) {
	if status != "" {
		return s.repo.ListByStatus(ctx, status, limit, offset)
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Resolve transitions a pending entry to approved or rejected. Any other
// transition returns ErrInvalidState and leaves the entry unchanged.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, status, resolvedBy, note string) (*Entry, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, fmt.Errorf("status must be %s or %s", StatusApproved, StatusRejected)
	}
	if resolvedBy == "" {
		return nil, fmt.Errorf("resolved_by is required")
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusPending {
		return nil, ErrInvalidState
	}

	now := time.Now().UTC()
	e.Status = status
	e.ResolvedBy = &resolvedBy
	e.ResolvedAt = &now
	if note != "" {
		e.ResolutionNote = &note
	}
	if err := s.repo.Resolve(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// RunSLASweeper periodically escalates pending entries whose deadline has
// passed. It blocks until the context is cancelled and is meant to run in its
// own goroutine.
func (s *Service) RunSLASweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("approval SLA sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("approval SLA sweeper stopped")
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("SLA sweep failed")
			}
		}
	}
}

// SweepOnce escalates every overdue pending entry. The entry keeps its
// pending status so staff can still resolve it; escalated_at records the
// breach and suppresses repeat escalations.
func (s *Service) SweepOnce(ctx context.Context) error {
	overdue, err := s.repo.FindOverdue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	for _, e := range overdue {
		now := time.Now().UTC()
		e.EscalatedAt = &now
		if err := s.repo.Update(ctx, e); err != nil {
			s.logger.Error().Err(err).Str("queue_ref", e.QueueRef).Msg("failed to mark entry escalated")
			continue
		}
		s.logger.Warn().
			Str("queue_ref", e.QueueRef).
			Str("urgency", string(e.Urgency)).
			Time("sla_deadline", e.SLADeadline).
			Msg("approval SLA breached")
		if s.onBreach != nil {
			s.onBreach(e)
		}
	}
	return nil
}
