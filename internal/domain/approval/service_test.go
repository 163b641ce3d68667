package approval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bedside/bedside/internal/domain/triage"
)

type mockRepo struct {
	entries map[uuid.UUID]*Entry

	// afterGet runs after GetByID returns, to squeeze a competing write in
	// between the read and the resolution.
	afterGet func()
}

func newMockRepo() *mockRepo {
	return &mockRepo{entries: make(map[uuid.UUID]*Entry)}
}

func (m *mockRepo) Create(ctx context.Context, e *Entry) error {
	m.entries[e.ID] = e
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *e
	if m.afterGet != nil {
		m.afterGet()
	}
	return &copied, nil
}

func (m *mockRepo) Update(ctx context.Context, e *Entry) error {
	if _, ok := m.entries[e.ID]; !ok {
		return ErrNotFound
	}
	copied := *e
	m.entries[e.ID] = &copied
	return nil
}

func (m *mockRepo) Resolve(ctx context.Context, e *Entry) error {
	stored, ok := m.entries[e.ID]
	if !ok || stored.Status != StatusPending {
		return ErrInvalidState
	}
	copied := *e
	m.entries[e.ID] = &copied
	return nil
}

func (m *mockRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Entry, int, error) {
	var items []*Entry
	for _, e := range m.entries {
		if e.Status == status {
			items = append(items, e)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var items []*Entry
	for _, e := range m.entries {
		if e.PatientID == patientID {
			items = append(items, e)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	var items []*Entry
	for _, e := range m.entries {
		items = append(items, e)
	}
	return items, len(items), nil
}

func (m *mockRepo) FindOverdue(ctx context.Context, now time.Time) ([]*Entry, error) {
	var items []*Entry
	for _, e := range m.entries {
		if e.Status == StatusPending && e.SLADeadline.Before(now) && e.EscalatedAt == nil {
			copied := *e
			items = append(items, &copied)
		}
	}
	return items, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func enqueueInput(urgency triage.Urgency, medication bool) EnqueueInput {
	return EnqueueInput{
		RequestID:   uuid.New(),
		PatientID:   uuid.New(),
		RequestText: "Can I have my pain medication?",
		Category:    triage.CategoryMedical,
		Urgency:     urgency,
		Medication:  medication,
	}
}

func TestEnqueue(t *testing.T) {
	svc, repo := newTestService()
	e, err := svc.Enqueue(context.Background(), enqueueInput(triage.UrgencyMedium, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Status != StatusPending {
		t.Errorf("expected pending, got %s", e.Status)
	}
	if !strings.HasPrefix(e.QueueRef, "APR-") {
		t.Errorf("unexpected queue ref %q", e.QueueRef)
	}
	if len(repo.entries) != 1 {
		t.Errorf("expected 1 stored entry, got %d", len(repo.entries))
	}

	deadline := time.Until(e.SLADeadline)
	if deadline < 29*time.Minute || deadline > 30*time.Minute {
		t.Errorf("expected ~30m SLA for medium urgency, got %s", deadline)
	}
}

func TestEnqueue_Assignment(t *testing.T) {
	svc, _ := newTestService()
	cases := []struct {
		name       string
		urgency    triage.Urgency
		medication bool
		want       string
	}{
		{"medication goes to primary nurse", triage.UrgencyMedium, true, AssigneePrimaryNurse},
		{"medication wins over critical", triage.UrgencyCritical, true, AssigneePrimaryNurse},
		{"critical goes to attending physician", triage.UrgencyCritical, false, AssigneeAttendingPhysician},
		{"default goes to primary nurse", triage.UrgencyLow, false, AssigneePrimaryNurse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := svc.Enqueue(context.Background(), enqueueInput(tc.urgency, tc.medication))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.AssignedRole != tc.want {
				t.Errorf("expected %s, got %s", tc.want, e.AssignedRole)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	svc, repo := newTestService()
	e, err := svc.Enqueue(context.Background(), enqueueInput(triage.UrgencyMedium, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolved, err := svc.Resolve(context.Background(), e.ID, StatusApproved, "nurse-1", "delivered")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Status != StatusApproved {
		t.Errorf("expected approved, got %s", resolved.Status)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != "nurse-1" {
		t.Error("expected resolved_by to be recorded")
	}
	if resolved.ResolvedAt == nil {
		t.Error("expected resolved_at to be set")
	}
	if repo.entries[e.ID].Status != StatusApproved {
		t.Errorf("expected stored entry approved, got %s", repo.entries[e.ID].Status)
	}
}

func TestResolve_InvalidState(t *testing.T) {
	svc, repo := newTestService()
	e, err := svc.Enqueue(context.Background(), enqueueInput(triage.UrgencyMedium, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), e.ID, StatusRejected, "nurse-1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second resolution must fail and leave the entry untouched.
	before := *repo.entries[e.ID]
	if _, err := svc.Resolve(context.Background(), e.ID, StatusApproved, "nurse-2", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	after := *repo.entries[e.ID]
	if after.Status != before.Status || *after.ResolvedBy != *before.ResolvedBy {
		t.Error("expected entry to be unchanged after invalid resolution")
	}
}

func TestResolve_ConcurrentResolutionDoesNotOverwrite(t *testing.T) {
	svc, repo := newTestService()
	e, err := svc.Enqueue(context.Background(), enqueueInput(triage.UrgencyMedium, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A competing resolution lands between the read and the write.
	repo.afterGet = func() {
		repo.afterGet = nil
		stored := repo.entries[e.ID]
		stored.Status = StatusRejected
		by := "nurse-1"
		stored.ResolvedBy = &by
	}

	if _, err := svc.Resolve(context.Background(), e.ID, StatusApproved, "nurse-2", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	stored := repo.entries[e.ID]
	if stored.Status != StatusRejected || *stored.ResolvedBy != "nurse-1" {
		t.Error("expected the first resolution to stand")
	}
}

func TestResolve_Validation(t *testing.T) {
	svc, _ := newTestService()
	e, err := svc.Enqueue(context.Background(), enqueueInput(triage.UrgencyMedium, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), e.ID, "done", "nurse-1", ""); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := svc.Resolve(context.Background(), e.ID, StatusApproved, "", ""); err == nil {
		t.Error("expected error for missing resolved_by")
	}
	if _, err := svc.Resolve(context.Background(), uuid.New(), StatusApproved, "nurse-1", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSweepOnce_EscalatesOverdue(t *testing.T) {
	svc, repo := newTestService()
	e, err := svc.Enqueue(context.Background(), enqueueInput(triage.UrgencyCritical, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Force the deadline into the past.
	repo.entries[e.ID].SLADeadline = time.Now().UTC().Add(-time.Minute)

	var breached []*Entry
	svc.SetBreachHandler(func(e *Entry) { breached = append(breached, e) })

	if err := svc.SweepOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(breached) != 1 {
		t.Fatalf("expected 1 breach, got %d", len(breached))
	}
	stored := repo.entries[e.ID]
	if stored.EscalatedAt == nil {
		t.Error("expected escalated_at to be set")
	}
	if stored.Status != StatusPending {
		t.Errorf("expected entry to stay pending, got %s", stored.Status)
	}

	// A second sweep must not re-escalate.
	breached = nil
	if err := svc.SweepOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(breached) != 0 {
		t.Errorf("expected no repeat escalation, got %d", len(breached))
	}
}

func TestSweepOnce_IgnoresFreshAndResolved(t *testing.T) {
	svc, repo := newTestService()
	fresh, err := svc.Enqueue(context.Background(), enqueueInput(triage.UrgencyLow, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolved, err := svc.Enqueue(context.Background(), enqueueInput(triage.UrgencyCritical, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	repo.entries[resolved.ID].SLADeadline = time.Now().UTC().Add(-time.Minute)
	if _, err := svc.Resolve(context.Background(), resolved.ID, StatusApproved, "nurse-1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var breached []*Entry
	svc.SetBreachHandler(func(e *Entry) { breached = append(breached, e) })
	if err := svc.SweepOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(breached) != 0 {
		t.Errorf("expected no breaches, got %d", len(breached))
	}
	if repo.entries[fresh.ID].EscalatedAt != nil {
		t.Error("expected fresh entry to stay unescalated")
	}
}
