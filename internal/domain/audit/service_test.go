package audit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bedside/bedside/internal/domain/policy"
	"github.com/bedside/bedside/internal/domain/triage"
)

type mockStore struct {
	entries  map[string]*Entry
	failures int
}

func newMockStore() *mockStore {
	return &mockStore{entries: make(map[string]*Entry)}
}

func (m *mockStore) Create(ctx context.Context, e *Entry) error {
	if m.failures > 0 {
		m.failures--
		return errors.New("connection refused")
	}
	m.entries[e.LogRef] = e
	return nil
}

func (m *mockStore) GetByRef(ctx context.Context, logRef string) (*Entry, error) {
	e, ok := m.entries[logRef]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (m *mockStore) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	var items []*Entry
	for _, e := range m.entries {
		items = append(items, e)
	}
	return items, len(items), nil
}

func (m *mockStore) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var items []*Entry
	for _, e := range m.entries {
		if e.PatientID == patientID {
			items = append(items, e)
		}
	}
	return items, len(items), nil
}

func newTestService() (*Service, *mockStore) {
	store := newMockStore()
	return NewService(store, zerolog.Nop()), store
}

func testEntry() *Entry {
	return &Entry{
		RequestID:        uuid.New(),
		PatientID:        uuid.New(),
		QueryText:        "I'm having severe chest pain",
		Category:         triage.CategoryEmergency,
		Urgency:          triage.UrgencyCritical,
		Escalation:       policy.EscalationEmergency,
		PolicyTags:       []string{policy.TagEmergencyProtocol},
		Reasoning:        "Emergency detected",
		ResponseText:     "Help is on the way.",
		StaffNotified:    []string{"attending_physician", "primary_nurse"},
		ResolutionStatus: ResolutionEscalated,
	}
}

func TestRecord(t *testing.T) {
	svc, store := newTestService()
	e := testEntry()
	if err := svc.Record(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(e.LogRef, "LOG-") {
		t.Errorf("unexpected log ref %q", e.LogRef)
	}
	if e.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if len(store.entries) != 1 {
		t.Errorf("expected 1 stored entry, got %d", len(store.entries))
	}
}

func TestRecord_Validation(t *testing.T) {
	svc, _ := newTestService()

	e := testEntry()
	e.RequestID = uuid.Nil
	if err := svc.Record(context.Background(), e); err == nil {
		t.Error("expected error for missing request_id")
	}

	e = testEntry()
	e.PatientID = uuid.Nil
	if err := svc.Record(context.Background(), e); err == nil {
		t.Error("expected error for missing patient_id")
	}
}

func TestRecord_RetriesTransientFailure(t *testing.T) {
	svc, store := newTestService()
	store.failures = 2

	if err := svc.Record(context.Background(), testEntry()); err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if len(store.entries) != 1 {
		t.Errorf("expected 1 stored entry, got %d", len(store.entries))
	}
}

func TestRecord_ExhaustedRetriesFails(t *testing.T) {
	svc, store := newTestService()
	store.failures = 10

	if err := svc.Record(context.Background(), testEntry()); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if len(store.entries) != 0 {
		t.Errorf("expected no stored entries, got %d", len(store.entries))
	}
}

func TestRecord_SurvivesCancelledCaller(t *testing.T) {
	svc, store := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Record(ctx, testEntry()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.entries) != 1 {
		t.Errorf("expected entry despite cancelled caller context, got %d", len(store.entries))
	}
}

func TestGetByRef(t *testing.T) {
	svc, _ := newTestService()
	e := testEntry()
	if err := svc.Record(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetByRef(context.Background(), e.LogRef)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RequestID != e.RequestID {
		t.Errorf("expected request %s, got %s", e.RequestID, got.RequestID)
	}
	if _, err := svc.GetByRef(context.Background(), "LOG-nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
