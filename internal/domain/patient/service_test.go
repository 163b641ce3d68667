package patient

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) GetByHospitalID(ctx context.Context, hospitalID string) (*Patient, error) {
	for _, p := range m.patients {
		if p.HospitalID == hospitalID {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(ctx context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return ErrNotFound
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		items = append(items, p)
	}
	return items, len(items), nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

func TestCreatePatient(t *testing.T) {
	svc, repo := newTestService()
	p := &Patient{HospitalID: "P-1001", Name: "Margaret Hale", Ward: "ward-3"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if len(repo.patients) != 1 {
		t.Errorf("expected 1 patient stored, got %d", len(repo.patients))
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	svc, _ := newTestService()
	cases := []struct {
		name string
		p    *Patient
	}{
		{"missing hospital_id", &Patient{Name: "n", Ward: "w"}},
		{"missing name", &Patient{HospitalID: "P-1", Ward: "w"}},
		{"missing ward", &Patient{HospitalID: "P-1", Name: "n"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Create(context.Background(), tc.p); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetPatientByHospitalID(t *testing.T) {
	svc, _ := newTestService()
	p := &Patient{HospitalID: "P-2002", Name: "John Thornton", Ward: "ward-1"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetByHospitalID(context.Background(), "P-2002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("expected patient %s, got %s", p.ID, got.ID)
	}

	if _, err := svc.GetByHospitalID(context.Background(), "nope"); err == nil {
		t.Error("expected not found error")
	}
	if _, err := svc.GetByHospitalID(context.Background(), ""); err == nil {
		t.Error("expected validation error for empty hospital_id")
	}
}

func TestUpdatePatient(t *testing.T) {
	svc, repo := newTestService()
	p := &Patient{HospitalID: "P-3003", Name: "Ana", Ward: "ward-2"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.Ward = "icu"
	if err := svc.Update(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.patients[p.ID].Ward != "icu" {
		t.Errorf("expected ward icu, got %s", repo.patients[p.ID].Ward)
	}

	p.Name = ""
	if err := svc.Update(context.Background(), p); err == nil {
		t.Error("expected validation error for empty name")
	}
}
