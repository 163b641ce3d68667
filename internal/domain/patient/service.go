package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.HospitalID == "" {
		return fmt.Errorf("hospital_id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Ward == "" {
		return fmt.Errorf("ward is required")
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByHospitalID(ctx context.Context, hospitalID string) (*Patient, error) {
	if hospitalID == "" {
		return nil, fmt.Errorf("hospital_id is required")
	}
	return s.repo.GetByHospitalID(ctx, hospitalID)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Ward == "" {
		return fmt.Errorf("ward is required")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}
