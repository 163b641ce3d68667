package intake

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("care request not found")

type Repository interface {
	Create(ctx context.Context, req *CareRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*CareRequest, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*CareRequest, int, error)
	// RecentTexts returns the last n request texts for a patient, newest
	// first, for repeat-request detection.
	RecentTexts(ctx context.Context, patientID uuid.UUID, n int) ([]string, error)
	MarkNeedsReconciliation(ctx context.Context, id uuid.UUID) error
}
