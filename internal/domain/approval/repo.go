package approval

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	Update(ctx context.Context, e *Entry) error
	// Resolve writes the resolution fields only if the stored entry is still
	// pending, returning ErrInvalidState otherwise. The guard lives in the
	// store so concurrent resolutions cannot overwrite each other.
	Resolve(ctx context.Context, e *Entry) error
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Entry, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error)
	List(ctx context.Context, limit, offset int) ([]*Entry, int, error)
	// FindOverdue returns pending entries whose SLA deadline has passed and
	// that have not been escalated yet.
	FindOverdue(ctx context.Context, now time.Time) ([]*Entry, error)
}
