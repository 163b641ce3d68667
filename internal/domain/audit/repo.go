package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("audit entry not found")

// Store is the append-only persistence interface for the audit trail. There
// is deliberately no update or delete.
type Store interface {
	Create(ctx context.Context, e *Entry) error
	GetByRef(ctx context.Context, logRef string) (*Entry, error)
	List(ctx context.Context, limit, offset int) ([]*Entry, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error)
}
