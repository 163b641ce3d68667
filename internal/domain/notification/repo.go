package notification

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence interface for notification records.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Record, error)
	List(ctx context.Context, limit, offset int) ([]*Record, int, error)
}
