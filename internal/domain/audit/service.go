package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var writeBackoff = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}

type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Record assigns the entry a log reference and appends it to the trail. The
// write is detached from the caller's deadline so an abandoned HTTP request
// cannot lose its audit entry, and transient failures are retried before the
// error is surfaced.
func (s *Service) Record(ctx context.Context, e *Entry) error {
	if e.RequestID == uuid.Nil {
		return fmt.Errorf("request_id is required")
	}
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}

	now := time.Now().UTC()
	e.ID = uuid.New()
	e.LogRef = newLogRef(now)
	e.CreatedAt = now
	if e.PolicyTags == nil {
		e.PolicyTags = []string{}
	}
	if e.StaffNotified == nil {
		e.StaffNotified = []string{}
	}

	detached := context.WithoutCancel(ctx)
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = s.store.Create(detached, e)
		if lastErr == nil {
			return nil
		}
		if attempt >= len(writeBackoff) {
			break
		}
		s.logger.Warn().Err(lastErr).
			Str("log_ref", e.LogRef).
			Int("attempt", attempt+1).
			Msg("audit write failed, retrying")
		time.Sleep(writeBackoff[attempt])
	}
	return fmt.Errorf("audit write failed after retries: %w", lastErr)
}

// newLogRef produces a timestamped audit reference, e.g.
// LOG-20260831142501-1a2b3c4d.
func newLogRef(now time.Time) string {
	return "LOG-" + now.Format("20060102150405") + "-" + strings.Split(uuid.New().String(), "-")[0]
}

func (s *Service) GetByRef(ctx context.Context, logRef string) (*Entry, error) {
	return s.store.GetByRef(ctx, logRef)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	return s.store.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.store.ListByPatient(ctx, patientID, limit, offset)
}
