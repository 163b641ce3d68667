package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bedside/bedside/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) Store { return &storePG{pool: pool} }

func (s *storePG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

const entryCols = `id, log_ref, request_id, patient_id, query_text, category, urgency,
	escalation, policy_tags, reasoning, response_text, staff_notified,
	approval_required, resolution_status, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.LogRef, &e.RequestID, &e.PatientID, &e.QueryText, &e.Category,
		&e.Urgency, &e.Escalation, &e.PolicyTags, &e.Reasoning, &e.ResponseText, &e.StaffNotified,
		&e.ApprovalRequired, &e.ResolutionStatus, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &e, err
}

func (s *storePG) Create(ctx context.Context, e *Entry) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO audit_log (id, log_ref, request_id, patient_id, query_text, category,
			urgency, escalation, policy_tags, reasoning, response_text, staff_notified,
			approval_required, resolution_status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		e.ID, e.LogRef, e.RequestID, e.PatientID, e.QueryText, e.Category,
		e.Urgency, e.Escalation, e.PolicyTags, e.Reasoning, e.ResponseText, e.StaffNotified,
		e.ApprovalRequired, e.ResolutionStatus, e.CreatedAt)
	return err
}

func (s *storePG) GetByRef(ctx context.Context, logRef string) (*Entry, error) {
	return scanEntry(s.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM audit_log WHERE log_ref = $1`, logRef))
}

func (s *storePG) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+entryCols+` FROM audit_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return collectEntries(rows, total)
}

func (s *storePG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_log WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+entryCols+` FROM audit_log WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return collectEntries(rows, total)
}

func collectEntries(rows pgx.Rows, total int) ([]*Entry, int, error) {
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
