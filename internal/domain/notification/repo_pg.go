package notification

import (
	"context"

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

const recordCols = `id, request_id, recipient_id, recipient_role, channel, priority,
	status, attempts, last_error, created_at, sent_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.RequestID, &rec.RecipientID, &rec.RecipientRole, &rec.Channel,
		&rec.Priority, &rec.Status, &rec.Attempts, &rec.LastError, &rec.CreatedAt, &rec.SentAt)
	return &rec, err
}

func (s *storePG) Create(ctx context.Context, rec *Record) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO notifications (id, request_id, recipient_id, recipient_role, channel,
			priority, status, attempts, last_error, created_at, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		rec.ID, rec.RequestID, rec.RecipientID, rec.RecipientRole, rec.Channel,
		rec.Priority, rec.Status, rec.Attempts, rec.LastError, rec.CreatedAt, rec.SentAt)
	return err
}

func (s *storePG) Update(ctx context.Context, rec *Record) error {
	_, err := s.conn(ctx).Exec(ctx, `
		UPDATE notifications SET status=$2, attempts=$3, last_error=$4, sent_at=$5
		WHERE id = $1`,
		rec.ID, rec.Status, rec.Attempts, rec.LastError, rec.SentAt)
	return err
}

func (s *storePG) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Record, error) {
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+recordCols+` FROM notifications WHERE request_id = $1 ORDER BY created_at`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (s *storePG) List(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+recordCols+` FROM notifications ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}
