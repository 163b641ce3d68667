package intake

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const requestCols = `id, patient_id, text, category, urgency, distress, confidence,
	matched_keywords, escalation, policy_tags, reasoning, requires_approval,
	estimated_response_seconds, response_text, status, needs_reconciliation, created_at`

func scanRequest(row pgx.Row) (*CareRequest, error) {
	var req CareRequest
	err := row.Scan(&req.ID, &req.PatientID, &req.Text, &req.Category, &req.Urgency, &req.Distress,
		&req.Confidence, &req.MatchedKeywords, &req.Escalation, &req.PolicyTags, &req.Reasoning,
		&req.RequiresApproval, &req.EstimatedResponse, &req.ResponseText, &req.Status,
		&req.NeedsReconciliation, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &req, err
}

func (r *repoPG) Create(ctx context.Context, req *CareRequest) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_requests (id, patient_id, text, category, urgency, distress,
			confidence, matched_keywords, escalation, policy_tags, reasoning,
			requires_approval, estimated_response_seconds, response_text, status,
			needs_reconciliation, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		req.ID, req.PatientID, req.Text, req.Category, req.Urgency, req.Distress,
		req.Confidence, req.MatchedKeywords, req.Escalation, req.PolicyTags, req.Reasoning,
		req.RequiresApproval, req.EstimatedResponse, req.ResponseText, req.Status,
		req.NeedsReconciliation, req.CreatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*CareRequest, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx, `SELECT `+requestCols+` FROM care_requests WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*CareRequest, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM care_requests WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+requestCols+` FROM care_requests WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*CareRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, rows.Err()
}

func (r *repoPG) RecentTexts(ctx context.Context, patientID uuid.UUID, n int) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT text FROM care_requests WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2`, patientID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

func (r *repoPG) MarkNeedsReconciliation(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE care_requests SET needs_reconciliation = TRUE WHERE id = $1`, id)
	return err
}
