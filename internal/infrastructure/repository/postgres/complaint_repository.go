package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

const complaintColumns = `id, text, status, sentiment, category, created_at`

type ComplaintRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewComplaintRepository(db *sql.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *ComplaintRepository) EnsureSchema(ctx context.Context) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		// Serialize bootstrap DDL across api/worker startups.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101601)); err != nil {
			return fmt.Errorf("acquire schema lock: %w", err)
		}

		const query = `
CREATE TABLE IF NOT EXISTS complaints (
	id BIGSERIAL PRIMARY KEY,
	text TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed')),
	sentiment TEXT NOT NULL CHECK (sentiment IN ('positive', 'negative', 'neutral')),
	category TEXT NOT NULL CHECK (category IN ('technical', 'payment', 'other')),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_complaints_status_id ON complaints(status, id);
`
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("execute schema ddl: %w", err)
		}
		return nil
	})
}

func (r *ComplaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	complaint.Status = domain.StatusOpen
	complaint.CreatedAt = r.now()
	if err := complaint.Validate(); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "create complaint", err)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `
INSERT INTO complaints (text, status, sentiment, category, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id
`, complaint.Text, string(complaint.Status), string(complaint.Sentiment), string(complaint.Category), complaint.CreatedAt).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert complaint: %w", err)
		}
		complaint.ID = id
		return nil
	})
}

func (r *ComplaintRepository) GetByID(ctx context.Context, id int64) (*domain.Complaint, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id)
	complaint, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrComplaintNotFound, "get complaint", fmt.Errorf("id=%d", id))
		}
		return nil, fmt.Errorf("get complaint by id: %w", err)
	}
	return &complaint, nil
}

func (r *ComplaintRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Complaint, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AfterID != nil {
		args = append(args, *filter.AfterID)
		conds = append(conds, fmt.Sprintf("id > $%d", len(args)))
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Complaint, 0)
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		out = append(out, complaint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complaints: %w", err)
	}
	return out, nil
}

func (r *ComplaintRepository) Close(ctx context.Context, id int64) (*domain.Complaint, error) {
	var closed domain.Complaint
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
UPDATE complaints
SET status = $2
WHERE id = $1 AND status = $3
RETURNING `+complaintColumns, id, string(domain.StatusClosed), string(domain.StatusOpen))
		c, err := scanComplaint(row)
		if err == nil {
			closed = c
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("close complaint: %w", err)
		}

		var status string
		err = tx.QueryRowContext(ctx, `SELECT status FROM complaints WHERE id = $1`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrComplaintNotFound, "close complaint", fmt.Errorf("id=%d", id))
		}
		if err != nil {
			return fmt.Errorf("lookup complaint status: %w", err)
		}
		return domain.WrapError(domain.ErrAlreadyClosed, "close complaint", fmt.Errorf("id=%d status=%s", id, status))
	})
	if err != nil {
		return nil, err
	}
	return &closed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (domain.Complaint, error) {
	var (
		c                           domain.Complaint
		status, sentiment, category string
	)
	if err := row.Scan(&c.ID, &c.Text, &status, &sentiment, &category, &c.CreatedAt); err != nil {
		return domain.Complaint{}, err
	}
	c.Status = domain.Status(status)
	c.Sentiment = domain.Sentiment(sentiment)
	c.Category = domain.Category(category)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}
