package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

const complaintColumns = `id, text, status, sentiment, category, created_at`

type ComplaintRepository struct {
	db  *sql.DB
	now func() time.Time
}

// OpenDB opens a SQLite database with WAL mode enabled, creating the
// parent directory of a file path. Writes are serialized through a single
// connection.
func OpenDB(ctx context.Context, path string) (*sql.DB, error) {
	if !isMemoryPath(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, nil
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:") || strings.Contains(path, "mode=memory")
}

func NewComplaintRepository(db *sql.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *ComplaintRepository) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS complaints (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed')),
	sentiment TEXT NOT NULL CHECK (sentiment IN ('positive', 'negative', 'neutral')),
	category TEXT NOT NULL CHECK (category IN ('technical', 'payment', 'other')),
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_complaints_status_id ON complaints(status, id);
`
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
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
		res, err := tx.ExecContext(ctx, `
INSERT INTO complaints (text, status, sentiment, category, created_at)
VALUES (?,?,?,?,?)
`, complaint.Text, string(complaint.Status), string(complaint.Sentiment), string(complaint.Category),
			complaint.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert complaint: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		complaint.ID = id
		return nil
	})
}

func (r *ComplaintRepository) GetByID(ctx context.Context, id int64) (*domain.Complaint, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = ?`, id)
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
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.AfterID != nil {
		conds = append(conds, "id > ?")
		args = append(args, *filter.AfterID)
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
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
		c, err := scanComplaint(tx.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrComplaintNotFound, "close complaint", fmt.Errorf("id=%d", id))
		}
		if err != nil {
			return fmt.Errorf("lookup complaint: %w", err)
		}
		if c.Status == domain.StatusClosed {
			return domain.WrapError(domain.ErrAlreadyClosed, "close complaint", fmt.Errorf("id=%d", id))
		}

		if _, err := tx.ExecContext(ctx, `UPDATE complaints SET status = ? WHERE id = ?`, string(domain.StatusClosed), id); err != nil {
			return fmt.Errorf("close complaint: %w", err)
		}
		c.Status = domain.StatusClosed
		closed = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &closed, nil
}

func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (domain.Complaint, error) {
	var (
		c                                      domain.Complaint
		status, sentiment, category, createdAt string
	)
	if err := row.Scan(&c.ID, &c.Text, &status, &sentiment, &category, &createdAt); err != nil {
		return domain.Complaint{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.Complaint{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	c.Status = domain.Status(status)
	c.Sentiment = domain.Sentiment(sentiment)
	c.Category = domain.Category(category)
	c.CreatedAt = ts
	return c, nil
}
