package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*ComplaintRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	repo := NewComplaintRepository(db)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock, func() { _ = db.Close() }
}

func complaintRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "text", "status", "sentiment", "category", "created_at"})
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(int64(2026101601)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS complaints").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateAssignsIDStatusAndTimestamp(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO complaints").
		WithArgs("My payment failed twice", "open", "neutral", "payment", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	c := &domain.Complaint{
		Text:      "My payment failed twice",
		Sentiment: domain.SentimentNeutral,
		Category:  domain.CategoryPayment,
	}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.ID != 42 || c.Status != domain.StatusOpen || !c.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected complaint after create: %+v", c)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateRejectsInvalidEnumsBeforeTouchingDB(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	err := repo.Create(context.Background(), &domain.Complaint{
		Text:      "text",
		Sentiment: domain.Sentiment("furious"),
		Category:  domain.CategoryOther,
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateRollsBackOnInsertFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO complaints").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	c := &domain.Complaint{Text: "x", Sentiment: domain.SentimentNeutral, Category: domain.CategoryOther}
	if err := repo.Create(context.Background(), c); err == nil {
		t.Fatalf("expected error")
	}
	if c.ID != 0 {
		t.Fatalf("id must stay unset on failure, got %d", c.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListFiltersByStatusAndCursor(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	status := domain.StatusOpen
	after := int64(5)
	mock.ExpectQuery(`FROM complaints WHERE status = \$1 AND id > \$2 ORDER BY id ASC`).
		WithArgs("open", int64(5)).
		WillReturnRows(complaintRows().
			AddRow(int64(6), "a", "open", "neutral", "other", fixedNow).
			AddRow(int64(9), "b", "open", "positive", "technical", fixedNow))

	got, err := repo.List(context.Background(), domain.ListFilter{Status: &status, AfterID: &after})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != 6 || got[1].ID != 9 {
		t.Fatalf("unexpected list result: %+v", got)
	}
	if got[1].Category != domain.CategoryTechnical {
		t.Fatalf("expected technical, got %q", got[1].Category)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListWithoutFiltersAppliesLimit(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`FROM complaints ORDER BY id ASC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(complaintRows())

	got, err := repo.List(context.Background(), domain.ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCloseTransitionsOpenComplaint(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE complaints").
		WithArgs(int64(7), "closed", "open").
		WillReturnRows(complaintRows().AddRow(int64(7), "t", "closed", "negative", "payment", fixedNow))
	mock.ExpectCommit()

	got, err := repo.Close(context.Background(), 7)
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got.Status != domain.StatusClosed {
		t.Fatalf("expected closed, got %q", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCloseReturnsNotFoundForUnknownID(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE complaints").
		WithArgs(int64(999), "closed", "open").
		WillReturnRows(complaintRows())
	mock.ExpectQuery("SELECT status FROM complaints").
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err := repo.Close(context.Background(), 999)
	if !domain.IsKind(err, domain.ErrComplaintNotFound) {
		t.Fatalf("expected ErrComplaintNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCloseReturnsAlreadyClosed(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE complaints").
		WithArgs(int64(3), "closed", "open").
		WillReturnRows(complaintRows())
	mock.ExpectQuery("SELECT status FROM complaints").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("closed"))
	mock.ExpectRollback()

	_, err := repo.Close(context.Background(), 3)
	if !domain.IsKind(err, domain.ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, text, status").
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 404)
	if !domain.IsKind(err, domain.ErrComplaintNotFound) {
		t.Fatalf("expected ErrComplaintNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
