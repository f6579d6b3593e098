package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

func newTestRepo(t *testing.T) *ComplaintRepository {
	t.Helper()
	ctx := context.Background()
	db, err := OpenDB(ctx, filepath.Join(t.TempDir(), "complaints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewComplaintRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx), "schema must be idempotent")
	return repo
}

func create(t *testing.T, repo *ComplaintRepository, text string, s domain.Sentiment, c domain.Category) domain.Complaint {
	t.Helper()
	complaint := &domain.Complaint{Text: text, Sentiment: s, Category: c}
	require.NoError(t, repo.Create(context.Background(), complaint))
	return *complaint
}

func TestCreateAssignsIncreasingIDs(t *testing.T) {
	repo := newTestRepo(t)

	first := create(t, repo, "My payment failed twice", domain.SentimentNeutral, domain.CategoryPayment)
	second := create(t, repo, "Excellent support, thank you!", domain.SentimentPositive, domain.CategoryOther)

	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, domain.StatusOpen, first.Status)
	assert.False(t, first.CreatedAt.IsZero())

	got, err := repo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Text, got.Text)
	assert.Equal(t, domain.CategoryPayment, got.Category)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateRejectsInvalidCategory(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Create(context.Background(), &domain.Complaint{
		Text:      "text",
		Sentiment: domain.SentimentNeutral,
		Category:  domain.CategoryUnknown,
	})
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput), "got %v", err)

	all, err := repo.List(context.Background(), domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestListOpenAfterCursor(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := create(t, repo, "a", domain.SentimentNeutral, domain.CategoryOther)
	b := create(t, repo, "b", domain.SentimentNegative, domain.CategoryTechnical)
	c := create(t, repo, "c", domain.SentimentPositive, domain.CategoryPayment)
	_, err := repo.Close(ctx, b.ID)
	require.NoError(t, err)

	open := domain.StatusOpen
	got, err := repo.List(ctx, domain.ListFilter{Status: &open})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, c.ID, got[1].ID)

	got, err = repo.List(ctx, domain.ListFilter{Status: &open, AfterID: &a.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)

	got, err = repo.List(ctx, domain.ListFilter{Status: &open, AfterID: &c.ID})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.List(ctx, domain.ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}

func TestCloseSemantics(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := create(t, repo, "app crashes", domain.SentimentNegative, domain.CategoryTechnical)

	closed, err := repo.Close(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	assert.Equal(t, c.Text, closed.Text)

	_, err = repo.Close(ctx, c.ID)
	assert.True(t, domain.IsKind(err, domain.ErrAlreadyClosed), "got %v", err)

	_, err = repo.Close(ctx, 999)
	assert.True(t, domain.IsKind(err, domain.ErrComplaintNotFound), "got %v", err)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, got.Status)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetByID(context.Background(), 12345)
	assert.True(t, domain.IsKind(err, domain.ErrComplaintNotFound), "got %v", err)
}

func TestOpenDBCreatesMissingDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "nested", "complaints.db")

	db, err := OpenDB(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewComplaintRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))
	created := create(t, repo, "card declined", domain.SentimentNeutral, domain.CategoryPayment)
	assert.Positive(t, created.ID)
	assert.FileExists(t, path)
}

func TestIsMemoryPath(t *testing.T) {
	assert.True(t, isMemoryPath(":memory:"))
	assert.True(t, isMemoryPath("file::memory:?cache=shared"))
	assert.False(t, isMemoryPath("./data/complaints.db"))
}
