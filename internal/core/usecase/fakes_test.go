package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

// memoryRepo mirrors the store contract in memory.
type memoryRepo struct {
	mu        sync.Mutex
	items     []domain.Complaint
	nextID    int64
	createErr error
	listErr   error
	created   []domain.Complaint
}

func (r *memoryRepo) Create(_ context.Context, c *domain.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *c)
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	c.ID = r.nextID
	c.Status = domain.StatusOpen
	c.CreatedAt = time.Date(2026, 10, 16, 10, 0, int(r.nextID), 0, time.UTC)
	r.items = append(r.items, *c)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id int64) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, domain.WrapError(domain.ErrComplaintNotFound, "get complaint", fmt.Errorf("id=%d", id))
}

func (r *memoryRepo) List(_ context.Context, filter domain.ListFilter) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Complaint, 0)
	for _, c := range r.items {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.AfterID != nil && c.ID <= *filter.AfterID {
			continue
		}
		out = append(out, c)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *memoryRepo) Close(_ context.Context, id int64) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID != id {
			continue
		}
		if r.items[i].Status == domain.StatusClosed {
			return nil, domain.WrapError(domain.ErrAlreadyClosed, "close complaint", fmt.Errorf("id=%d", id))
		}
		r.items[i].Status = domain.StatusClosed
		out := r.items[i]
		return &out, nil
	}
	return nil, domain.WrapError(domain.ErrComplaintNotFound, "close complaint", fmt.Errorf("id=%d", id))
}

type sentimentFake struct {
	label domain.Sentiment
	calls int
}

func (f *sentimentFake) Classify(string) domain.Sentiment {
	f.calls++
	return f.label
}

type categoryFake struct {
	label domain.Category
	calls int
}

func (f *categoryFake) Classify(context.Context, string) domain.Category {
	f.calls++
	return f.label
}

type dispatcherFake struct {
	jobs   []domain.GeoJob
	accept bool
}

func (f *dispatcherFake) Dispatch(job domain.GeoJob) bool {
	f.jobs = append(f.jobs, job)
	return f.accept
}

type intakeRecorderFake struct {
	created []string
}

func (f *intakeRecorderFake) RecordComplaintCreated(sentiment, category string) {
	f.created = append(f.created, sentiment+"/"+category)
}

type writerFake struct {
	rows []domain.Complaint
	err  error
}

func (f *writerFake) WriteComplaints(w io.Writer, complaints []domain.Complaint) error {
	if f.err != nil {
		return f.err
	}
	f.rows = complaints
	_, err := io.WriteString(w, "xlsx")
	return err
}

type locatorFake struct {
	loc   *domain.Location
	calls []string
}

func (f *locatorFake) Lookup(_ context.Context, ip string) *domain.Location {
	f.calls = append(f.calls, ip)
	return f.loc
}

type slowCompleter struct {
	delay time.Duration
}

func (c slowCompleter) Complete(context.Context, string) (string, error) {
	time.Sleep(c.delay)
	return "payment", nil
}
