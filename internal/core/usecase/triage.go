package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirillkom/complaints-api/internal/core/domain"
	"github.com/kirillkom/complaints-api/internal/core/ports"
)

type TriageUseCase struct {
	repo   ports.ComplaintRepository
	writer ports.SpreadsheetWriter
}

func NewTriageUseCase(repo ports.ComplaintRepository, writer ports.SpreadsheetWriter) *TriageUseCase {
	return &TriageUseCase{repo: repo, writer: writer}
}

// ListOpenSince returns open complaints with id > lastID in ascending id
// order. A nil lastID returns every open complaint.
func (uc *TriageUseCase) ListOpenSince(ctx context.Context, lastID *int64) ([]domain.Complaint, error) {
	open := domain.StatusOpen
	complaints, err := uc.repo.List(ctx, domain.ListFilter{Status: &open, AfterID: lastID})
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "list open complaints", err)
	}
	return complaints, nil
}

func (uc *TriageUseCase) Close(ctx context.Context, id int64) (*domain.Complaint, error) {
	complaint, err := uc.repo.Close(ctx, id)
	if err != nil {
		return nil, passKnownKinds("close complaint", err)
	}
	slog.InfoContext(ctx, "complaint_closed", "complaint_id", id)
	return complaint, nil
}

func (uc *TriageUseCase) Get(ctx context.Context, id int64) (*domain.Complaint, error) {
	complaint, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, passKnownKinds("get complaint", err)
	}
	return complaint, nil
}

// Export writes complaints with the given status (all when nil) as a
// spreadsheet and returns the number of rows written.
func (uc *TriageUseCase) Export(ctx context.Context, w io.Writer, status *domain.Status) (int, error) {
	if uc.writer == nil {
		return 0, fmt.Errorf("export complaints: spreadsheet writer is not configured")
	}
	if status != nil && !status.Valid() {
		return 0, domain.WrapError(domain.ErrInvalidInput, "export complaints", &domain.EnumError{Field: "status", Value: string(*status)})
	}
	complaints, err := uc.repo.List(ctx, domain.ListFilter{Status: status})
	if err != nil {
		return 0, domain.WrapError(domain.ErrPersistence, "export complaints", err)
	}
	if err := uc.writer.WriteComplaints(w, complaints); err != nil {
		return 0, fmt.Errorf("export complaints: %w", err)
	}
	return len(complaints), nil
}

func passKnownKinds(op string, err error) error {
	switch {
	case domain.IsKind(err, domain.ErrComplaintNotFound),
		domain.IsKind(err, domain.ErrAlreadyClosed),
		domain.IsKind(err, domain.ErrInvalidInput):
		return err
	default:
		return domain.WrapError(domain.ErrPersistence, op, err)
	}
}
