package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/complaints-api/internal/core/domain"
	"github.com/kirillkom/complaints-api/internal/core/ports"
)

// IntakeRecorder observes created complaints.
type IntakeRecorder interface {
	RecordComplaintCreated(sentiment, category string)
}

type IntakeUseCase struct {
	repo       ports.ComplaintRepository
	sentiment  ports.SentimentClassifier
	category   ports.CategoryClassifier
	dispatcher ports.GeoDispatcher
	recorder   IntakeRecorder
}

func NewIntakeUseCase(
	repo ports.ComplaintRepository,
	sentiment ports.SentimentClassifier,
	category ports.CategoryClassifier,
	dispatcher ports.GeoDispatcher,
	recorder IntakeRecorder,
) *IntakeUseCase {
	return &IntakeUseCase{
		repo:       repo,
		sentiment:  sentiment,
		category:   category,
		dispatcher: dispatcher,
		recorder:   recorder,
	}
}

// CreateComplaint classifies and persists a complaint, then hands
// geolocation off without waiting for it.
func (uc *IntakeUseCase) CreateComplaint(ctx context.Context, text, clientAddress string) (*domain.Complaint, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create complaint", domain.ErrEmptyText)
	}

	complaint := &domain.Complaint{
		Text:      text,
		Sentiment: uc.sentiment.Classify(text),
		Category:  uc.category.Classify(ctx, text).OrDefault(),
	}

	if err := uc.repo.Create(ctx, complaint); err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrPersistence, "create complaint", err)
	}

	if uc.recorder != nil {
		uc.recorder.RecordComplaintCreated(string(complaint.Sentiment), string(complaint.Category))
	}
	slog.InfoContext(ctx, "complaint_created",
		"complaint_id", complaint.ID,
		"sentiment", complaint.Sentiment,
		"category", complaint.Category,
	)

	if uc.dispatcher != nil && clientAddress != "" {
		uc.dispatcher.Dispatch(domain.GeoJob{
			ComplaintID:   complaint.ID,
			ClientAddress: clientAddress,
			CreatedAt:     complaint.CreatedAt,
		})
	}
	return complaint, nil
}
