package ports

import (
	"context"
	"io"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

// ComplaintRepository persists complaints and their lifecycle state.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id int64) (*domain.Complaint, error)
	List(ctx context.Context, filter domain.ListFilter) ([]domain.Complaint, error)
	Close(ctx context.Context, id int64) (*domain.Complaint, error)
}

// SentimentClassifier labels text polarity. It cannot fail.
type SentimentClassifier interface {
	Classify(text string) domain.Sentiment
}

// CategoryClassifier returns domain.CategoryUnknown when it cannot decide.
type CategoryClassifier interface {
	Classify(ctx context.Context, text string) domain.Category
}

// Completer sends a prompt to a text generation backend.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeoLocator resolves a client address; nil means unavailable.
type GeoLocator interface {
	Lookup(ctx context.Context, ip string) *domain.Location
}

// GeoCache stores resolved locations by address.
type GeoCache interface {
	Get(ctx context.Context, ip string) (*domain.Location, bool, error)
	Set(ctx context.Context, ip string, loc domain.Location) error
}

// GeoDispatcher hands a geolocation job off the request path. It must not block.
type GeoDispatcher interface {
	Dispatch(job domain.GeoJob) bool
}

// EventPublisher publishes complaint lifecycle events.
type EventPublisher interface {
	PublishComplaintCreated(ctx context.Context, event domain.ComplaintCreatedEvent) error
}

// EventSubscriber consumes complaint lifecycle events until ctx is done.
type EventSubscriber interface {
	SubscribeComplaintCreated(ctx context.Context, handler func(context.Context, domain.ComplaintCreatedEvent) error) error
}

// SpreadsheetWriter renders complaints as a spreadsheet.
type SpreadsheetWriter interface {
	WriteComplaints(w io.Writer, complaints []domain.Complaint) error
}
