package ports

import (
	"context"
	"io"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

// ComplaintIntake is the inbound contract for complaint creation.
type ComplaintIntake interface {
	CreateComplaint(ctx context.Context, text, clientAddress string) (*domain.Complaint, error)
}

// ComplaintTriage is the inbound contract for reading and closing complaints.
type ComplaintTriage interface {
	ListOpenSince(ctx context.Context, lastID *int64) ([]domain.Complaint, error)
	Close(ctx context.Context, id int64) (*domain.Complaint, error)
	Get(ctx context.Context, id int64) (*domain.Complaint, error)
	Export(ctx context.Context, w io.Writer, status *domain.Status) (int, error)
}

// GeoEnricher handles one detached geolocation job.
type GeoEnricher interface {
	Enrich(ctx context.Context, job domain.GeoJob) error
}
