package enrichment

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kirillkom/complaints-api/internal/core/domain"
	"github.com/kirillkom/complaints-api/internal/core/ports"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewEventID returns a lexically sortable event identifier.
func NewEventID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// PublishHandler forwards jobs to an event bus for out-of-process workers.
func PublishHandler(publisher ports.EventPublisher) Handler {
	return func(ctx context.Context, job domain.GeoJob) error {
		return publisher.PublishComplaintCreated(ctx, domain.ComplaintCreatedEvent{
			EventID:       NewEventID(time.Now()),
			ComplaintID:   job.ComplaintID,
			ClientAddress: job.ClientAddress,
			CreatedAt:     job.CreatedAt,
		})
	}
}

// LocalHandler runs enrichment in-process.
func LocalHandler(enricher ports.GeoEnricher) Handler {
	return enricher.Enrich
}
