package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/complaints-api/internal/core/domain"
	"github.com/kirillkom/complaints-api/internal/core/ports"
)

// GeoEnrichUseCase resolves the client location of a stored complaint.
// Results are logged only; complaints are never modified.
type GeoEnrichUseCase struct {
	locator ports.GeoLocator
}

func NewGeoEnrichUseCase(locator ports.GeoLocator) *GeoEnrichUseCase {
	return &GeoEnrichUseCase{locator: locator}
}

func (uc *GeoEnrichUseCase) Enrich(ctx context.Context, job domain.GeoJob) error {
	loc := uc.locator.Lookup(ctx, job.ClientAddress)
	if loc == nil {
		slog.InfoContext(ctx, "complaint_geolocation_unavailable",
			"complaint_id", job.ComplaintID,
			"client_address", job.ClientAddress,
		)
		return nil
	}
	slog.InfoContext(ctx, "complaint_geolocated",
		"complaint_id", job.ComplaintID,
		"ip", loc.IP,
		"country", loc.Country,
		"city", loc.City,
	)
	return nil
}
