package events

import (
	"context"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// QuakeCatalog fetches raw seismic catalog records.
type QuakeCatalog interface {
	FetchQuakes(ctx context.Context, period, magnitude string) ([]domain.QuakeRecord, error)
}

// SeismicSource normalizes catalog records. Transport failures propagate.
type SeismicSource struct {
	catalog QuakeCatalog
}

// NewSeismicSource wraps a catalog client.
func NewSeismicSource(catalog QuakeCatalog) *SeismicSource {
	return &SeismicSource{catalog: catalog}
}

func (s *SeismicSource) Name() string { return "usgs" }

// Fetch drops records without a magnitude or with invalid coordinates.
func (s *SeismicSource) Fetch(ctx context.Context, _ domain.HazardType, period, magnitude string) ([]domain.HazardEvent, error) {
	records, err := s.catalog.FetchQuakes(ctx, period, magnitude)
	if err != nil {
		return nil, err
	}

	out := make([]domain.HazardEvent, 0, len(records))
	for _, rec := range records {
		if ev, ok := domain.NormalizeQuake(rec); ok {
			out = append(out, ev)
		}
	}
	return out, nil
}
