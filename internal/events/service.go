// Package events fetches hazard events from per-hazard sources and returns
// them in the unified domain.HazardEvent shape, filtered by a magnitude
// selector and capped.
package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/observability"
)

// DefaultLimit caps the number of events returned per fetch.
const DefaultLimit = 50

// Source produces normalized events for one hazard.
type Source interface {
	// Name labels the source in logs and metrics.
	Name() string
	Fetch(ctx context.Context, hazard domain.HazardType, period, magnitude string) ([]domain.HazardEvent, error)
}

// Service routes event requests to the source registered for each hazard.
type Service struct {
	sources map[domain.HazardType]Source
	limit   int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a Service. A non-positive limit selects DefaultLimit.
func NewService(sources map[domain.HazardType]Source, limit int, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{sources: sources, limit: limit, logger: logger, metrics: metrics}
}

// FetchHazardEvents returns events for hazard over period whose intensity
// meets the magnitude selector. Only unrecoverable source failures are
// returned as errors; the events slice is never nil on success.
func (s *Service) FetchHazardEvents(ctx context.Context, hazard domain.HazardType, period, magnitude string) ([]domain.HazardEvent, error) {
	src, ok := s.sources[hazard]
	if !ok {
		return nil, fmt.Errorf("no event source for hazard %q", hazard)
	}

	events, err := src.Fetch(ctx, hazard, period, magnitude)
	if err != nil {
		s.metrics.EventFetches.WithLabelValues(string(hazard), src.Name(), "error").Inc()
		return nil, fmt.Errorf("fetch %s events from %s: %w", hazard, src.Name(), err)
	}
	s.metrics.EventFetches.WithLabelValues(string(hazard), src.Name(), "success").Inc()

	out := domain.FilterEvents(events, domain.ParseThreshold(magnitude), s.limit)
	s.metrics.EventsReturned.Observe(float64(len(out)))

	s.logger.Debug("hazard events fetched",
		"hazard", hazard,
		"source", src.Name(),
		"period", period,
		"magnitude", magnitude,
		"fetched", len(events),
		"returned", len(out),
	)
	return out, nil
}
