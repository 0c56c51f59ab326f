package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// DisasterFeed fetches the multi-hazard disaster feed.
type DisasterFeed interface {
	FetchDisasters(ctx context.Context) ([]domain.DisasterRecord, error)
}

// periodWindows bounds how far back a disaster may have ended and still be
// shown for a period selector.
var periodWindows = map[string]time.Duration{
	"hour":    time.Hour,
	"day":     24 * time.Hour,
	"week":    7 * 24 * time.Hour,
	"month":   30 * 24 * time.Hour,
	"year":    365 * 24 * time.Hour,
	"5years":  5 * 365 * 24 * time.Hour,
	"10years": 10 * 365 * 24 * time.Hour,
}

// DisasterSource filters the live disaster feed by hazard. Feed failures are
// logged and yield an empty list.
type DisasterSource struct {
	feed   DisasterFeed
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewDisasterSource wraps a feed client.
func NewDisasterSource(feed DisasterFeed, clock clockwork.Clock, logger *slog.Logger) *DisasterSource {
	return &DisasterSource{feed: feed, clock: clock, logger: logger}
}

func (s *DisasterSource) Name() string { return "gdacs" }

// Fetch keeps records of the hazard's event types, drops events that ended
// before the period window, and removes duplicate event ids.
func (s *DisasterSource) Fetch(ctx context.Context, hazard domain.HazardType, period, _ string) ([]domain.HazardEvent, error) {
	records, err := s.feed.FetchDisasters(ctx)
	if err != nil {
		s.logger.Warn("disaster feed fetch failed, returning no events", "error", err, "hazard", hazard)
		return []domain.HazardEvent{}, nil
	}

	var cutoff time.Time
	if w, ok := periodWindows[period]; ok {
		cutoff = s.clock.Now().Add(-w)
	}

	seen := make(map[string]bool, len(records))
	out := make([]domain.HazardEvent, 0, len(records))
	for _, rec := range records {
		if !cutoff.IsZero() && !rec.ToDate.IsZero() && rec.ToDate.Before(cutoff) {
			continue
		}
		ev, ok := domain.NormalizeDisaster(rec, hazard)
		if !ok || seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true
		out = append(out, ev)
	}
	return out, nil
}
