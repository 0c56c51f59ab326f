// Package usgs reads the USGS earthquake catalog.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// summaryPeriods are served by the rolling pre-aggregated feed.
var summaryPeriods = map[string]bool{"hour": true, "day": true, "week": true, "month": true}

// summaryMagnitudes are the feed's magnitude selectors.
var summaryMagnitudes = map[string]bool{"all": true, "1.0": true, "2.5": true, "4.5": true, "significant": true}

// queryYears maps multi-year periods onto the date-ranged query endpoint.
var queryYears = map[string]int{"year": 1, "5years": 5, "10years": 10}

// queryLimit bounds multi-year query results; the largest events come first.
const queryLimit = 1000

// significantMinSig is the USGS significance score behind the
// "significant" summary feeds.
const significantMinSig = 600

// Client fetches earthquakes from the summary feed or the query endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	queryURL   string
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient creates a catalog client. baseURL is the summary feed root,
// queryURL the fdsnws event query endpoint.
func NewClient(baseURL, queryURL string, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		queryURL:   queryURL,
		clock:      clock,
		logger:     logger,
	}
}

// FetchQuakes returns catalog records for period and magnitude selector.
// Periods of a year or more use the query endpoint; everything else uses
// the {magnitude}_{period}.geojson summary feed. Features that do not decode
// or lack coordinates are dropped.
func (c *Client) FetchQuakes(ctx context.Context, period, magnitude string) ([]domain.QuakeRecord, error) {
	var u string
	if years, ok := queryYears[period]; ok {
		u = c.queryURLFor(years, magnitude)
	} else {
		u = c.summaryURLFor(period, magnitude)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("usgs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("usgs API error: status %d: %s", resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := make([]domain.QuakeRecord, 0, len(fc.Features))
	dropped := 0
	for _, raw := range fc.Features {
		var f feature
		if err := json.Unmarshal(raw, &f); err != nil || len(f.Geometry.Coordinates) < 2 {
			dropped++
			continue
		}
		rec := domain.QuakeRecord{
			ID:        f.ID,
			Lng:       f.Geometry.Coordinates[0],
			Lat:       f.Geometry.Coordinates[1],
			Magnitude: f.Properties.Mag,
			Place:     f.Properties.Place,
			Time:      time.UnixMilli(f.Properties.Time).UTC(),
		}
		if len(f.Geometry.Coordinates) > 2 {
			rec.Depth = f.Geometry.Coordinates[2]
		}
		records = append(records, rec)
	}

	c.logger.Debug("usgs catalog fetched",
		"period", period,
		"magnitude", magnitude,
		"features", len(fc.Features),
		"dropped", dropped,
		"duration", c.clock.Since(start),
	)
	return records, nil
}

func (c *Client) summaryURLFor(period, magnitude string) string {
	if !summaryPeriods[period] {
		period = "day"
	}
	if !summaryMagnitudes[magnitude] {
		magnitude = "all"
	}
	return fmt.Sprintf("%s/%s_%s.geojson", c.baseURL, magnitude, period)
}

func (c *Client) queryURLFor(years int, magnitude string) string {
	now := c.clock.Now().UTC()
	params := url.Values{
		"format":    {"geojson"},
		"starttime": {now.AddDate(-years, 0, 0).Format("2006-01-02")},
		"endtime":   {now.Format("2006-01-02T15:04:05")},
		"orderby":   {"magnitude"},
		"limit":     {strconv.Itoa(queryLimit)},
	}
	switch magnitude {
	case "significant":
		params.Set("minsig", strconv.Itoa(significantMinSig))
	case "all", "":
	default:
		if m, err := strconv.ParseFloat(magnitude, 64); err == nil {
			params.Set("minmagnitude", strconv.FormatFloat(m, 'f', -1, 64))
		}
	}
	return c.queryURL + "?" + params.Encode()
}

// USGS GeoJSON response types. Features are decoded one at a time so a
// malformed feature is dropped on its own.

type featureCollection struct {
	Features []json.RawMessage `json:"features"`
}

type feature struct {
	ID         string     `json:"id"`
	Properties properties `json:"properties"`
	Geometry   geometry   `json:"geometry"`
}

type properties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  int64    `json:"time"` // epoch milliseconds
}

type geometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}
