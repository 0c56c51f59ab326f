// Package gdacs reads the GDACS multi-hazard disaster feed.
package gdacs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// dateLayouts are tried in order; the feed omits the zone and is UTC.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Client fetches the GeoJSON event list.
type Client struct {
	httpClient *http.Client
	url        string
	logger     *slog.Logger
}

// NewClient creates a feed client for the GeoJSON endpoint at url.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		logger:     logger,
	}
}

// FetchDisasters returns every feature of the feed as a raw record. Features
// that do not decode or whose geometry cannot be read are dropped.
func (c *Client) FetchDisasters(ctx context.Context) ([]domain.DisasterRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gdacs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gdacs API error: status %d: %s", resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := make([]domain.DisasterRecord, 0, len(fc.Features))
	dropped := 0
	for _, raw := range fc.Features {
		var f feature
		if err := json.Unmarshal(raw, &f); err != nil {
			dropped++
			continue
		}
		coords, err := f.Geometry.ring()
		if err != nil {
			dropped++
			continue
		}
		p := f.Properties
		records = append(records, domain.DisasterRecord{
			EventID:      idString(p.EventID),
			EventType:    p.EventType,
			Name:         p.Name,
			Description:  p.Description,
			AlertLevel:   p.AlertLevel,
			Severity:     p.SeverityData.Severity,
			SeverityText: p.SeverityData.SeverityText,
			Class:        p.Class,
			GeometryType: f.Geometry.Type,
			Coordinates:  coords,
			FromDate:     parseDate(p.FromDate),
			ToDate:       parseDate(p.ToDate),
		})
	}

	if dropped > 0 {
		c.logger.Debug("gdacs features dropped", "count", dropped)
	}
	return records, nil
}

// GDACS GeoJSON response types.

type featureCollection struct {
	Features []json.RawMessage `json:"features"`
}

type feature struct {
	Properties properties `json:"properties"`
	Geometry   geometry   `json:"geometry"`
}

type properties struct {
	EventType    string       `json:"eventtype"`
	EventID      any          `json:"eventid"` // number or string
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	AlertLevel   string       `json:"alertlevel"`
	Class        string       `json:"Class"`
	FromDate     string       `json:"fromdate"`
	ToDate       string       `json:"todate"`
	SeverityData severityData `json:"severitydata"`
}

type severityData struct {
	Severity     *float64 `json:"severity"`
	SeverityText string   `json:"severitytext"`
	SeverityUnit string   `json:"severityunit"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ring returns the geometry as [lng, lat] pairs: the point itself, or the
// outer ring of the (first) polygon.
func (g geometry) ring() ([][2]float64, error) {
	switch g.Type {
	case "Point":
		var pt []float64
		if err := json.Unmarshal(g.Coordinates, &pt); err != nil {
			return nil, err
		}
		if len(pt) < 2 {
			return nil, fmt.Errorf("point has %d coordinates", len(pt))
		}
		return [][2]float64{{pt[0], pt[1]}}, nil
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, err
		}
		return outerRing(rings)
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return nil, err
		}
		if len(polys) == 0 {
			return nil, fmt.Errorf("empty multipolygon")
		}
		return outerRing(polys[0])
	default:
		return nil, fmt.Errorf("unsupported geometry %q", g.Type)
	}
}

func outerRing(rings [][][]float64) ([][2]float64, error) {
	if len(rings) == 0 || len(rings[0]) == 0 {
		return nil, fmt.Errorf("empty polygon")
	}
	out := make([][2]float64, 0, len(rings[0]))
	for _, v := range rings[0] {
		if len(v) < 2 {
			return nil, fmt.Errorf("vertex has %d coordinates", len(v))
		}
		out = append(out, [2]float64{v[0], v[1]})
	}
	return out, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
