package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

// QuakeRecord is one seismic catalog entry as decoded by the catalog client.
// Magnitude is nil when the catalog reports no magnitude.
type QuakeRecord struct {
	ID        string
	Lat       float64
	Lng       float64
	Depth     float64
	Magnitude *float64
	Place     string
	Time      time.Time
}

// DisasterRecord is one feature of the multi-hazard disaster feed.
type DisasterRecord struct {
	EventID      string
	EventType    string // TC, FL, WF, EQ, DR, VO
	Name         string
	Description  string
	AlertLevel   string // Green, Orange, Red
	Severity     *float64
	SeverityText string
	Class        string // e.g. "Point_Centroid", "Poly_Affected"
	GeometryType string // Point, Polygon, MultiPolygon
	// Coordinates holds [lng, lat] pairs: one for a point, the outer ring
	// vertices for polygons.
	Coordinates [][2]float64
	FromDate    time.Time
	ToDate      time.Time
}

// MaxMagnitude is the catalog magnitude that maps to intensity 1.
const MaxMagnitude = 9.0

// QuakeIntensity maps a catalog magnitude to [0,1]: min(magnitude/9, 1).
func QuakeIntensity(magnitude float64) float64 {
	return clampFloat(magnitude/MaxMagnitude, 0, 1)
}

// NormalizeQuake converts a catalog record. Records without a magnitude or
// with invalid coordinates are rejected.
func NormalizeQuake(rec QuakeRecord) (HazardEvent, bool) {
	if rec.ID == "" || rec.Magnitude == nil || !validLatLng(rec.Lat, rec.Lng) {
		return HazardEvent{}, false
	}
	mag := *rec.Magnitude
	return HazardEvent{
		ID:        rec.ID,
		Lat:       rec.Lat,
		Lng:       rec.Lng,
		Magnitude: mag,
		Intensity: QuakeIntensity(mag),
		Label:     rec.Place,
		Details:   fmt.Sprintf("Magnitude %s seismic activity detected.", strconv.FormatFloat(mag, 'f', -1, 64)),
		Type:      HazardSeismic,
	}, true
}

// disasterEventTypes lists the feed event codes shown for each hazard.
var disasterEventTypes = map[HazardType][]string{
	HazardWildfire: {"WF"},
	HazardStorm:    {"TC", "FL"},
	HazardSeismic:  {"EQ"},
}

// severityDivisors scale each event type's native severity onto a 0-10
// display magnitude: cyclone wind speed (km/h), flood severity index,
// burned area (ha), earthquake magnitude.
var severityDivisors = map[string]float64{
	"TC": 30,
	"FL": 0.3,
	"WF": 1000,
	"EQ": 1,
	"DR": 1,
	"VO": 1,
}

// alertIntensity maps the feed's three-tier alert level onto intensity.
var alertIntensity = map[string]float64{
	"green":  0.4,
	"orange": 0.7,
	"red":    1.0,
}

// DisasterEventTypes returns the feed event codes relevant to h.
func DisasterEventTypes(h HazardType) []string {
	return disasterEventTypes[h]
}

// AlertIntensity returns the intensity for a Green/Orange/Red alert level.
func AlertIntensity(level string) (float64, bool) {
	v, ok := alertIntensity[strings.ToLower(strings.TrimSpace(level))]
	return v, ok
}

// NormalizeDisaster converts a feed record for hazard h. Records of another
// event type, with an unknown alert level, or without usable geometry are
// rejected. Non-point geometry is accepted only for features tagged as a
// centroid; their position is the spherical centroid of the ring vertices.
func NormalizeDisaster(rec DisasterRecord, h HazardType) (HazardEvent, bool) {
	if rec.EventID == "" || !containsFold(DisasterEventTypes(h), rec.EventType) {
		return HazardEvent{}, false
	}

	intensity, ok := AlertIntensity(rec.AlertLevel)
	if !ok {
		return HazardEvent{}, false
	}

	var lat, lng float64
	switch {
	case rec.GeometryType == "Point" && len(rec.Coordinates) > 0:
		lng, lat = rec.Coordinates[0][0], rec.Coordinates[0][1]
	case strings.Contains(rec.Class, "Centroid"):
		lat, lng, ok = sphericalCentroid(rec.Coordinates)
		if !ok {
			return HazardEvent{}, false
		}
	default:
		return HazardEvent{}, false
	}
	if !validLatLng(lat, lng) {
		return HazardEvent{}, false
	}

	var magnitude float64
	if rec.Severity != nil {
		divisor := severityDivisors[strings.ToUpper(rec.EventType)]
		if divisor == 0 {
			divisor = 1
		}
		magnitude = math.Round(*rec.Severity/divisor*100) / 100
	}

	details := rec.Description
	if rec.SeverityText != "" {
		details = strings.TrimSpace(details + " " + rec.SeverityText)
	}

	return HazardEvent{
		ID:        strings.ToLower(rec.EventType) + "-" + rec.EventID,
		Lat:       lat,
		Lng:       lng,
		Magnitude: magnitude,
		Intensity: intensity,
		Label:     rec.Name,
		Details:   details,
		Type:      h,
	}, true
}

// ParseThreshold interprets a magnitude selector as a minimum intensity:
// "significant" → 0.7, "all" → 0, otherwise the number divided by 10.
// Unparseable selectors impose no threshold.
func ParseThreshold(selector string) float64 {
	switch s := strings.ToLower(strings.TrimSpace(selector)); s {
	case "significant":
		return 0.7
	case "all", "":
		return 0
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) {
			return 0
		}
		return v / 10
	}
}

// FilterEvents keeps events at or above minIntensity, preserving order, and
// truncates the result to limit entries (limit <= 0 means unlimited).
func FilterEvents(events []HazardEvent, minIntensity float64, limit int) []HazardEvent {
	out := make([]HazardEvent, 0, len(events))
	for _, e := range events {
		if e.Intensity < minIntensity {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// sphericalCentroid averages the ring vertices as unit vectors and projects
// the mean back onto the sphere. The closing vertex of a GeoJSON ring is
// skipped so it is not double counted.
func sphericalCentroid(coords [][2]float64) (lat, lng float64, ok bool) {
	n := len(coords)
	if n > 1 && coords[0] == coords[n-1] {
		n--
	}
	if n == 0 {
		return 0, 0, false
	}

	var sum r3.Vector
	for _, c := range coords[:n] {
		p := s2.PointFromLatLng(s2.LatLngFromDegrees(c[1], c[0]))
		sum = sum.Add(p.Vector)
	}
	if sum.Norm() == 0 {
		return 0, 0, false
	}

	ll := s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	return ll.Lat.Degrees(), ll.Lng.Degrees(), true
}

func validLatLng(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return s2.LatLngFromDegrees(lat, lng).IsValid()
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
