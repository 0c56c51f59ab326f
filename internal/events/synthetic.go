package events

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// periodMultipliers scale the synthetic event count so longer windows show
// more activity. Unknown periods use the month multiplier.
var periodMultipliers = map[string]float64{
	"hour":  0.1,
	"day":   1,
	"week":  4,
	"month": 15,
}

const (
	syntheticBaseCount    = 3
	syntheticMaxRepeats   = 3
	longPeriodMultiplier  = 15
	syntheticJitterDeg    = 0.4
	syntheticIntensityDip = 0.03
)

var baseWildfires = []domain.HazardEvent{
	{ID: "wf-ca-001", Lat: 34.0522, Lng: -118.2437, Magnitude: 7.2, Intensity: 0.85, Label: "Pacific Palisades Wildfire",
		Details: "High-intensity wildfire threatening residential areas. Rapid spread due to dry conditions."},
	{ID: "wf-or-002", Lat: 43.8041, Lng: -120.5542, Magnitude: 6.8, Intensity: 0.75, Label: "Central Oregon Forest Fire",
		Details: "Large-scale forest fire burning through timber. Fire crews establishing containment lines."},
	{ID: "wf-nv-003", Lat: 39.5296, Lng: -119.8138, Magnitude: 5.5, Intensity: 0.65, Label: "Reno Hills Wildfire",
		Details: "Grassland fire advancing toward suburban communities. Air quality impact significant."},
	{ID: "wf-az-004", Lat: 33.4484, Lng: -112.0740, Magnitude: 6.2, Intensity: 0.70, Label: "Phoenix Metro Wildfire",
		Details: "Wildfire near urban interface. Multiple evacuation orders in effect."},
	{ID: "wf-co-005", Lat: 39.7392, Lng: -104.9903, Magnitude: 5.8, Intensity: 0.68, Label: "Colorado Front Range Fire",
		Details: "Mountain wildfire spreading through pine forest. Helicopter suppression operations active."},
}

var baseStorms = []domain.HazardEvent{
	{ID: "storm-gulf-001", Lat: 29.9511, Lng: -90.0715, Magnitude: 8.5, Intensity: 0.90, Label: "Gulf Coast Hurricane",
		Details: "Category 4 hurricane making landfall. Storm surge 15-20 feet expected."},
	{ID: "storm-atl-002", Lat: 32.0835, Lng: -81.0998, Magnitude: 7.2, Intensity: 0.78, Label: "Savannah Tropical Storm",
		Details: "Tropical storm bringing heavy rainfall and strong winds to coastal Georgia."},
	{ID: "storm-fl-003", Lat: 25.7617, Lng: -80.1918, Magnitude: 6.8, Intensity: 0.72, Label: "Miami Flood Event",
		Details: "Severe thunderstorm system causing urban flooding. Flash flood warnings active."},
	{ID: "storm-tx-004", Lat: 29.7604, Lng: -95.3698, Magnitude: 7.5, Intensity: 0.80, Label: "Houston Severe Weather",
		Details: "Complex storm system with tornado potential. Large hail and damaging winds reported."},
	{ID: "storm-nc-005", Lat: 35.2271, Lng: -80.8431, Magnitude: 6.5, Intensity: 0.68, Label: "Charlotte Storm System",
		Details: "Powerful cold front triggering severe thunderstorms. Widespread power outages reported."},
}

// SyntheticSource serves a curated list of sample events, repeated with a
// deterministic offset to simulate more activity over longer periods.
type SyntheticSource struct {
	base map[domain.HazardType][]domain.HazardEvent
}

// NewSyntheticSource returns the built-in wildfire and storm samples.
func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{base: map[domain.HazardType][]domain.HazardEvent{
		domain.HazardWildfire: baseWildfires,
		domain.HazardStorm:    baseStorms,
	}}
}

func (s *SyntheticSource) Name() string { return "synthetic" }

// Fetch returns floor(3 × multiplier) events, at most three passes over the
// base list.
func (s *SyntheticSource) Fetch(_ context.Context, hazard domain.HazardType, period, _ string) ([]domain.HazardEvent, error) {
	base := s.base[hazard]
	n := SyntheticCount(period, len(base))

	out := make([]domain.HazardEvent, 0, n)
	for i := range n {
		ev := base[i%len(base)]
		ev.Type = hazard
		if pass := i / len(base); pass > 0 {
			ev = jitter(ev, i, pass)
		}
		out = append(out, ev)
	}
	return out, nil
}

// SyntheticCount is the number of synthetic events for period given a base
// list of baseLen samples.
func SyntheticCount(period string, baseLen int) int {
	if baseLen == 0 {
		return 0
	}
	mult, ok := periodMultipliers[period]
	if !ok {
		mult = longPeriodMultiplier
	}
	return min(int(math.Floor(syntheticBaseCount*mult)), baseLen*syntheticMaxRepeats)
}

// jitter offsets a repeated sample around its original position and lowers
// its intensity slightly per pass.
func jitter(ev domain.HazardEvent, i, pass int) domain.HazardEvent {
	angle := float64(i) * 2.399963 // golden angle, radians
	r := syntheticJitterDeg * float64(pass)

	ev.ID = fmt.Sprintf("%s-%d", ev.ID, i)
	ev.Lat = round4(ev.Lat + r*math.Cos(angle))
	ev.Lng = round4(ev.Lng + r*math.Sin(angle))
	ev.Intensity = round4(math.Max(0, ev.Intensity-syntheticIntensityDip*float64(pass)))
	ev.Magnitude = math.Round((ev.Magnitude-0.2*float64(pass))*100) / 100
	return ev
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
