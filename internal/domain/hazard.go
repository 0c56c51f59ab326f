package domain

import (
	"fmt"
	"strings"
)

// HazardType selects prompt templates, unit labels, and feed-filtering rules.
type HazardType string

const (
	HazardSeismic  HazardType = "seismic"
	HazardWildfire HazardType = "wildfire"
	HazardStorm    HazardType = "storm"
)

// HazardTypes lists every supported hazard in display order.
var HazardTypes = []HazardType{HazardSeismic, HazardWildfire, HazardStorm}

// ParseHazardType validates a hazard name. Matching is case-insensitive and
// ignores surrounding whitespace.
func ParseHazardType(s string) (HazardType, error) {
	switch h := HazardType(strings.ToLower(strings.TrimSpace(s))); h {
	case HazardSeismic, HazardWildfire, HazardStorm:
		return h, nil
	default:
		return "", fmt.Errorf("unknown hazard type %q", s)
	}
}

// RiskLevel is the four-tier label derived from a risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// HighRiskThreshold is the score above which a cell counts as high risk.
const HighRiskThreshold = 50

// LevelForScore maps a 0-100 score to its risk level:
// >80 Critical, >50 High, >20 Moderate, otherwise Low.
func LevelForScore(score int) RiskLevel {
	switch {
	case score > 80:
		return RiskCritical
	case score > HighRiskThreshold:
		return RiskHigh
	case score > 20:
		return RiskModerate
	default:
		return RiskLow
	}
}

// ErrorCode annotates an analysis whose AI enrichment failed.
type ErrorCode string

const (
	ErrorQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
	ErrorAPI           ErrorCode = "API_ERROR"
	ErrorUnknown       ErrorCode = "UNKNOWN"
)

// HazardLabels holds the hazard-specific vocabulary used by reports and prompts.
// The report shape is identical across hazards; only these labels change.
type HazardLabels struct {
	// Unit1 and Unit2 label ReportData.TemporalTrend value1/value2.
	Unit1 string
	Unit2 string

	// TrendKey1 and TrendKey2 are the field names the model uses for value1/value2.
	TrendKey1 string
	TrendKey2 string

	// DistributionKey is the label field name of each distribution bucket.
	DistributionKey    string
	DistributionLabels [7]string

	// FactorKeys are the JSON keys of the model's factor breakdown, FactorNames
	// their display names in the same order.
	FactorKeys  [3]string
	FactorNames [3]string

	// Persona is the system role given to the generative model.
	Persona string
}

var hazardLabels = map[HazardType]HazardLabels{
	HazardSeismic: {
		Unit1:              "Strain (µε)",
		Unit2:              "Activity (events)",
		TrendKey1:          "strain",
		TrendKey2:          "activity",
		DistributionKey:    "magnitude",
		DistributionLabels: [7]string{"M2", "M3", "M4", "M5", "M6", "M7", "M8+"},
		FactorKeys:         [3]string{"geological", "structural", "urban"},
		FactorNames:        [3]string{"Geological", "Structural", "Urban"},
		Persona:            "You are a senior seismologist and structural engineer assessing earthquake risk from map imagery.",
	},
	HazardWildfire: {
		Unit1:              "Fuel Moisture (%)",
		Unit2:              "Ignition Risk (%)",
		TrendKey1:          "fuelMoisture",
		TrendKey2:          "ignitionRisk",
		DistributionKey:    "class",
		DistributionLabels: [7]string{"A", "B", "C", "D", "E", "F", "G"},
		FactorKeys:         [3]string{"fuel", "weather", "terrain"},
		FactorNames:        [3]string{"Fuel", "Weather", "Terrain"},
		Persona:            "You are a wildfire behaviour analyst assessing fire risk from map imagery.",
	},
	HazardStorm: {
		Unit1:              "Precipitation (mm)",
		Unit2:              "Wind (km/h)",
		TrendKey1:          "precip",
		TrendKey2:          "wind",
		DistributionKey:    "category",
		DistributionLabels: [7]string{"TD", "TS", "C1", "C2", "C3", "C4", "C5"},
		FactorKeys:         [3]string{"hydrologic", "atmospheric", "infrastructure"},
		FactorNames:        [3]string{"Hydrologic", "Atmospheric", "Infrastructure"},
		Persona:            "You are a meteorologist and flood-risk engineer assessing storm risk from map imagery.",
	},
}

// Labels returns the vocabulary for h. Unknown hazards get the seismic labels.
func (h HazardType) Labels() HazardLabels {
	if l, ok := hazardLabels[h]; ok {
		return l
	}
	return hazardLabels[HazardSeismic]
}
