package domain

// ChunkDetails carries three narrative strings explaining a cell's score.
type ChunkDetails struct {
	Prime     string `json:"prime"`
	Secondary string `json:"secondary"`
	Tertiary  string `json:"tertiary"`
}

// GridChunk is one cell of the analyzed image.
type GridChunk struct {
	ID        string       `json:"id"` // "row-col"
	Row       int          `json:"row"`
	Col       int          `json:"col"`
	RiskScore int          `json:"riskScore"`
	RiskLevel RiskLevel    `json:"riskLevel"`
	Reason    string       `json:"reason"`
	Details   ChunkDetails `json:"details"`
}

// TrendPoint is one sample of the 12-point temporal trend. Value1 and Value2
// are interpreted through HazardLabels.Unit1 and Unit2.
type TrendPoint struct {
	Time   string  `json:"time"`
	Value1 float64 `json:"value1"`
	Value2 float64 `json:"value2"`
}

// TrendLabels are the time labels of the 12-point temporal trend.
var TrendLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// DistributionPoint is one bucket of the 7-point magnitude/intensity distribution.
type DistributionPoint struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// FactorScore is one entry of the 3-way contributing-factor breakdown (0-100).
type FactorScore struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ReportData is the hazard-agnostic report attached to every analysis.
type ReportData struct {
	TemporalTrend    []TrendPoint        `json:"temporalTrend"`
	MagnitudeDist    []DistributionPoint `json:"magnitudeDist"`
	FactorComparison []FactorScore       `json:"factorComparison"`
	Justification    string              `json:"justification,omitempty"`
	Unit1            string              `json:"unit1,omitempty"`
	Unit2            string              `json:"unit2,omitempty"`
}

// AnalysisResult is the complete output of one image analysis. It is built
// fresh per request and never mutated after it is returned.
type AnalysisResult struct {
	ID             string      `json:"id"`
	Hazard         HazardType  `json:"hazard"`
	Rows           int         `json:"rows"`
	Cols           int         `json:"cols"`
	Chunks         []GridChunk `json:"chunks"`
	AverageRisk    int         `json:"averageRisk"`
	HighRiskCount  int         `json:"highRiskCount"`
	ReportData     ReportData  `json:"reportData"`
	IsAIVerified   bool        `json:"isAiVerified"`
	DetectedRegion string      `json:"detectedRegion,omitempty"`
	ErrorCode      ErrorCode   `json:"errorCode,omitempty"`
}

// CountHighRisk returns the number of chunks scoring above HighRiskThreshold.
func CountHighRisk(chunks []GridChunk) int {
	n := 0
	for _, c := range chunks {
		if c.RiskScore > HighRiskThreshold {
			n++
		}
	}
	return n
}

// HazardEvent is the unified event shape produced from every hazard source.
// Intensity is always normalized to [0,1] regardless of the source scale.
type HazardEvent struct {
	ID        string     `json:"id"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Magnitude float64    `json:"magnitude"`
	Intensity float64    `json:"intensity"`
	Label     string     `json:"label"`
	Details   string     `json:"details"`
	Type      HazardType `json:"type"`
}
