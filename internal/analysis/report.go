package analysis

import (
	"math"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// MockReport builds the deterministic report used when the model supplies
// none. The curve shapes are fixed; only their level follows average.
func MockReport(h domain.HazardType, average int) domain.ReportData {
	l := h.Labels()
	avg := float64(average)

	trend := make([]domain.TrendPoint, len(domain.TrendLabels))
	for i, label := range domain.TrendLabels {
		phase := float64(i) * math.Pi / 6
		trend[i] = domain.TrendPoint{
			Time:   label,
			Value1: round1(math.Max(0, avg*0.6+10*math.Sin(phase))),
			Value2: round1(math.Max(0, avg*0.4+8*math.Cos(phase))),
		}
	}

	// Higher risk flattens the decay so large events keep more weight.
	decay := 1.2 - avg/100
	dist := make([]domain.DistributionPoint, len(l.DistributionLabels))
	for i, label := range l.DistributionLabels {
		dist[i] = domain.DistributionPoint{
			Label:       label,
			Probability: round1(100 * math.Exp(-decay*float64(i))),
		}
	}

	factors := make([]domain.FactorScore, len(l.FactorNames))
	for i, name := range l.FactorNames {
		factors[i] = domain.FactorScore{
			Name:  name,
			Value: math.Max(0, math.Min(100, avg+10-float64(i)*10)),
		}
	}

	return domain.ReportData{
		TemporalTrend:    trend,
		MagnitudeDist:    dist,
		FactorComparison: factors,
		Unit1:            l.Unit1,
		Unit2:            l.Unit2,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
