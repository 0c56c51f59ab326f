package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/enrich"
	"github.com/couchcryptid/hazard-risk-service/internal/raster"
)

// aiGridRows and aiGridCols are the only grid shape the model's flat grid
// array maps onto.
const (
	aiGridRows = 3
	aiGridCols = 3
)

// MergeInput carries everything the merger combines.
type MergeInput struct {
	Hazard   domain.HazardType
	Location string
	Grid     raster.Grid
	Outcome  enrich.Outcome
}

// cellSource selects where a cell's score and narrative come from.
type cellSource int

const (
	sourcePixels cellSource = iota
	sourceKnowledge
	sourceAI
)

// Merge combines the local grid with the AI outcome. For every field AI data
// wins when present and the local value is used otherwise. Risk levels and
// the high-risk count are always recomputed from the merged scores.
//
// Without AI data, a seismic analysis with a location uses the regional
// knowledge base for cell scores; every other case scores cells from pixels.
// The model's grid only applies to 3×3 grids.
func Merge(in MergeInput, kb *domain.KnowledgeBase, rnd domain.Rand) domain.AnalysisResult {
	ai := in.Outcome.Data
	labels := in.Hazard.Labels()
	narrative := kb.Narrative(in.Hazard)

	source := sourcePixels
	var (
		profile      domain.SeismicProfile
		profileFound bool
	)
	switch {
	case ai != nil:
		source = sourceAI
	case in.Hazard == domain.HazardSeismic && strings.TrimSpace(in.Location) != "":
		source = sourceKnowledge
		profile, profileFound = kb.Lookup(in.Location)
	}

	aiGridApplies := ai != nil && in.Grid.Rows == aiGridRows && in.Grid.Cols == aiGridCols

	chunks := make([]domain.GridChunk, 0, len(in.Grid.Cells))
	total := 0
	for i, cell := range in.Grid.Cells {
		score := cell.Score
		var (
			reason  string
			details domain.ChunkDetails
		)

		switch source {
		case sourceAI:
			if aiGridApplies {
				if v, ok := ai.GridValue(i); ok {
					score = v
				}
			}
			reason = firstNonEmpty(ai.Justification, narrative.Reason)
			details = factorDetails(ai.Factors, narrative, rnd)
		case sourceKnowledge:
			baseline := domain.DefaultBaselineRisk
			if profileFound {
				baseline = profile.BaselineRisk
				details = domain.ProfileDetails(profile, narrative, rnd)
			} else {
				details = domain.GenericDetails(narrative, rnd)
			}
			score = domain.SeedScore(baseline, rnd)
			reason = details.Prime
		default:
			details = domain.GenericDetails(narrative, rnd)
			reason = narrative.Reason
		}

		chunks = append(chunks, domain.GridChunk{
			ID:        cell.ID(),
			Row:       cell.Row,
			Col:       cell.Col,
			RiskScore: score,
			RiskLevel: domain.LevelForScore(score),
			Reason:    reason,
			Details:   details,
		})
		total += score
	}

	average := 0
	if len(chunks) > 0 {
		average = int(math.Round(float64(total) / float64(len(chunks))))
	}
	if ai != nil && ai.HazardLevel != nil {
		average = *ai.HazardLevel
	}

	mock := MockReport(in.Hazard, average)
	report := domain.ReportData{
		TemporalTrend:    mock.TemporalTrend,
		MagnitudeDist:    mock.MagnitudeDist,
		FactorComparison: mock.FactorComparison,
		Unit1:            labels.Unit1,
		Unit2:            labels.Unit2,
	}

	result := domain.AnalysisResult{
		Hazard:       in.Hazard,
		Rows:         in.Grid.Rows,
		Cols:         in.Grid.Cols,
		Chunks:       chunks,
		AverageRisk:  average,
		IsAIVerified: ai != nil,
		ErrorCode:    in.Outcome.ErrorCode,
	}

	if ai != nil {
		report.TemporalTrend = overlay(ai.Trend, mock.TemporalTrend)
		report.MagnitudeDist = overlay(ai.Distribution, mock.MagnitudeDist)
		report.FactorComparison = overlay(ai.Factors, mock.FactorComparison)
		report.Justification = ai.Justification
		result.DetectedRegion = ai.Region
	}
	if report.Justification == "" {
		report.Justification = localJustification(in, average, report.FactorComparison, profile, profileFound)
	}

	result.ReportData = report
	result.HighRiskCount = domain.CountHighRisk(chunks)
	return result
}

// overlay returns base with its leading entries replaced by series. The
// result always has len(base) entries.
func overlay[T any](series, base []T) []T {
	out := make([]T, len(base))
	copy(out, base)
	copy(out, series)
	return out
}

// factorDetails describes the model's factor scores, falling back to the
// generic narrative for factors the model did not supply.
func factorDetails(factors []domain.FactorScore, n domain.Narrative, rnd domain.Rand) domain.ChunkDetails {
	d := domain.GenericDetails(n, rnd)
	slots := []*string{&d.Prime, &d.Secondary, &d.Tertiary}
	for i, f := range factors {
		if i == len(slots) {
			break
		}
		*slots[i] = fmt.Sprintf("%s factor rated %.0f/100 by AI assessment.", f.Name, f.Value)
	}
	return d
}

// localJustification explains a result produced without an AI opinion.
func localJustification(in MergeInput, average int, factors []domain.FactorScore, profile domain.SeismicProfile, profileFound bool) string {
	level := domain.LevelForScore(average)
	dominant := dominantFactor(factors)

	switch code := in.Outcome.ErrorCode; {
	case code == domain.ErrorQuotaExceeded:
		return fmt.Sprintf(
			"Low-power mode: the AI quota is exhausted, so this assessment uses local map analysis only. "+
				"Average risk is %d (%s), driven mainly by %s factors. Try again in about 20 seconds for an AI-verified report.",
			average, level, strings.ToLower(dominant))
	case code != "":
		return fmt.Sprintf(
			"AI verification is unavailable, so this assessment uses local map analysis only. Average risk is %d (%s).",
			average, level)
	case profileFound:
		return fmt.Sprintf("%s Regional baseline risk is %d; average cell risk is %d (%s).",
			profile.Description, profile.BaselineRisk, average, level)
	default:
		return fmt.Sprintf("Local analysis of %d map cells. Average risk is %d (%s), driven mainly by %s factors.",
			len(in.Grid.Cells), average, level, strings.ToLower(dominant))
	}
}

func dominantFactor(factors []domain.FactorScore) string {
	best := domain.FactorScore{Value: -1}
	for _, f := range factors {
		if f.Value > best.Value {
			best = f
		}
	}
	if best.Name == "" {
		return "local"
	}
	return best.Name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
