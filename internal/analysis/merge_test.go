package analysis

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/enrich"
	"github.com/couchcryptid/hazard-risk-service/internal/raster"
)

func makeGrid(rows, cols int, scores ...int) raster.Grid {
	g := raster.Grid{Rows: rows, Cols: cols}
	total := 0
	for r := range rows {
		for c := range cols {
			s := scores[(r*cols+c)%len(scores)]
			g.Cells = append(g.Cells, raster.Cell{Row: r, Col: c, Score: s})
			total += s
		}
	}
	g.Average = total / (rows * cols)
	return g
}

func intPtr(v int) *int { return &v }

func chunkScores(chunks []domain.GridChunk) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = c.RiskScore
	}
	return out
}

func assertInvariants(t *testing.T, res domain.AnalysisResult) {
	t.Helper()
	require.Len(t, res.Chunks, res.Rows*res.Cols)
	high := 0
	for _, c := range res.Chunks {
		assert.Equal(t, domain.LevelForScore(c.RiskScore), c.RiskLevel, "chunk %s", c.ID)
		assert.Equal(t, fmt.Sprintf("%d-%d", c.Row, c.Col), c.ID)
		if c.RiskScore > 50 {
			high++
		}
	}
	assert.Equal(t, high, res.HighRiskCount)
	assert.Len(t, res.ReportData.TemporalTrend, 12)
	assert.Len(t, res.ReportData.MagnitudeDist, 7)
	assert.Len(t, res.ReportData.FactorComparison, 3)
	assert.NotEmpty(t, res.ReportData.Justification)
}

func TestMerge_PixelsOnly(t *testing.T) {
	kb := domain.DefaultKnowledgeBase()
	grid := makeGrid(2, 2, 100, 29, 8, 73)

	res := Merge(MergeInput{Hazard: domain.HazardWildfire, Grid: grid}, kb, domain.NewSeededRand(1))

	assertInvariants(t, res)
	assert.Equal(t, []int{100, 29, 8, 73}, chunkScores(res.Chunks))
	assert.Equal(t, 53, res.AverageRisk) // (100+29+8+73)/4 = 52.5
	assert.Equal(t, 2, res.HighRiskCount)
	assert.False(t, res.IsAIVerified)
	assert.Empty(t, res.ErrorCode)
	assert.Empty(t, res.DetectedRegion)
	assert.Equal(t, domain.HazardWildfire, res.Hazard)

	narrative := kb.Narrative(domain.HazardWildfire)
	for _, c := range res.Chunks {
		assert.Equal(t, narrative.Reason, c.Reason)
		assert.Contains(t, narrative.Prime, c.Details.Prime)
		assert.Contains(t, narrative.Secondary, c.Details.Secondary)
		assert.Contains(t, narrative.Tertiary, c.Details.Tertiary)
	}

	labels := domain.HazardWildfire.Labels()
	assert.Equal(t, labels.Unit1, res.ReportData.Unit1)
	assert.Equal(t, labels.Unit2, res.ReportData.Unit2)
	assert.Equal(t, MockReport(domain.HazardWildfire, 53).TemporalTrend, res.ReportData.TemporalTrend)
	assert.Contains(t, res.ReportData.Justification, "Local analysis of 4 map cells")
}

func TestMerge_SeismicWithoutLocationUsesPixels(t *testing.T) {
	grid := makeGrid(3, 3, 8)
	res := Merge(MergeInput{Hazard: domain.HazardSeismic, Location: "   ", Grid: grid},
		domain.DefaultKnowledgeBase(), domain.NewSeededRand(2))

	assertInvariants(t, res)
	assert.Equal(t, slices.Repeat([]int{8}, 9), chunkScores(res.Chunks))
	assert.Equal(t, 8, res.AverageRisk)
}

func TestMerge_KnowledgeSicily(t *testing.T) {
	kb := domain.DefaultKnowledgeBase()
	profile, ok := kb.Lookup("sicily")
	require.True(t, ok)

	for seed := range uint64(20) {
		res := Merge(MergeInput{
			Hazard:   domain.HazardSeismic,
			Location: "Sicily, Italy",
			Grid:     makeGrid(3, 3, 8), // pixel scores are ignored on this path
		}, kb, domain.NewSeededRand(seed))

		assertInvariants(t, res)
		assert.False(t, res.IsAIVerified)
		assert.Empty(t, res.ErrorCode)
		assert.GreaterOrEqual(t, res.AverageRisk, 70)
		assert.LessOrEqual(t, res.AverageRisk, 99)

		for _, c := range res.Chunks {
			assert.GreaterOrEqual(t, c.RiskScore, 70)
			assert.LessOrEqual(t, c.RiskScore, 99)
			assert.Contains(t, profile.GeologicalFactors, c.Details.Prime)
			assert.Contains(t, profile.StructuralThemes, c.Details.Secondary)
			assert.Contains(t, kb.Narrative(domain.HazardSeismic).Tertiary, c.Details.Tertiary)
			assert.Equal(t, c.Details.Prime, c.Reason)
		}
		assert.True(t, strings.HasPrefix(res.ReportData.Justification, profile.Description))
	}
}

func TestMerge_KnowledgeUnknownRegionUsesDefaultBaseline(t *testing.T) {
	kb := domain.DefaultKnowledgeBase()
	narrative := kb.Narrative(domain.HazardSeismic)

	res := Merge(MergeInput{
		Hazard:   domain.HazardSeismic,
		Location: "Reykjavik",
		Grid:     makeGrid(4, 4, 100),
	}, kb, domain.NewSeededRand(7))

	assertInvariants(t, res)
	for _, c := range res.Chunks {
		assert.GreaterOrEqual(t, c.RiskScore, domain.DefaultBaselineRisk-15)
		assert.LessOrEqual(t, c.RiskScore, domain.DefaultBaselineRisk+15)
		assert.Contains(t, narrative.Prime, c.Details.Prime)
	}
}

func fullAIResponse() *enrich.Response {
	grid := map[int]int{}
	for i, v := range []int{90, 85, 81, 80, 51, 50, 21, 20, 0} {
		grid[i] = v
	}
	return &enrich.Response{
		Region:        "Eastern Sicily",
		HazardLevel:   intPtr(77),
		Grid:          grid,
		Justification: "Active faulting and dense historic masonry.",
		Trend:         aiTrend(12),
		Distribution:  aiDistribution(7),
		Factors: []domain.FactorScore{
			{Name: "Geological", Value: 88},
			{Name: "Structural", Value: 70},
			{Name: "Urban", Value: 65},
		},
	}
}

func aiTrend(n int) []domain.TrendPoint {
	out := make([]domain.TrendPoint, n)
	for i := range out {
		out[i] = domain.TrendPoint{Time: domain.TrendLabels[i], Value1: float64(i + 1), Value2: float64(2 * i)}
	}
	return out
}

func aiDistribution(n int) []domain.DistributionPoint {
	out := make([]domain.DistributionPoint, n)
	for i := range out {
		out[i] = domain.DistributionPoint{Label: fmt.Sprintf("M%d", i+2), Probability: float64(60 - 5*i)}
	}
	return out
}

func TestMerge_AIFullGrid(t *testing.T) {
	ai := fullAIResponse()
	res := Merge(MergeInput{
		Hazard:   domain.HazardSeismic,
		Location: "Sicily",
		Grid:     makeGrid(3, 3, 8),
		Outcome:  enrich.Outcome{Data: ai},
	}, domain.DefaultKnowledgeBase(), domain.NewSeededRand(3))

	assert.True(t, res.IsAIVerified)
	assert.Empty(t, res.ErrorCode)
	assert.Equal(t, []int{90, 85, 81, 80, 51, 50, 21, 20, 0}, chunkScores(res.Chunks))

	wantLevels := []domain.RiskLevel{
		domain.RiskCritical, domain.RiskCritical, domain.RiskCritical,
		domain.RiskHigh, domain.RiskHigh, domain.RiskModerate,
		domain.RiskModerate, domain.RiskLow, domain.RiskLow,
	}
	for i, c := range res.Chunks {
		assert.Equal(t, wantLevels[i], c.RiskLevel, "chunk %s", c.ID)
		assert.Equal(t, ai.Justification, c.Reason)
		assert.Equal(t, "Geological factor rated 88/100 by AI assessment.", c.Details.Prime)
	}

	assert.Equal(t, 77, res.AverageRisk)
	assert.Equal(t, 5, res.HighRiskCount)
	assert.Equal(t, "Eastern Sicily", res.DetectedRegion)

	want := domain.ReportData{
		TemporalTrend:    ai.Trend,
		MagnitudeDist:    ai.Distribution,
		FactorComparison: ai.Factors,
		Justification:    ai.Justification,
		Unit1:            "Strain (µε)",
		Unit2:            "Activity (events)",
	}
	if diff := cmp.Diff(want, res.ReportData); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_AIPartialData(t *testing.T) {
	ai := &enrich.Response{Grid: map[int]int{0: 95, 4: 60}}
	res := Merge(MergeInput{
		Hazard:  domain.HazardStorm,
		Grid:    makeGrid(3, 3, 10),
		Outcome: enrich.Outcome{Data: ai},
	}, domain.DefaultKnowledgeBase(), domain.NewSeededRand(4))

	assertInvariants(t, res)
	assert.True(t, res.IsAIVerified)
	assert.Equal(t, []int{95, 10, 10, 10, 60, 10, 10, 10, 10}, chunkScores(res.Chunks))
	assert.Equal(t, 25, res.AverageRisk) // (95+60+7*10)/9 = 25
	assert.Equal(t, 2, res.HighRiskCount)

	// Report sections the model omitted come from the mock report.
	mock := MockReport(domain.HazardStorm, 25)
	assert.Equal(t, mock.TemporalTrend, res.ReportData.TemporalTrend)
	assert.Equal(t, mock.FactorComparison, res.ReportData.FactorComparison)

	narrative := domain.DefaultKnowledgeBase().Narrative(domain.HazardStorm)
	assert.Equal(t, narrative.Reason, res.Chunks[0].Reason)
}

func TestMerge_AIShortSeriesPaddedFromMock(t *testing.T) {
	ai := &enrich.Response{
		HazardLevel:  intPtr(40),
		Trend:        aiTrend(2),
		Distribution: aiDistribution(1),
		Factors:      []domain.FactorScore{{Name: "Hydrological", Value: 91}},
	}
	res := Merge(MergeInput{
		Hazard:  domain.HazardStorm,
		Grid:    makeGrid(3, 3, 10),
		Outcome: enrich.Outcome{Data: ai},
	}, domain.DefaultKnowledgeBase(), domain.NewSeededRand(5))

	assertInvariants(t, res)
	mock := MockReport(domain.HazardStorm, 40)

	trend := res.ReportData.TemporalTrend
	assert.Equal(t, ai.Trend, trend[:2])
	assert.Equal(t, mock.TemporalTrend[2:], trend[2:])

	dist := res.ReportData.MagnitudeDist
	assert.Equal(t, ai.Distribution[0], dist[0])
	assert.Equal(t, mock.MagnitudeDist[1:], dist[1:])

	factors := res.ReportData.FactorComparison
	assert.Equal(t, ai.Factors[0], factors[0])
	assert.Equal(t, mock.FactorComparison[1:], factors[1:])
}

func TestMerge_AILongSeriesTruncated(t *testing.T) {
	ai := &enrich.Response{Trend: aiTrend(12), Distribution: append(aiDistribution(7), domain.DistributionPoint{Label: "extra"})}
	res := Merge(MergeInput{
		Hazard:  domain.HazardSeismic,
		Grid:    makeGrid(3, 3, 10),
		Outcome: enrich.Outcome{Data: ai},
	}, domain.DefaultKnowledgeBase(), domain.NewSeededRand(6))

	assertInvariants(t, res)
	assert.Equal(t, ai.Trend, res.ReportData.TemporalTrend)
	assert.Equal(t, ai.Distribution[:7], res.ReportData.MagnitudeDist)
}

func TestMerge_AIGridIgnoredForOtherShapes(t *testing.T) {
	ai := fullAIResponse()
	res := Merge(MergeInput{
		Hazard:  domain.HazardSeismic,
		Grid:    makeGrid(2, 2, 30),
		Outcome: enrich.Outcome{Data: ai},
	}, domain.DefaultKnowledgeBase(), domain.NewSeededRand(5))

	assertInvariants(t, res)
	assert.Equal(t, []int{30, 30, 30, 30}, chunkScores(res.Chunks))
	assert.Equal(t, 77, res.AverageRisk)
	assert.Zero(t, res.HighRiskCount)
	assert.Equal(t, ai.Justification, res.ReportData.Justification)
}

func TestMerge_QuotaExceeded(t *testing.T) {
	res := Merge(MergeInput{
		Hazard:  domain.HazardWildfire,
		Grid:    makeGrid(3, 3, 73),
		Outcome: enrich.Outcome{ErrorCode: domain.ErrorQuotaExceeded},
	}, domain.DefaultKnowledgeBase(), domain.NewSeededRand(6))

	assertInvariants(t, res)
	assert.False(t, res.IsAIVerified)
	assert.Equal(t, domain.ErrorQuotaExceeded, res.ErrorCode)
	assert.Contains(t, res.ReportData.Justification, "Low-power mode")
	assert.Contains(t, res.ReportData.Justification, "20 seconds")
	assert.Contains(t, res.ReportData.Justification, "fuel factors")
}

func TestMerge_APIError(t *testing.T) {
	res := Merge(MergeInput{
		Hazard:  domain.HazardStorm,
		Grid:    makeGrid(1, 1, 40),
		Outcome: enrich.Outcome{ErrorCode: domain.ErrorAPI},
	}, domain.DefaultKnowledgeBase(), domain.NewSeededRand(6))

	assertInvariants(t, res)
	assert.Equal(t, domain.ErrorAPI, res.ErrorCode)
	assert.Contains(t, res.ReportData.Justification, "AI verification is unavailable")
}

func TestMerge_HighRiskCountInvariant(t *testing.T) {
	rnd := domain.NewSeededRand(99)
	kb := domain.DefaultKnowledgeBase()

	for i := range 50 {
		rows, cols := 1+rnd.IntN(5), 1+rnd.IntN(5)
		scores := make([]int, rows*cols)
		for j := range scores {
			scores[j] = rnd.IntN(101)
		}
		in := MergeInput{Hazard: domain.HazardTypes[i%3], Grid: makeGrid(rows, cols, scores...)}
		if i%2 == 0 {
			in.Outcome = enrich.Outcome{Data: &enrich.Response{
				HazardLevel: intPtr(rnd.IntN(101)),
				Grid:        map[int]int{0: rnd.IntN(101), 8: rnd.IntN(101)},
			}}
		}
		assertInvariants(t, Merge(in, kb, rnd))
	}
}

func TestMockReport(t *testing.T) {
	for _, h := range domain.HazardTypes {
		r := MockReport(h, 60)
		l := h.Labels()

		require.Len(t, r.TemporalTrend, 12)
		assert.Equal(t, "Jan", r.TemporalTrend[0].Time)
		assert.Equal(t, "Dec", r.TemporalTrend[11].Time)
		for _, p := range r.TemporalTrend {
			assert.GreaterOrEqual(t, p.Value1, 0.0)
			assert.GreaterOrEqual(t, p.Value2, 0.0)
		}

		require.Len(t, r.MagnitudeDist, 7)
		assert.Equal(t, 100.0, r.MagnitudeDist[0].Probability)
		for i := 1; i < 7; i++ {
			assert.Equal(t, l.DistributionLabels[i], r.MagnitudeDist[i].Label)
			assert.Less(t, r.MagnitudeDist[i].Probability, r.MagnitudeDist[i-1].Probability)
		}

		assert.Equal(t, []domain.FactorScore{
			{Name: l.FactorNames[0], Value: 70},
			{Name: l.FactorNames[1], Value: 60},
			{Name: l.FactorNames[2], Value: 50},
		}, r.FactorComparison)
	}

	assert.Equal(t, MockReport(domain.HazardStorm, 33), MockReport(domain.HazardStorm, 33))
}
