package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

type fakeGenerator struct {
	text string
	err  error
	got  Request
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	f.got = req
	return f.text, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func TestEnrich_NoGenerator(t *testing.T) {
	e := New(nil, testLogger())
	assert.False(t, e.Enabled())

	out := e.Enrich(context.Background(), Input{Hazard: domain.HazardSeismic})
	assert.False(t, out.Verified())
	assert.Empty(t, out.ErrorCode)
	assert.Equal(t, "no_data", out.Status())
}

func TestEnrich_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode domain.ErrorCode
		status   string
	}{
		{"status 429", errors.New("Error 429, Message: Resource has been exhausted"), domain.ErrorQuotaExceeded, "quota_exceeded"},
		{"quota wording", errors.New("generate: QUOTA limit reached for project"), domain.ErrorQuotaExceeded, "quota_exceeded"},
		{"wrapped quota", fmt.Errorf("gemini: %w", errors.New("daily quota")), domain.ErrorQuotaExceeded, "quota_exceeded"},
		{"server fault", errors.New("Error 500, Message: internal"), domain.ErrorAPI, "api_error"},
		{"canceled", context.Canceled, domain.ErrorAPI, "api_error"},
		{"missing key", fmt.Errorf("gemini: %w", ErrNoAPIKey), "", "no_data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(&fakeGenerator{err: tt.err}, testLogger())
			out := e.Enrich(context.Background(), Input{Hazard: domain.HazardStorm, Image: pngHeader})
			assert.False(t, out.Verified())
			assert.Equal(t, tt.wantCode, out.ErrorCode)
			assert.Equal(t, tt.status, out.Status())
		})
	}
}

func TestEnrich_NoJSONIsNoData(t *testing.T) {
	e := New(&fakeGenerator{text: "I cannot assess this image."}, testLogger())
	out := e.Enrich(context.Background(), Input{Hazard: domain.HazardWildfire})
	assert.False(t, out.Verified())
	assert.Empty(t, out.ErrorCode)
}

func TestEnrich_ParsesReply(t *testing.T) {
	gen := &fakeGenerator{text: "Here is my assessment:\n```json\n" + `{
		"region": "Eastern Sicily",
		"hazardLevel": 82,
		"grid": [90, 85, 80, 75, 70, 65, 60, 55, 50],
		"justification": "Close to active faults.",
		"temporalTrend": [{"time": "Jan", "strain": 12.5, "activity": 4}],
		"magnitudeDist": [{"magnitude": "M2", "probability": 60}],
		"factors": {"geological": 88, "structural": 70, "urban": 65}
	}` + "\n```\nLet me know if you need more."}

	e := New(gen, testLogger())
	out := e.Enrich(context.Background(), Input{Hazard: domain.HazardSeismic, Location: "Catania", Image: pngHeader})

	require.True(t, out.Verified())
	assert.Equal(t, "verified", out.Status())
	assert.Equal(t, "Eastern Sicily", out.Data.Region)
	require.NotNil(t, out.Data.HazardLevel)
	assert.Equal(t, 82, *out.Data.HazardLevel)
	assert.Len(t, out.Data.Grid, 9)

	assert.Equal(t, "image/png", gen.got.MIMEType)
	assert.Equal(t, domain.HazardSeismic.Labels().Persona, gen.got.System)
	assert.Contains(t, gen.got.Prompt, "of Catania")
}

func TestClassify(t *testing.T) {
	assert.Empty(t, Classify(nil))
	assert.Equal(t, domain.ErrorQuotaExceeded, Classify(errors.New("HTTP 429 Too Many Requests")))
	assert.Equal(t, domain.ErrorAPI, Classify(errors.New("connection reset")))
}

func TestBuildPrompt_UsesHazardVocabulary(t *testing.T) {
	for _, h := range domain.HazardTypes {
		l := h.Labels()
		p := BuildPrompt(h, "")

		assert.NotContains(t, p, " of .", "empty location must not be interpolated")
		assert.Contains(t, p, `"`+l.TrendKey1+`"`)
		assert.Contains(t, p, `"`+l.TrendKey2+`"`)
		assert.Contains(t, p, `"`+l.DistributionKey+`"`)
		for _, k := range l.FactorKeys {
			assert.Contains(t, p, `"`+k+`"`)
		}
		assert.Contains(t, p, `"grid"`)
		assert.Contains(t, p, `"hazardLevel"`)
	}
}
