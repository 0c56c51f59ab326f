package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

var sampleResult = domain.AnalysisResult{
	ID:             "an-1",
	Hazard:         domain.HazardSeismic,
	Rows:           3,
	Cols:           3,
	Chunks:         []domain.GridChunk{{ID: "0-0", RiskScore: 88}},
	AverageRisk:    73,
	HighRiskCount:  6,
	IsAIVerified:   true,
	DetectedRegion: "Eastern Sicily",
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 4, 26, 15, 10, 0, 0, time.UTC)

	msg, err := serializeToMessage(NewSummary(sampleResult, now))
	require.NoError(t, err)

	assert.Equal(t, []byte("an-1"), msg.Key)
	assert.JSONEq(t, `{
		"id": "an-1",
		"hazard": "seismic",
		"rows": 3,
		"cols": 3,
		"detectedRegion": "Eastern Sicily",
		"averageRisk": 73,
		"riskLevel": "High",
		"highRiskCount": 6,
		"isAiVerified": true,
		"publishedAt": "2026-04-26T15:10:00Z"
	}`, string(msg.Value))
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "hazard", msg.Headers[0].Key)
	assert.Equal(t, []byte("seismic"), msg.Headers[0].Value)
	assert.Equal(t, "published_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestNewSummary_ErrorCode(t *testing.T) {
	r := sampleResult
	r.IsAIVerified = false
	r.ErrorCode = domain.ErrorQuotaExceeded
	r.AverageRisk = 15

	s := NewSummary(r, time.Now())
	assert.Equal(t, domain.ErrorQuotaExceeded, s.ErrorCode)
	assert.Equal(t, domain.RiskLow, s.RiskLevel)
	assert.False(t, s.IsAIVerified)
}

func TestWriter_Publish(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	rec := &recordingWriter{}
	w := &Writer{writer: rec, clock: clock, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.Publish(context.Background(), sampleResult))
	require.Len(t, rec.msgs, 1)

	var got Summary
	require.NoError(t, json.Unmarshal(rec.msgs[0].Value, &got))
	assert.Equal(t, "an-1", got.ID)
	assert.Equal(t, clock.Now(), got.PublishedAt)

	require.NoError(t, w.Close())
	assert.True(t, rec.closed)
}

func TestWriter_PublishError(t *testing.T) {
	rec := &recordingWriter{err: errors.New("leader not available")}
	w := &Writer{writer: rec, clock: clockwork.NewFakeClock(), logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.Publish(context.Background(), sampleResult)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "an-1")
	assert.Contains(t, err.Error(), "leader not available")
}

func TestWriter_CheckReadinessNoBrokers(t *testing.T) {
	w := &Writer{writer: &recordingWriter{}, clock: clockwork.NewFakeClock()}
	require.Error(t, w.CheckReadiness(context.Background()))
}
