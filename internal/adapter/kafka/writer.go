package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// Summary is the compact record published for each completed analysis.
// Cell data and report series are left out.
type Summary struct {
	ID             string            `json:"id"`
	Hazard         domain.HazardType `json:"hazard"`
	Rows           int               `json:"rows"`
	Cols           int               `json:"cols"`
	DetectedRegion string            `json:"detectedRegion,omitempty"`
	AverageRisk    int               `json:"averageRisk"`
	RiskLevel      domain.RiskLevel  `json:"riskLevel"`
	HighRiskCount  int               `json:"highRiskCount"`
	IsAIVerified   bool              `json:"isAiVerified"`
	ErrorCode      domain.ErrorCode  `json:"errorCode,omitempty"`
	PublishedAt    time.Time         `json:"publishedAt"`
}

// NewSummary condenses an analysis result.
func NewSummary(r domain.AnalysisResult, at time.Time) Summary {
	return Summary{
		ID:             r.ID,
		Hazard:         r.Hazard,
		Rows:           r.Rows,
		Cols:           r.Cols,
		DetectedRegion: r.DetectedRegion,
		AverageRisk:    r.AverageRisk,
		RiskLevel:      domain.LevelForScore(r.AverageRisk),
		HighRiskCount:  r.HighRiskCount,
		IsAIVerified:   r.IsAIVerified,
		ErrorCode:      r.ErrorCode,
		PublishedAt:    at.UTC(),
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes analysis summaries to a Kafka topic.
// It implements analysis.Publisher.
type Writer struct {
	writer  messageWriter
	brokers []string
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the summary topic.
func NewWriter(brokers []string, topic string, clock clockwork.Clock, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, brokers: brokers, clock: clock, logger: logger}
}

// Publish serializes a summary of result and writes it keyed by the
// analysis ID.
func (w *Writer) Publish(ctx context.Context, result domain.AnalysisResult) error {
	msg, err := serializeToMessage(NewSummary(result, w.clock.Now()))
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish analysis summary %s: %w", result.ID, err)
	}
	w.logger.Debug("analysis summary published", "id", result.ID, "hazard", result.Hazard)
	return nil
}

// CheckReadiness dials the first reachable broker.
func (w *Writer) CheckReadiness(ctx context.Context) error {
	var errs []error
	for _, b := range w.brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_ = conn.Close()
		return nil
	}
	if len(errs) == 0 {
		return errors.New("no kafka brokers configured")
	}
	return fmt.Errorf("kafka unreachable: %w", errors.Join(errs...))
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Summary into a Kafka message.
func serializeToMessage(s Summary) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize analysis summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "hazard", Value: []byte(s.Hazard)},
			{Key: "published_at", Value: []byte(s.PublishedAt.Format(time.RFC3339))},
		},
	}, nil
}
