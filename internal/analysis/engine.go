// Package analysis runs an image analysis end to end: the local grid sample
// and the AI enrichment call are issued concurrently, joined, and merged into
// a domain.AnalysisResult.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/enrich"
	"github.com/couchcryptid/hazard-risk-service/internal/observability"
	"github.com/couchcryptid/hazard-risk-service/internal/raster"
)

// ErrInvalidRequest is wrapped by every request validation failure.
var ErrInvalidRequest = errors.New("invalid analysis request")

// Enricher requests an AI opinion on an image.
type Enricher interface {
	Enabled() bool
	Enrich(ctx context.Context, in enrich.Input) enrich.Outcome
}

// Publisher receives every completed analysis.
type Publisher interface {
	Publish(ctx context.Context, result domain.AnalysisResult) error
}

// Request is one image analysis.
type Request struct {
	Image    []byte
	MIMEType string
	Hazard   domain.HazardType
	Rows     int
	Cols     int
	Location string
}

// Engine orchestrates sampling, enrichment, and merging.
type Engine struct {
	enricher  Enricher
	knowledge *domain.KnowledgeBase
	rnd       domain.Rand
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	newID     func() string
	maxGrid   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand replaces the randomness source used for score variation and
// narrative selection.
func WithRand(rnd domain.Rand) Option {
	return func(e *Engine) { e.rnd = rnd }
}

// WithPublisher sends every completed analysis to p.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// DefaultMaxGridDim bounds rows and cols unless WithMaxGridDim overrides it.
const DefaultMaxGridDim = 64

// WithMaxGridDim sets the largest accepted rows or cols value. Values outside
// [1, raster.MaxGridDim] are clamped into it.
func WithMaxGridDim(n int) Option {
	return func(e *Engine) { e.maxGrid = max(1, min(n, raster.MaxGridDim)) }
}

// WithIDFunc overrides analysis id generation.
func WithIDFunc(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an Engine. A nil knowledge base selects the embedded table.
func NewEngine(enricher Enricher, kb *domain.KnowledgeBase, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Engine {
	if kb == nil {
		kb = domain.DefaultKnowledgeBase()
	}
	e := &Engine{
		enricher:  enricher,
		knowledge: kb,
		rnd:       domain.DefaultRand(),
		logger:    logger,
		metrics:   metrics,
		newID:     uuid.NewString,
		maxGrid:   DefaultMaxGridDim,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckReadiness reports ready once the engine has a knowledge table.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if e.knowledge == nil || e.knowledge.Regions() == 0 {
		return errors.New("knowledge base not loaded")
	}
	return nil
}

// AnalyzeImage scores req.Image on a rows×cols grid. The only errors returned
// are request validation failures and raster.ErrDecode; AI failures are
// carried in the result's ErrorCode.
func (e *Engine) AnalyzeImage(ctx context.Context, req Request) (domain.AnalysisResult, error) {
	start := time.Now()

	hazard, err := domain.ParseHazardType(string(req.Hazard))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Rows < 1 || req.Cols < 1 || req.Rows > e.maxGrid || req.Cols > e.maxGrid {
		return domain.AnalysisResult{}, fmt.Errorf("%w: %w: got %dx%d, want 1..%d per axis",
			ErrInvalidRequest, raster.ErrInvalidGrid, req.Rows, req.Cols, e.maxGrid)
	}

	var (
		grid    raster.Grid
		outcome enrich.Outcome
	)

	// A decode failure cancels gctx, which aborts the in-flight AI call.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		grid, err = raster.SampleBytes(req.Image, req.Rows, req.Cols)
		return err
	})
	if e.enricher != nil && e.enricher.Enabled() {
		g.Go(func() error {
			outcome = e.enricher.Enrich(gctx, enrich.Input{
				Image:    req.Image,
				MIMEType: req.MIMEType,
				Hazard:   hazard,
				Location: req.Location,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.metrics.AnalysesTotal.WithLabelValues(string(hazard), "decode_error").Inc()
		return domain.AnalysisResult{}, err
	}
	if e.enricher != nil && e.enricher.Enabled() {
		e.metrics.AIEnrichment.WithLabelValues(outcome.Status()).Inc()
	}

	result := Merge(MergeInput{
		Hazard:   hazard,
		Location: req.Location,
		Grid:     grid,
		Outcome:  outcome,
	}, e.knowledge, e.rnd)
	result.ID = e.newID()

	e.metrics.AnalysesTotal.WithLabelValues(string(hazard), outcome.Status()).Inc()
	e.metrics.AnalysisDuration.WithLabelValues(string(hazard)).Observe(time.Since(start).Seconds())

	e.logger.Info("analysis complete",
		"analysis_id", result.ID,
		"hazard", hazard,
		"rows", req.Rows,
		"cols", req.Cols,
		"average_risk", result.AverageRisk,
		"high_risk_count", result.HighRiskCount,
		"ai_verified", result.IsAIVerified,
		"error_code", result.ErrorCode,
		"duration", time.Since(start),
	)

	e.publish(ctx, result)
	return result, nil
}

// publish hands the result to the publisher. Failures are logged and never
// affect the analysis.
func (e *Engine) publish(ctx context.Context, result domain.AnalysisResult) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, result); err != nil {
		e.metrics.SummariesPublished.WithLabelValues("error").Inc()
		e.logger.Warn("publish analysis summary failed", "error", err, "analysis_id", result.ID)
		return
	}
	e.metrics.SummariesPublished.WithLabelValues("success").Inc()
}
