package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-risk-service/internal/adapter/gdacs"
	"github.com/couchcryptid/hazard-risk-service/internal/adapter/gemini"
	httpadapter "github.com/couchcryptid/hazard-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-risk-service/internal/adapter/usgs"
	"github.com/couchcryptid/hazard-risk-service/internal/analysis"
	"github.com/couchcryptid/hazard-risk-service/internal/chat"
	"github.com/couchcryptid/hazard-risk-service/internal/config"
	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/enrich"
	"github.com/couchcryptid/hazard-risk-service/internal/events"
	"github.com/couchcryptid/hazard-risk-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kb := domain.DefaultKnowledgeBase()
	if cfg.KnowledgeBasePath != "" {
		kb, err = domain.LoadKnowledgeBase(cfg.KnowledgeBasePath)
		if err != nil {
			logger.Error("failed to load knowledge base", "error", err, "path", cfg.KnowledgeBasePath)
			os.Exit(1)
		}
		logger.Info("knowledge base loaded", "path", cfg.KnowledgeBasePath, "regions", kb.Regions())
	}

	// AI enrichment is feature-flagged via GEMINI_API_KEY.
	var gen enrich.Generator
	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.GeminiTimeout, logger)
	switch {
	case errors.Is(err, enrich.ErrNoAPIKey):
		logger.Info("ai enrichment disabled")
	case err != nil:
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	default:
		gen = client
		metrics.AIEnabled.Set(1)
		logger.Info("ai enrichment enabled", "model", cfg.GeminiModel, "timeout", cfg.GeminiTimeout)
	}

	// Summary publishing is feature-flagged via KAFKA_ENABLED.
	opts := []analysis.Option{analysis.WithMaxGridDim(cfg.MaxGridDim)}
	checkers := readinessCheckers{}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, clock, logger)
		opts = append(opts, analysis.WithPublisher(writer))
		checkers = append(checkers, writer)
		logger.Info("analysis summary publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	engine := analysis.NewEngine(enrich.New(gen, logger), kb, logger, metrics, opts...)
	checkers = append(checkers, engine)

	quakes := usgs.NewClient(cfg.USGSBaseURL, cfg.USGSQueryURL, cfg.FeedTimeout, clock, logger)
	sources := map[domain.HazardType]events.Source{
		domain.HazardSeismic: events.NewSeismicSource(quakes),
	}
	if cfg.FeedMode == config.FeedModeLive {
		disasters := events.NewDisasterSource(gdacs.NewClient(cfg.GDACSURL, cfg.FeedTimeout, logger), clock, logger)
		sources[domain.HazardWildfire] = disasters
		sources[domain.HazardStorm] = disasters
	} else {
		synthetic := events.NewSyntheticSource()
		sources[domain.HazardWildfire] = synthetic
		sources[domain.HazardStorm] = synthetic
	}
	logger.Info("hazard event sources configured", "feed_mode", cfg.FeedMode, "limit", cfg.EventLimit)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Handlers{
		Analyzer:       engine,
		Events:         events.NewService(sources, cfg.EventLimit, logger, metrics),
		Chat:           chat.NewResponder(gen, logger),
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, checkers, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// readinessCheckers is ready when every checker is.
type readinessCheckers []sharedobs.ReadinessChecker

func (rc readinessCheckers) CheckReadiness(ctx context.Context) error {
	for _, c := range rc {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
