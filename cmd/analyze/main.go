// Command analyze runs the risk engine once from the command line and prints
// the result as JSON.
//
// Usage:
//
//	go run ./cmd/analyze -image map.png -hazard seismic -rows 3 -cols 3 -location "Eastern Sicily"
//	go run ./cmd/analyze -events -hazard seismic -period week -magnitude 4.5
//
// Configuration (Gemini key, feed URLs, feed mode) comes from the same
// environment variables as the service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-risk-service/internal/adapter/gdacs"
	"github.com/couchcryptid/hazard-risk-service/internal/adapter/gemini"
	"github.com/couchcryptid/hazard-risk-service/internal/adapter/usgs"
	"github.com/couchcryptid/hazard-risk-service/internal/analysis"
	"github.com/couchcryptid/hazard-risk-service/internal/config"
	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/enrich"
	"github.com/couchcryptid/hazard-risk-service/internal/events"
	"github.com/couchcryptid/hazard-risk-service/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "analyze:", err)
		os.Exit(1)
	}
}

func run() error {
	imagePath := flag.String("image", "", "path to the map image to analyze")
	hazardFlag := flag.String("hazard", "seismic", "hazard type: seismic, wildfire, or storm")
	rows := flag.Int("rows", 3, "grid rows")
	cols := flag.Int("cols", 3, "grid columns")
	location := flag.String("location", "", "optional location hint")
	fetchEvents := flag.Bool("events", false, "fetch hazard events instead of analyzing an image")
	period := flag.String("period", "day", "event period: hour, day, week, month, year, 5years, 10years")
	magnitude := flag.String("magnitude", "all", "event magnitude selector")
	flag.Parse()

	if !*fetchEvents && *imagePath == "" {
		flag.Usage()
		return errors.New("either -image or -events is required")
	}

	hazard, err := domain.ParseHazardType(*hazardFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout carries only the JSON result.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var out any
	if *fetchEvents {
		out, err = runEvents(ctx, cfg, hazard, *period, *magnitude, logger, metrics)
	} else {
		out, err = runAnalysis(ctx, cfg, *imagePath, analysis.Request{
			Hazard:   hazard,
			Rows:     *rows,
			Cols:     *cols,
			Location: *location,
		}, logger, metrics)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runAnalysis(ctx context.Context, cfg *config.Config, path string, req analysis.Request, logger *slog.Logger, metrics *observability.Metrics) (domain.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("read image: %w", err)
	}
	req.Image = data

	kb := domain.DefaultKnowledgeBase()
	if cfg.KnowledgeBasePath != "" {
		if kb, err = domain.LoadKnowledgeBase(cfg.KnowledgeBasePath); err != nil {
			return domain.AnalysisResult{}, err
		}
	}

	var gen enrich.Generator
	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.GeminiTimeout, logger)
	switch {
	case errors.Is(err, enrich.ErrNoAPIKey):
		// Local-only analysis.
	case err != nil:
		return domain.AnalysisResult{}, err
	default:
		gen = client
	}

	engine := analysis.NewEngine(enrich.New(gen, logger), kb, logger, metrics, analysis.WithMaxGridDim(cfg.MaxGridDim))
	return engine.AnalyzeImage(ctx, req)
}

func runEvents(ctx context.Context, cfg *config.Config, hazard domain.HazardType, period, magnitude string, logger *slog.Logger, metrics *observability.Metrics) ([]domain.HazardEvent, error) {
	clock := clockwork.NewRealClock()

	var src events.Source
	switch {
	case hazard == domain.HazardSeismic:
		src = events.NewSeismicSource(usgs.NewClient(cfg.USGSBaseURL, cfg.USGSQueryURL, cfg.FeedTimeout, clock, logger))
	case cfg.FeedMode == config.FeedModeLive:
		src = events.NewDisasterSource(gdacs.NewClient(cfg.GDACSURL, cfg.FeedTimeout, logger), clock, logger)
	default:
		src = events.NewSyntheticSource()
	}

	svc := events.NewService(map[domain.HazardType]events.Source{hazard: src}, cfg.EventLimit, logger, metrics)
	return svc.FetchHazardEvents(ctx, hazard, period, magnitude)
}
