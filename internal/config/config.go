package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Hazard feed modes for wildfire and storm events.
const (
	FeedModeSynthetic = "synthetic"
	FeedModeLive      = "live"
)

// maxGridDimLimit matches the sampler's hard per-axis cap.
const maxGridDimLimit = 256

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64

	// Generative model configuration. An empty key disables AI enrichment.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout time.Duration
	GeminiBaseURL string

	// Hazard event feeds.
	USGSBaseURL  string
	USGSQueryURL string
	GDACSURL     string
	FeedTimeout  time.Duration
	FeedMode     string
	EventLimit   int

	// MaxGridDim bounds the rows and cols of an analysis request.
	MaxGridDim int

	// KnowledgeBasePath optionally replaces the embedded regional table.
	KnowledgeBasePath string

	// Analysis summary publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geminiTimeout, err := parseDuration("GEMINI_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parseDuration("FEED_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	eventLimit, err := parsePositiveInt("EVENT_LIMIT", 50)
	if err != nil {
		return nil, err
	}

	maxGridDim, err := parsePositiveInt("MAX_GRID_DIM", 64)
	if err != nil {
		return nil, err
	}
	if maxGridDim > maxGridDimLimit {
		return nil, fmt.Errorf("invalid MAX_GRID_DIM: must be at most %d", maxGridDimLimit)
	}

	maxUpload, err := parsePositiveInt("MAX_UPLOAD_BYTES", 20<<20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		MaxUploadBytes:  int64(maxUpload),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiTimeout: geminiTimeout,
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),

		USGSBaseURL:  sharedcfg.EnvOrDefault("USGS_BASE_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"),
		USGSQueryURL: sharedcfg.EnvOrDefault("USGS_QUERY_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
		GDACSURL:     sharedcfg.EnvOrDefault("GDACS_URL", "https://www.gdacs.org/xml/gdacs.geojson"),
		FeedTimeout:  feedTimeout,
		FeedMode:     strings.ToLower(sharedcfg.EnvOrDefault("HAZARD_FEED_MODE", FeedModeSynthetic)),
		EventLimit:   eventLimit,
		MaxGridDim:   maxGridDim,

		KnowledgeBasePath: os.Getenv("KNOWLEDGE_BASE_PATH"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "hazard-analysis-summaries"),
	}

	if cfg.FeedMode != FeedModeSynthetic && cfg.FeedMode != FeedModeLive {
		return nil, fmt.Errorf("invalid HAZARD_FEED_MODE %q: must be %q or %q", cfg.FeedMode, FeedModeSynthetic, FeedModeLive)
	}
	if cfg.GeminiModel == "" {
		return nil, errors.New("GEMINI_MODEL is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
		}
	}

	return cfg, nil
}

// AIEnabled reports whether a generative model key is configured.
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}

func parseDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parsePositiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", name)
	}
	return n, nil
}
