package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jobfit/internal/ai/gemini"
	"github.com/spigell/jobfit/internal/ats"
	"github.com/spigell/jobfit/internal/cache"
	"github.com/spigell/jobfit/internal/logger"
	"github.com/spigell/jobfit/internal/metrics"
	"github.com/spigell/jobfit/internal/pipeline"
	"github.com/spigell/jobfit/internal/secrets"
)

const geminiKeyEnv = "GEMINI_API_KEY"

// deps holds everything a command needs, built from the config.
type deps struct {
	config    *Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	extractor *gemini.Extractor
	service   *pipeline.Service
}

// setup builds the logger and config shared by all commands. Failures are fatal.
func setup() (*Config, *zap.Logger) {
	lg, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		lg.Fatal("getting a config", zap.Error(err))
	}

	lg.Debug("starting with config", zap.Any("config", config))

	return config, lg
}

func newLogger() (*zap.Logger, error) {
	return logger.New(viper.GetBool("json"), viper.GetBool("debug"))
}

// buildDeps wires the service. withAI controls whether a Gemini client is
// created; commands that only read postings do not need one.
func buildDeps(ctx context.Context, config *Config, log *zap.Logger, withAI bool) (*deps, error) {
	d := &deps{
		config:   config,
		logger:   log,
		registry: prometheus.NewRegistry(),
	}
	d.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	d.metrics = metrics.New(d.registry)

	store, err := newStore(ctx, config.Cache)
	if err != nil {
		return nil, fmt.Errorf("building cache store: %w", err)
	}

	postingCache := cache.New(store, cache.Options{
		TTL:      config.Cache.TTL,
		Logger:   log.Named("cache"),
		Recorder: d.metrics,
	})

	var requirements pipeline.RequirementExtractor
	if withAI {
		d.extractor, err = newExtractor(ctx, config.Gemini, log)
		if err != nil {
			return nil, fmt.Errorf("building extractor: %w", err)
		}
		requirements = d.extractor
	}

	matcher := pipeline.NewMatcher(requirements, pipeline.MatcherOptions{
		BatchSize: config.Match.BatchSize,
		Top:       config.Match.Top,
		Logger:    log,
		Recorder:  d.metrics,
	})

	d.service = pipeline.NewService(postingCache, matcher, pipeline.ServiceOptions{
		Connectors: ats.Options{
			HTTPClient: &http.Client{Timeout: config.Fetch.Timeout},
			UserAgent:  config.UserAgent,
			Recorder:   d.metrics,
		},
		MaxPostings: config.Fetch.MaxPostings,
		Timeout:     config.Match.Timeout,
		Logger:      log,
		Recorder:    d.metrics,
	})

	return d, nil
}

func newStore(ctx context.Context, cfg *CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisStore(client), nil
	case "file", "":
		return cache.NewFileStore(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

func newExtractor(ctx context.Context, cfg *GeminiConfig, log *zap.Logger) (*gemini.Extractor, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   geminiKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set gemini.api-key-file or %s)", err, geminiKeyEnv)
	}

	genLogger := log.With(zap.Int("ai_retry_attempts", cfg.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	extractorLogger := logger.WithCommonFields(log, gemini.Provider, generator.Model())

	return gemini.NewExtractor(generator, cfg.MaxLogLength, extractorLogger), nil
}
