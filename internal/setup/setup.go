// Package setup wires together the crawler's dependency graph: config,
// logger, store, rate-limited client, platform API, suffix cache,
// tokenizer, image hasher, trait registry and metrics. cmd/worker calls
// InitializeApp once and passes the bundle to crawler.New.
package setup

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hadsh/spamhunter/internal/imagehash"
	"github.com/hadsh/spamhunter/internal/metrics"
	"github.com/hadsh/spamhunter/internal/platform"
	"github.com/hadsh/spamhunter/internal/setup/config"
	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/suffix"
	"github.com/hadsh/spamhunter/internal/tokenizer"
	"github.com/hadsh/spamhunter/internal/traits"
)

// App bundles every dependency the crawler and its CLI tooling need. Each
// field is a major subsystem initialized here once and handed to
// crawler.Dependencies by the caller.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     *store.Store
	Client    *platform.RateLimitedClient
	API       *platform.API
	Suffix    *suffix.Cache
	Tokenizer *tokenizer.Tokenizer
	Hasher    *imagehash.Hasher
	Traits    *traits.Registry
	Metrics   *metrics.Metrics
}

// InitializeApp loads configuration, builds a logger at the configured
// level, connects to the store and constructs every collaborator the
// crawler depends on, registering the concrete traits required by spec
// §4.7.
func InitializeApp(ctx context.Context) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.Debug.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	storeCfg := store.PostgreSQL(cfg.PostgreSQL)

	st, err := store.New(ctx, &storeCfg, logger, true)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	metricsBundle := metrics.New()

	client := platform.NewRateLimitedClient(platform.ClientConfig{
		MinInterval:     cfg.Client.MinInterval(),
		ForbiddenWindow: cfg.Client.ForbiddenWindow(),
		ConnResetWindow: cfg.Client.ConnResetWindow(),
		Timeout:         cfg.Client.Timeout(),
	}, logger, metricsBundle.ForbiddenWindows)

	api := platform.NewAPI(platform.APIConfig{
		BaseURI:         cfg.Platform.BaseURI,
		AuthURI:         cfg.Platform.AuthURI,
		TokenURI:        cfg.Platform.TokenURI,
		NewestScrapeURI: cfg.Platform.NewestScrapeURI,
		ClientID:        cfg.Platform.ClientID,
		ClientSecret:    cfg.Platform.ClientSecret,
		APIKey:          cfg.Platform.APIKey,
	}, client, logger)

	suffixCache := suffix.New(cfg.Suffix.ListURI, cfg.Suffix.CacheDuration(), logger)
	tok := tokenizer.New()
	hasher := imagehash.New(cfg.ImageHash.Workers)

	registry := traits.NewRegistry(st, logger)

	for _, t := range traits.AllTraits() {
		if err := registry.Register(ctx, t); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to register trait %s: %w", t.Class(), err)
		}
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     st,
		Client:    client,
		API:       api,
		Suffix:    suffixCache,
		Tokenizer: tok,
		Hasher:    hasher,
		Traits:    registry,
		Metrics:   metricsBundle,
	}, nil
}

// Cleanup gracefully shuts down every component that owns a resource,
// logging but not failing on cleanup errors so every component gets a
// cleanup attempt.
func (a *App) Cleanup() {
	a.Hasher.Close()

	if err := a.Logger.Sync(); err != nil {
		log.Printf("failed to sync logger: %v", err)
	}

	if err := a.Store.Close(); err != nil {
		log.Printf("failed to close store: %v", err)
	}
}

// newLogger builds a production zap logger at the given level (spec SPEC_FULL
// ambient-stack section: structured logging via zap, the teacher's choice).
func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
