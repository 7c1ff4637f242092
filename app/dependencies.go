package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mindfusion/backend/config"
	"github.com/mindfusion/backend/repositories"
	"github.com/mindfusion/backend/repositories/postgres"
	"github.com/mindfusion/backend/services/aggregate"
	"github.com/mindfusion/backend/services/audit"
	"github.com/mindfusion/backend/services/chat"
	"github.com/mindfusion/backend/services/fanout"
	"github.com/mindfusion/backend/services/providers"
	"github.com/mindfusion/backend/services/providers/anthropic"
	"github.com/mindfusion/backend/services/providers/gemini"
	"github.com/mindfusion/backend/services/providers/openai"
)

const auditStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config     *config.Config
	Logger     *zap.Logger
	HTTPClient *http.Client

	// Optional persistence; nil when DATABASE_URL is unset
	DB          *postgres.DB
	RepoFactory *postgres.RepositoryFactory
	Outcomes    repositories.OutcomeRepository

	// Providers and pipeline
	Registry   *providers.Registry
	Dispatcher *fanout.Dispatcher
	Aggregator *aggregate.Aggregator
	Audit      *audit.AuditService
	Chat       *chat.Service
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
		// Calls are bounded per request by the dispatcher's context deadline
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	if cfg.Database.Enabled() {
		if err := deps.initDatabase(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	} else {
		logger.Info("DATABASE_URL not set, request outcome trail disabled")
	}

	if err := deps.initProviders(cfg); err != nil {
		deps.closeDatabase()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initPipeline(cfg); err != nil {
		deps.closeDatabase()
		return nil, fmt.Errorf("failed to initialize chat pipeline: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.Strings("providers", deps.Registry.Names()),
		zap.Int("credentialed", deps.Registry.CredentialedCount()),
		zap.Bool("audit", deps.Audit != nil))
	return deps, nil
}

// initDatabase opens PostgreSQL, creates the outcome schema, and builds
// the repositories
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		d.closeDatabase()
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		d.closeDatabase()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Outcomes = factory.NewRepositories().Outcomes

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))
	return nil
}

// initProviders builds one adapter per configured provider
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry, err := providers.NewRegistryBuilder(d.HTTPClient).
		WithAdapterBuilder(providers.KindOpenAI, openai.Build).
		WithAdapterBuilder(providers.KindAnthropic, anthropic.Build).
		WithAdapterBuilder(providers.KindGemini, gemini.Build).
		Build(cfg.Providers)
	if err != nil {
		return err
	}

	for _, spec := range registry.Specs() {
		if !spec.HasCredential() {
			d.Logger.Warn("provider has no credential and will report failures",
				zap.String("provider", spec.ID),
				zap.String("api_key_env", spec.APIKeyEnv))
		}
	}

	d.Registry = registry
	return nil
}

// initPipeline wires dispatcher, aggregator, audit trail and chat service
func (d *Dependencies) initPipeline(cfg *config.Config) error {
	d.Dispatcher = fanout.NewDispatcher(d.Registry, d.Logger)
	d.Aggregator = aggregate.NewAggregator(d.Registry.Specs())

	var recorder chat.Recorder = audit.Noop{}
	if d.Outcomes != nil {
		d.Audit = audit.NewAuditService(d.Outcomes, d.Logger, audit.DefaultConfig())
		if err := d.Audit.Start(); err != nil {
			return fmt.Errorf("failed to start audit service: %w", err)
		}
		recorder = d.Audit
	}

	d.Chat = chat.NewService(d.Dispatcher, d.Aggregator, recorder, cfg.FanOut.PerCallTimeout, d.Logger)
	return nil
}

func (d *Dependencies) closeDatabase() {
	if d.RepoFactory != nil {
		_ = d.RepoFactory.Close()
		d.RepoFactory = nil
		d.DB = nil
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain queued outcome writes before the database goes away
	if d.Audit != nil {
		timeout := auditStopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
		d.Audit = nil
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
		d.DB = nil
	}

	if d.HTTPClient != nil {
		d.HTTPClient.CloseIdleConnections()
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
