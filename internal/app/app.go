package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bobmcallan/webtools-portal/internal/cache"
	"github.com/bobmcallan/webtools-portal/internal/client"
	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/config"
	"github.com/bobmcallan/webtools-portal/internal/handlers"
	"github.com/bobmcallan/webtools-portal/internal/interfaces"
	"github.com/bobmcallan/webtools-portal/internal/listing"
	"github.com/bobmcallan/webtools-portal/internal/mcp"
	"github.com/bobmcallan/webtools-portal/internal/metrics"
	"github.com/bobmcallan/webtools-portal/internal/seed"
	"github.com/bobmcallan/webtools-portal/internal/session"
	"github.com/bobmcallan/webtools-portal/internal/storage"
)

const sessionCleanupInterval = time.Minute

// mcpBackend joins the seed's tags with cached page fetches.
type mcpBackend struct {
	*seed.Service
	*listing.CachedFetcher
}

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Registry *prometheus.Registry
	Metrics  *metrics.PrometheusMetrics

	Client        *client.ToolsClient
	PageCache     *cache.PageCache
	CachedFetcher *listing.CachedFetcher
	Storage       interfaces.StorageManager
	Seeds         *seed.Service
	Sessions      *session.Registry

	// HTTP handlers
	PageHandler         *handlers.PageHandler
	ListingHandler      *handlers.ListingHandler
	AdminHandler        *handlers.AdminHandler
	HealthHandler       *handlers.HealthHandler
	VersionHandler      *handlers.VersionHandler
	ServerHealthHandler *handlers.ServerHealthHandler
	MCPHandler          *mcp.Handler
}

// New initializes the application with all dependencies. It does not touch
// the tools API; call Start for that.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("running in dev mode")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewPrometheusMetrics(a.Registry)

	a.Client = client.NewToolsClient(cfg.API.URL,
		client.WithTimeout(cfg.API.GetTimeout()),
		client.WithObserver(a.Metrics),
	)
	a.PageCache = cache.New(cfg.Cache.GetTTL(), cfg.Cache.MaxEntries)
	a.CachedFetcher = listing.NewCachedFetcher(a.Client, a.PageCache, a.Metrics)

	store, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	a.Storage = store

	a.Seeds = seed.NewService(a.Client, cfg.Listing.PageLimit, logger,
		seed.WithStorage(store.SeedStorage()),
		seed.WithRefreshInterval(cfg.Seed.GetRefreshInterval()),
		seed.WithRecorder(a.Metrics),
	)

	a.Sessions = session.NewRegistry(cfg.Session.GetTTL(), a.NewController, a.Metrics)

	a.initHandlers()

	logger.Info().Str("api_url", cfg.API.URL).Msg("application initialization complete")

	return a, nil
}

// NewController builds a listing controller starting from the current seed.
func (a *App) NewController() *listing.Controller {
	return listing.New(a.CachedFetcher, a.Seeds.Current().Page,
		listing.WithLimit(a.Config.Listing.PageLimit),
		listing.WithAllLabel(a.Config.Listing.AllLabel),
		listing.WithObserver(a.Metrics),
		listing.WithLogger(a.Logger),
	)
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	devMode := a.Config.IsDevMode()

	a.PageHandler = handlers.NewPageHandler(a.Logger, devMode)
	a.ListingHandler = handlers.NewListingHandler(a.Logger, a.PageHandler, a.Sessions, a.Seeds, a.Config.Listing.AllLabel, !devMode)
	a.AdminHandler = handlers.NewAdminHandler(a.Logger, a.Seeds, a.PageCache, a.Config.Admin.Token)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.Seeds)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ServerHealthHandler = handlers.NewServerHealthHandler(a.Logger, a.Client)

	a.MCPHandler = mcp.NewHandler(a.Logger, mcpBackend{a.Seeds, a.CachedFetcher}, a.Config.Listing.PageLimit, a.Config.Listing.AllLabel)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Start seeds the listing and runs the background refresh and session
// cleanup until ctx is done. The seed is in place when Start returns.
func (a *App) Start(ctx context.Context) {
	a.Seeds.Start(ctx)
	go a.Seeds.Run(ctx)
	go a.cleanupSessions(ctx)
}

func (a *App) cleanupSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Sessions.Cleanup(); n > 0 {
				a.Logger.Debug().Int("removed", n).Int("active", a.Sessions.Len()).Msg("expired sessions removed")
			}
		}
	}
}

// Close closes all application resources.
func (a *App) Close() error {
	a.Sessions.Close()
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
