package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bobmcallan/webtools-portal/internal/cache"
	"github.com/bobmcallan/webtools-portal/internal/client"
	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/config"
	"github.com/bobmcallan/webtools-portal/internal/listing"
	"github.com/bobmcallan/webtools-portal/internal/seed"
	"github.com/bobmcallan/webtools-portal/internal/storage"
	"github.com/bobmcallan/webtools-portal/internal/tui"
)

type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	apiURL      = flag.String("api-url", "", "Tools API base URL (overrides config)")
	logFile     = flag.String("log-file", "logs/webtools-tui.log", "File receiving log output while the UI runs")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	config.ApplyFlagOverrides(cfg, 0, "", *apiURL)

	if err := os.MkdirAll(filepath.Dir(*logFile), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	out, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer out.Close()

	logger := common.NewLoggerWithOutput(cfg.Logging.Level, out)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	toolsClient := client.NewToolsClient(cfg.API.URL, client.WithTimeout(cfg.API.GetTimeout()))
	fetcher := listing.NewCachedFetcher(toolsClient, cache.New(cfg.Cache.GetTTL(), cfg.Cache.MaxEntries), nil)

	opts := []seed.Option{}
	store, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		// The portal may hold the database lock; run without the persisted seed.
		logger.Warn().Str("error", err.Error()).Msg("storage unavailable, seeding from the API only")
	} else {
		defer store.Close()
		opts = append(opts, seed.WithStorage(store.SeedStorage()))
	}

	seeds := seed.NewService(toolsClient, cfg.Listing.PageLimit, logger, opts...)
	seeds.Start(ctx)

	ctrl := listing.New(fetcher, seeds.Current().Page,
		listing.WithLimit(cfg.Listing.PageLimit),
		listing.WithAllLabel(cfg.Listing.AllLabel),
		listing.WithLogger(logger),
	)
	defer ctrl.Close()

	return tui.Run(ctx, ctrl, seeds.Tags(), logger)
}
