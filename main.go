package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"pwb_feeds/api"
	"pwb_feeds/config"
	_ "pwb_feeds/feed/resales"
	"pwb_feeds/httputil"
	"pwb_feeds/logging"
	"pwb_feeds/models"
	"pwb_feeds/scheduler"
	"pwb_feeds/services"
	"pwb_feeds/storage"
	"pwb_feeds/workers"
)

var (
	probeNow = flag.Bool("probe", false, "Probe every provider once and exit")
	searchID = flag.String("search", "", "Run one search against the given provider account and print it as JSON")
	location = flag.String("location", "", "Location filter for -search")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logFile, err := logging.Setup(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		log.Warnf("could not set up file logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	log.Info("Starting pwb_feeds...")
	log.Infof("Loaded %d provider accounts", len(cfg.Providers))
	for id, pc := range cfg.Providers {
		log.Infof("  - %s (%s, %s)", pc.Name, id, pc.Provider)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients := httputil.NewClients(&cfg.HTTP)
	if cfg.HTTP.ProxyURL != "" {
		log.Infof("Proxy: %s", maskConnectionString(cfg.HTTP.ProxyURL))
	}

	providers, err := services.BuildProviders(cfg, clients.Feed, log)
	if err != nil {
		log.Fatalf("Failed to build providers: %v", err)
	}

	store, err := storage.Open(ctx, &cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to open cache store: %v", err)
	}
	defer store.Close()
	switch cfg.Cache.Driver {
	case "postgres":
		log.Infof("Cache: postgres %s", maskConnectionString(cfg.Cache.DBURL))
	case "none":
		log.Info("Cache: disabled")
	default:
		log.Infof("Cache: sqlite %s", cfg.Cache.DBPath)
	}

	feeds := services.NewFeedService(providers, store, &cfg.Cache, log)
	health := services.NewHealthcheckService(feeds, store, log)

	// Handle one-shot commands
	if *probeNow || *searchID != "" {
		var code int
		if *probeNow {
			code = runProbe(ctx, health, log)
		} else {
			code = runSearch(ctx, feeds, *searchID, *location, log)
		}
		store.Close()
		if logFile != nil {
			logFile.Close()
		}
		os.Exit(code)
	}

	// Daemon mode
	healthcheckWorker := workers.NewHealthcheckWorker(health, log)
	go healthcheckWorker.Run(ctx, 0)

	sched := scheduler.New(&cfg.Scheduler, healthcheckWorker, feeds, log)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	healthcheckWorker.Trigger()

	srv := api.NewServer(feeds, health, log).HTTPServer(cfg.ListenAddr)
	go func() {
		log.Infof("API listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	log.Info("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("API shutdown: %v", err)
	}
	sched.Stop()
	cancel()
	log.Info("Goodbye!")
}

func runProbe(ctx context.Context, health *services.HealthcheckService, log *logrus.Logger) int {
	log.Info("Probing providers...")
	code := 0
	for _, check := range health.CheckAll(ctx) {
		state := "available"
		if !check.Available {
			state = "UNAVAILABLE"
			code = 1
		}
		log.Infof("  %s: %s (%s)", check.ProviderID, state, check.Latency.Round(time.Millisecond))
	}
	return code
}

func runSearch(ctx context.Context, feeds *services.FeedService, id, loc string, log *logrus.Logger) int {
	result, err := feeds.Search(ctx, id, models.SearchParams{Location: loc})
	if err != nil {
		log.Errorf("Search failed: %v", err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Errorf("Encode result: %v", err)
		return 1
	}
	return 0
}

// maskConnectionString masks the password in a URL-style connection string for logging
func maskConnectionString(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	if _, ok := u.User.Password(); !ok {
		return connStr
	}
	return u.Redacted()
}
