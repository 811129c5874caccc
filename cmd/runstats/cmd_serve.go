package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/HerbHall/runstats/internal/auth"
	"github.com/HerbHall/runstats/internal/config"
	"github.com/HerbHall/runstats/internal/event"
	"github.com/HerbHall/runstats/internal/probe"
	"github.com/HerbHall/runstats/internal/series"
	"github.com/HerbHall/runstats/internal/server"
	"github.com/HerbHall/runstats/internal/store"
	"github.com/HerbHall/runstats/internal/version"
	"github.com/HerbHall/runstats/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// runServe runs the series service until SIGINT or SIGTERM.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Load configuration (before logger, so log level/format can be configured).
	v, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("runstats server starting", zap.String("version", version.Short()))
	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open database
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.CheckVersion(ctx, version.Version); err != nil {
		return err
	}
	checkpoints, err := series.OpenCheckpointStore(ctx, db)
	if err != nil {
		return err
	}
	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", cfg.Database.Path),
	)

	bus := event.NewBus(logger.Named("event"))

	manager := series.NewManager(cfg.Series, logger.Named("series"),
		series.WithCheckpointStore(checkpoints),
		series.WithPublisher(bus),
	)
	n, err := manager.Load(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoints: %w", err)
	}
	logger.Info("series restored", zap.String("component", "series"), zap.Int("count", n))
	if err := manager.Start(ctx); err != nil {
		return err
	}
	prometheus.MustRegister(series.NewCollector(manager))

	wsHandler := ws.NewHandler(manager, bus, cfg.Stream, logger.Named("ws"))
	if err := wsHandler.Start(ctx); err != nil {
		return err
	}

	prober := probe.NewProber(cfg.Probe, probe.NewICMPPinger(cfg.Probe.Privileged), manager, logger.Named("probe"))
	if err := prober.Start(ctx); err != nil {
		return err
	}
	if len(cfg.Probe.Targets) > 0 {
		logger.Info("prober started",
			zap.String("component", "probe"),
			zap.Strings("targets", cfg.Probe.Targets),
			zap.Duration("interval", cfg.Probe.Interval),
		)
	}

	var extra []server.Middleware
	if cfg.Auth.Enabled() {
		tokens := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
		extra = append(extra, auth.Middleware(tokens))
		logger.Info("bearer token auth enabled", zap.String("component", "auth"))
	} else {
		logger.Warn("auth.jwt_secret not set, API writes are unauthenticated",
			zap.String("component", "auth"),
		)
	}

	readyCheck := server.ReadinessChecker(db.Ping)
	srv := server.New(cfg.Server.Addr(), logger, readyCheck, cfg.Server.DevMode, extra,
		series.NewHandler(manager, logger.Named("series")),
		wsHandler,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("runstats server ready", zap.String("addr", cfg.Server.Addr()))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = prober.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	_ = wsHandler.Stop(shutdownCtx)
	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Error("final checkpoint failed", zap.Error(err))
		serveErr = errors.Join(serveErr, err)
	}

	logger.Info("runstats server stopped")
	return serveErr
}
