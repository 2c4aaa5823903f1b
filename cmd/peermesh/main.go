package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"peermesh/internal/config"
	"peermesh/internal/federation"
	"peermesh/internal/handlers"
	"peermesh/internal/health"
	"peermesh/internal/metrics"
	"peermesh/internal/state"
	"peermesh/internal/transfer"
	envcfg "peermesh/pkg/config"
	"peermesh/pkg/logging"
	"peermesh/pkg/middleware"
	"peermesh/pkg/version"
)

// shutdownGrace bounds the drain of both servers during shutdown.
const shutdownGrace = 5 * time.Second

func main() {
	logger := logging.NewLoggerWithService("peermesh")
	envcfg.LoadEnv(logger)

	configPath := envcfg.GetEnv("PEER_CONFIG", "configs/peer1.json")
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load peer configuration")
	}

	logger.WithFields(logging.Fields{
		"peer":    cfg.Name,
		"version": version.Version,
		"commit":  version.GetShortCommit(),
	}).Info("Starting peer")

	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		logger.WithError(err).Fatal("Failed to create storage directory")
	}

	stateMgr := state.NewManager(state.ManagerConfig{
		SelfURL:      cfg.SelfURL,
		SnapshotPath: cfg.SnapshotPath(),
		Logger:       logger,
	})
	collector := metrics.NewCollector(cfg.Name)

	checker := health.NewChecker(health.CheckerConfig{
		SelfURL:  cfg.SelfURL,
		Interval: time.Duration(cfg.HealthCheckInterval) * time.Second,
		PruneTTL: time.Duration(cfg.PeerTTL) * time.Second,
		State:    stateMgr,
		Metrics:  collector,
		Logger:   logger,
	})
	checker.Start()
	defer checker.Stop()

	fedClient := federation.NewClient(federation.ClientConfig{Logger: logger})
	searcher := federation.NewSearcher(federation.SearcherConfig{
		SelfURL:   cfg.SelfURL,
		GRPCAddr:  fmt.Sprintf("grpc://%s:%d", cfg.IP, cfg.GRPCPort),
		SharedDir: cfg.SharedDir,
		MaxFanout: cfg.MaxFanout,
		State:     stateMgr,
		Metrics:   collector,
		Fetcher:   fedClient,
		Logger:    logger,
	})

	api := handlers.New(handlers.HandlersConfig{
		Config:  cfg,
		State:   stateMgr,
		Prober:  checker,
		Search:  searcher,
		Friends: fedClient,
		Metrics: collector,
		Logger:  logger,
		Start:   time.Now(),
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORSMiddleware())
	router.Use(collector.GinMiddleware())
	router.Use(middleware.RateLimitMiddleware(stateMgr, cfg.RateLimit.RequestsPerMinute, func() {
		collector.RecordRateLimitHit("requests")
	}))
	api.RegisterRoutes(router)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.IP, cfg.RestPort),
		Handler: router,
	}

	transferSvc := transfer.NewService(transfer.ServiceConfig{
		PeerName:           cfg.Name,
		SharedDir:          cfg.SharedDir,
		DownloadsPerMinute: cfg.RateLimit.DownloadsPerMinute,
		Limiter:            stateMgr,
		Metrics:            collector,
		Logger:             logger,
	})
	grpcSrv := transfer.NewServer(transferSvc)

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		logger.WithField("addr", httpSrv.Addr).Info("REST surface listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.IP, cfg.GRPCPort)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("grpc listen on %s: %w", addr, err)
		}
		logger.WithField("addr", addr).Info("Transfer surface listening")
		if err := grpcSrv.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	// Announce ourselves to the configured friends once the servers are up.
	go bootstrap(cfg, stateMgr, checker, fedClient, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("Shutting down")
	case <-ctx.Done():
		logger.Error("Server exited unexpectedly, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown incomplete")
	}

	stopped := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownGrace):
		grpcSrv.Stop()
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server error during shutdown")
	}
	logger.Info("Peer stopped")
}

// bootstrap performs one registration pass against the configured friends.
// Unreachable friends are logged and left for the health sweeps to pick up
// once they appear.
func bootstrap(cfg *config.Config, stateMgr *state.Manager, checker *health.Checker, fedClient *federation.Client, logger logging.Logger) {
	for _, friend := range []string{cfg.FriendPrimary, cfg.FriendSecondary} {
		if friend == "" || friend == cfg.SelfURL {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := fedClient.Register(ctx, friend, cfg.SelfURL)
		cancel()

		if err != nil {
			logger.WithError(err).WithField("friend", friend).Warn("Startup registration failed")
			continue
		}

		stateMgr.RegisterPeer(friend)
		if checker.ProbeNow(friend) {
			stateMgr.MarkHealthy(friend)
			logger.WithField("friend", friend).Info("Registered with friend")
		} else {
			stateMgr.MarkFailed(friend)
			logger.WithField("friend", friend).Warn("Friend registered but failed its probe")
		}
	}
}
