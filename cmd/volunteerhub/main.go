package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/volunteerhub/volunteerhub/pkg/api"
	"github.com/volunteerhub/volunteerhub/pkg/auth"
	"github.com/volunteerhub/volunteerhub/pkg/config"
	"github.com/volunteerhub/volunteerhub/pkg/observability"
	"github.com/volunteerhub/volunteerhub/pkg/opps"
	"github.com/volunteerhub/volunteerhub/pkg/orgs"
	"github.com/volunteerhub/volunteerhub/pkg/store"
	"github.com/volunteerhub/volunteerhub/pkg/users"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "volunteerhub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"version": version,
		"driver":  cfg.Storage.Driver,
	}).Info("starting volunteerhub")

	st, err := store.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := st.Migrate(migrateCtx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	issuer := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	if cfg.Storage.Seed {
		if err := store.Seed(migrateCtx, st, hasher, store.SeedConfig{
			AdminPassword:     cfg.Auth.SeedAdminPassword,
			VolunteerPassword: cfg.Auth.SeedVolunteerPassword,
		}); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
		logger.Info("seed data loaded")
	}

	// Redis is optional. Without it, logout cannot revoke tokens early;
	// sessions simply lapse at expiry.
	var redisClient *redis.Client
	var denylist *auth.Denylist
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup, token revocation may be delayed")
		}
		cancelPing()
		denylist = auth.NewDenylist(redisClient)
	}

	userService := users.NewService(st, st, st, hasher, issuer)
	orgService := orgs.NewService(st)
	oppService := opps.NewService(st, st)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	opts := api.Options{
		Users:        userService,
		Orgs:         orgService,
		Opps:         oppService,
		Verifier:     issuer,
		Logger:       logger,
		Metrics:      metrics,
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
	if denylist != nil {
		opts.Revoker = denylist
		opts.Denylist = denylist
	}
	apiServer := api.NewServer(opts)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthChecker := observability.NewHealthChecker(st.DB(), redisClient, version)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health/live", healthChecker.Liveness)
	healthMux.HandleFunc("/health/ready", healthChecker.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:        cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:     healthMux,
		ReadTimeout: 10 * time.Second,
	}

	// Business gauges are refreshed on a schedule rather than recomputed
	// per scrape.
	scheduler := cron.New()
	if metrics != nil {
		refresh := func() {
			defer observability.RecoverPanic(logger, "gauge refresh")
			ctx, cancelRefresh := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelRefresh()

			if count, err := st.CountUsers(ctx); err == nil {
				metrics.UsersTotal.Set(float64(count))
			} else {
				logger.WithError(err).Warn("user gauge refresh failed")
			}
			if count, err := st.CountOpportunities(ctx); err == nil {
				metrics.OpportunitiesTotal.Set(float64(count))
			} else {
				logger.WithError(err).Warn("opportunity gauge refresh failed")
			}
			stats := st.DB().Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		}
		refresh()
		if _, err := scheduler.AddFunc(cfg.Observability.GaugeRefreshInterval, refresh); err != nil {
			return fmt.Errorf("invalid gauge refresh interval: %w", err)
		}
		scheduler.Start()
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.WithField("addr", server.Addr).Info("api server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server failed")
			os.Exit(1)
		}
	}()

	sm := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, server, healthServer)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		stopCtx := scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
		return nil
	})
	if redisClient != nil {
		sm.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	sm.RegisterShutdownFunc(func(context.Context) error {
		return st.Close()
	})

	return sm.WaitForShutdown()
}
