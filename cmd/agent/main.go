package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"coffeebeat/internal/api"
	"coffeebeat/internal/cart"
	"coffeebeat/internal/client"
	"coffeebeat/internal/config"
	"coffeebeat/internal/domain"
	"coffeebeat/internal/events"
	"coffeebeat/internal/export"
	"coffeebeat/internal/logging"
	"coffeebeat/internal/metrics"
	"coffeebeat/internal/reconciler"
	"coffeebeat/internal/repository"
	"coffeebeat/internal/service"
	"coffeebeat/internal/store"
	"coffeebeat/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	localStore, err := store.New(cfg.Store.Path, &logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer localStore.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var redisOverrides *repository.RedisOverrideRepository
	var overrides domain.OverrideRepository
	memOverrides := repository.NewMemoryOverrideRepository()
	if redisClient != nil {
		redisOverrides = repository.NewRedisOverrideRepository(redisClient, 24*time.Hour)
		overrides = repository.NewFailoverOverrideRepository(redisOverrides, memOverrides, &logger)
	} else {
		overrides = memOverrides
	}

	eventBus := events.NewEventBus()
	backend := client.New(cfg.Backend, &logger)
	session := service.NewSession()

	if email := os.Getenv("COFFEEBEAT_EMAIL"); email != "" {
		user, err := backend.Login(ctx, email, os.Getenv("COFFEEBEAT_PASSWORD"))
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		session.SignIn(user)
		logger.Info().Str("user", user.Name).Str("role", user.Role.DisplayName()).Msg("signed in")
	} else {
		logger.Warn().Msg("COFFEEBEAT_EMAIL not set, running unauthenticated")
	}

	recon := reconciler.New(cfg.VenueLocation(), &logger)
	bookings := service.NewBookingService(backend, overrides, localStore, recon, eventBus, &logger)
	carts := cart.NewBuilder(localStore, backend, eventBus, &logger)
	exporter := export.New(cfg.Exports.Path)

	metrics.Register()
	startMetrics(ctx, cfg, &logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		bookings.Run(ctx)
	}()
	<-bookings.Ready()

	poller := worker.NewPoller(bookings, cfg.Poller.Interval, session.IsStaff(), worker.RetryPolicy{}, &logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(ctx)
	}()

	if redisOverrides != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.RelayClearedSignals(ctx, redisOverrides, bookings, &logger)
		}()
	}

	if cfg.API.Enabled {
		httpServer := api.NewHTTPServer(cfg.API, bookings, carts, exporter, &logger)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	wg.Wait()
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "agent-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		logger.Warn().Msg("redis not configured, cross-view signals limited to this process")
		return nil
	}
	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, falling back to memory overrides")
		_ = redisClient.Close()
		return nil
	}
	return redisClient
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Monitoring.PrometheusPort).Msg("metrics listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
