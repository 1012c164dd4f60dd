package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/textweather/internal/circuitbreaker"
	"github.com/kjstillabower/textweather/internal/client"
	"github.com/kjstillabower/textweather/internal/config"
	"github.com/kjstillabower/textweather/internal/controller"
	"github.com/kjstillabower/textweather/internal/favorites"
	httphandler "github.com/kjstillabower/textweather/internal/http"
	"github.com/kjstillabower/textweather/internal/lifecycle"
	"github.com/kjstillabower/textweather/internal/observability"
	"github.com/kjstillabower/textweather/internal/storage"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	// Rebuild at the configured level; .env and the YAML file may set it.
	if l, err := observability.NewLoggerWithLevel(cfg.LogLevel); err == nil {
		logger = l
	}

	slot, err := storage.Open(storageOptions(cfg))
	if err != nil {
		logger.Fatal("storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	logger.Info("storage backend", zap.String("backend", cfg.StorageBackend))

	gateway := client.New(client.Config{
		NominatimURL: cfg.NominatimURL,
		NWSURL:       cfg.NWSURL,
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.GatewayTimeout,
		Logger:       logger,
	})
	if cfg.CircuitBreakerEnabled {
		for _, svc := range []string{client.ServiceNominatim, client.ServiceNWSPoints, client.ServiceNWSForecast} {
			gateway.SetCircuitBreaker(svc, circuitbreaker.New(circuitbreaker.Config{
				FailureThreshold: cfg.CircuitBreakerFailureThreshold,
				SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
				Timeout:          cfg.CircuitBreakerTimeout,
				Component:        svc,
			}))
		}
		logger.Info("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold),
			zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	store := favorites.NewStore(slot, nil, logger)
	ctrl := controller.New(store, gateway,
		controller.WithLogger(logger),
		controller.WithFetchTimeout(cfg.ForecastTimeout))
	initCtx, initCancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	ctrl.Init(initCtx)
	initCancel()

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
		StoragePing:          slot.Ping,
	}
	handler := httphandler.NewHandler(ctrl, healthConfig, logger, cfg.SearchMinLength, cfg.SearchMaxLength)
	router := httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout)
	observability.RegisterRateLimitGauges(cfg.OverloadWindow)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", "http://localhost:"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.Shutdown(context.Background(), logger,
		lifecycle.Step{Name: "http_server", Timeout: cfg.ShutdownTimeout, Run: srv.Shutdown},
		lifecycle.Step{Name: "in_flight_requests", Timeout: cfg.ShutdownInFlightTimeout, Run: func(ctx context.Context) error {
			logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
			return httphandler.WaitForInFlight(ctx, cfg.ShutdownInFlightCheckInterval)
		}},
		lifecycle.Step{Name: "forecast_fetches", Timeout: cfg.ForecastTimeout, Run: ctrl.Wait},
		lifecycle.Step{Name: "storage", Run: func(context.Context) error { return slot.Close() }},
	)
	logger.Info("shutdown complete")
	_ = observability.Flush(logger)
}

func storageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Backend:               cfg.StorageBackend,
		Dir:                   cfg.StorageDir,
		SQLitePath:            cfg.SQLitePath,
		MemcachedAddrs:        cfg.MemcachedAddrs,
		MemcachedTimeout:      cfg.MemcachedTimeout,
		MemcachedMaxIdleConns: cfg.MemcachedMaxIdleConns,
	}
}
