package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"budget/internal/budgetapi"
	"budget/internal/cli"
	"budget/internal/events"
	apphttp "budget/internal/http"
	"budget/internal/log"
	"budget/internal/ui"
)

type publisher interface {
	ui.EventPublisher
	Close() error
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpClient := &http.Client{
		Timeout:   cfg.APITimeout,
		Transport: budgetapi.InstrumentedTransport(reg, http.DefaultTransport),
	}
	api, err := budgetapi.New(cfg.BudgetAPIURL, httpClient)
	if err != nil {
		logger.Error("Failed to initialize budget API client", log.FieldError, err, "url", cfg.BudgetAPIURL)
		os.Exit(1)
	}

	// Events are optional; without AMQP_URL mutations are not published.
	var pub publisher = events.Nop{}
	if cfg.EventsEnabled() {
		p, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP publisher", log.FieldError, err, "exchange", cfg.AMQPExchange)
			os.Exit(1)
		}
		pub = p
		logger.Info("Publishing transaction events", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Transaction events disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, api,
		apphttp.WithEvents(pub),
		apphttp.WithLogger(logger),
		apphttp.WithRegistry(reg),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
		apphttp.WithTrustedProxies(cfg.TrustedProxies...),
	)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 2*cfg.APITimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := pub.Close(); err != nil {
			logger.Error("Failed to close AMQP publisher", log.FieldError, err)
		}
	})

	logger.Info("Starting budget server", "port", cfg.Port, "api_url", api.BaseURL(), log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
