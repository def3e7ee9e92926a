package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"finml/internal/amqp"
	"finml/internal/anomaly"
	"finml/internal/backend"
	"finml/internal/cli"
	"finml/internal/forecast"
	apphttp "finml/internal/http"
	"finml/internal/llm"
	applog "finml/internal/log"
	"finml/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger("info", applog.FormatText)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	logger.Info("Starting finml", "port", cfg.Port, "backend", cfg.DataBackend)

	result := cli.InitBackend(context.Background(), logger, cfg)

	// Insight events are optional; the API works without a broker.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, insight events disabled", "error", err)
		} else {
			amqpClient = client
			publisher = client
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	completer := llm.NewOpenAIClient(llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		BaseURL:     cfg.OpenAIBaseURL,
		Temperature: float32(cfg.LLMTemperature),
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	})
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, /chat will return errors")
	}

	forecaster := forecast.New(forecast.Config{Trees: cfg.ForecastTrees, Seed: cfg.ForecastSeed})
	detector := anomaly.New(anomaly.Config{
		Trees:         cfg.AnomalyTrees,
		Contamination: cfg.AnomalyContamination,
		Seed:          cfg.AnomalySeed,
	})

	insights := services.NewInsightsService(result.Backend, forecaster, detector, publisher)
	advisor := services.NewAdvisorService(result.Backend, completer)

	var ready apphttp.ReadinessCheck
	if p, ok := result.Backend.(backend.Pinger); ok {
		ready = p.Ping
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Logger:             applog.New(applog.Config{Handler: logger.Handler(), Component: applog.ComponentHTTP}),
		Insights:           insights,
		Advisor:            advisor,
		Ready:              ready,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
