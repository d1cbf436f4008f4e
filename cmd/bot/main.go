package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmdelhajj/whatsapp-bot-complete/internal/ai"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/brains"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/cache"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/config"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/convo"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/handlers"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/metrics"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/repo"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/wa"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed loading config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting whatsapp bot", "env", cfg.AppEnv, "store", cfg.StoreName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redis, err := cache.New(ctx, cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TLS:      cfg.RedisTLS,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redis.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(cfg.MetricsNamespace, registry)

	repository := repo.New(pool, logger)

	gateway := wa.New(wa.Config{
		APIURL:        cfg.WhatsAppAPIURL,
		AccountID:     cfg.WhatsAppAccountID,
		Secret:        cfg.WhatsAppSendSecret,
		CountryPrefix: cfg.CountryPrefix,
		Timeout:       cfg.WhatsAppTimeout,
	}, logger, m)

	accounts := brains.New(brains.Config{
		BaseURL: cfg.BrainsBaseURL,
		APIKey:  cfg.BrainsAPIKey,
		Timeout: cfg.BrainsTimeout,
	}, logger, m)

	completer := ai.New(ai.Config{
		APIURL:    cfg.AnthropicAPIURL,
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.AnthropicModel,
		MaxTokens: cfg.AnthropicMaxTokens,
		Timeout:   cfg.AnthropicTimeout,
		Store: ai.StoreProfile{
			Name:     cfg.StoreName,
			Location: cfg.StoreLocation,
			Currency: cfg.Currency,
		},
	}, logger, m)

	engine := convo.New(repository, gateway, completer, accounts, redis, m, convo.Config{
		StoreName:      cfg.StoreName,
		StoreLocation:  cfg.StoreLocation,
		StoreLatitude:  cfg.StoreLatitude,
		StoreLongitude: cfg.StoreLongitude,
		Currency:       cfg.Currency,
		CountryPrefix:  cfg.CountryPrefix,
		ContextWindow:  cfg.ContextWindow,
	}, logger)

	mux := http.NewServeMux()
	mux.Handle("/webhook/whatsapp", handlers.NewWebhook(engine, cfg.WhatsAppWebhookSecret, logger))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
