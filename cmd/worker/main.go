package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"sauti/internal/bot"
	"sauti/internal/config"
	"sauti/internal/queue"
	"sauti/internal/speech"
	"sauti/internal/storage"
	"sauti/internal/wer"
	"sauti/internal/worker"
	"sauti/pkg/cache"
	"sauti/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := logger.Init(cfg.App.Debug || cfg.IsDevelopment()); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	if err := cfg.Validate(config.RequireRabbitMQ, config.RequireS3, config.RequireOpenAI); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
		return
	}

	logger.Info("Starting sauti worker service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize S3 storage from config
	s3Storage, err := storage.NewS3Storage(ctx, storage.S3Options{
		Endpoint:  cfg.S3.Endpoint,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    cfg.S3.Bucket,
	})
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", zap.Error(err))
		return
	}

	logger.Info("S3 storage initialized")

	// Initialize Whisper client
	sttClient := speech.NewClient(cfg.OpenAI.APIKey,
		speech.WithBaseURL(cfg.OpenAI.BaseURL),
		speech.WithModel(cfg.OpenAI.Model),
		speech.WithTimeout(cfg.OpenAI.Timeout),
		speech.WithMockFallback(cfg.IsDevelopment()),
	)

	logger.Info("Speech client initialized", zap.String("model", cfg.OpenAI.Model))

	// Initialize Redis cache
	redisCache, err := cache.NewRedisCache(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.ResultTTL,
	)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
		return
	}
	defer redisCache.Close()

	logger.Info("Redis cache connection established")

	// Connect to RabbitMQ
	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		return
	}
	defer rabbitMQ.Close()

	logger.Info("RabbitMQ connection established")

	opts := []worker.Option{
		worker.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Worker.RequestsPerSecond), 1)),
	}
	if cfg.Telegram.Token != "" {
		notifier, err := bot.NewNotifier(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal("Failed to create Telegram notifier", zap.Error(err))
			return
		}
		opts = append(opts, worker.WithNotifier(notifier))
		logger.Info("Telegram notifications enabled")
	}

	processor := worker.NewProcessor(
		storage.NewCacheJobStore(redisCache, cfg.Redis.ResultTTL),
		s3Storage,
		sttClient,
		wer.New(),
		opts...,
	)

	metricsServer := &http.Server{
		Addr:              cfg.Worker.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Metrics server listening", zap.String("addr", cfg.Worker.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// Start consuming messages
	err = rabbitMQ.Consume(ctx, queue.QueueNameTranscription, cfg.Worker.Concurrency, processor.ProcessJob)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Failed to consume messages", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("Worker service shutdown complete")
}
