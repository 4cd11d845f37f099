package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"sauti/internal/bot"
	"sauti/internal/config"
	"sauti/internal/conversation"
	"sauti/internal/queue"
	"sauti/internal/storage"
	"sauti/internal/survey"
	"sauti/internal/tracker"
	"sauti/internal/worker"
	"sauti/pkg/cache"
	"sauti/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize the logger first
	if err := logger.Init(cfg.App.Debug || cfg.IsDevelopment()); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	if err := cfg.Validate(config.RequireTelegram, config.RequireRabbitMQ, config.RequireS3); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
		return
	}

	logger.Info("Starting sauti bot service")

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	// Connect to RabbitMQ
	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		return
	}
	defer rabbitMQ.Close()

	logger.Info("RabbitMQ connection established")

	svc := survey.NewService(
		conversation.NewManager(),
		tracker.New(tracker.WithHistorySize(cfg.Tracker.HistorySize)),
	)
	go svc.RunCleanup(ctx, time.Hour, cfg.Tracker.SessionMaxAge)

	jobs := storage.NewCacheJobStore(redisCache, cfg.Redis.ResultTTL)
	submitter := worker.NewSubmitter(s3Storage, jobs, rabbitMQ)

	botInstance, err := bot.NewBot(cfg.Telegram.Token, svc, redisCache, submitter)
	if err != nil {
		logger.Fatal("Failed to initialize bot", zap.Error(err))
		return
	}

	// Start bot in a goroutine
	go func() {
		logger.Info("Starting Telegram bot")
		botInstance.Start()
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	// Graceful shutdown
	botInstance.Stop()

	logger.Info("Bot service shutdown complete")
}
