package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sauti/internal/api"
	"sauti/internal/config"
	"sauti/internal/conversation"
	"sauti/internal/queue"
	"sauti/internal/storage"
	"sauti/internal/survey"
	"sauti/internal/tracker"
	"sauti/internal/wer"
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

	// Initialize logger
	if err := logger.Init(cfg.App.Debug || cfg.IsDevelopment()); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
		return
	}

	logger.Info("Starting sauti API server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is optional for the API: results are memoized in-process without it
	var resultCache cache.Cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ResultTTL)
	if err != nil {
		logger.Warn("Redis unavailable, using in-memory cache", zap.Error(err))
		resultCache = cache.NewMemoryCache(cfg.Redis.ResultTTL)
	} else {
		logger.Info("Redis cache connection established")
		resultCache = redisCache
	}
	defer resultCache.Close()

	calc := wer.New()
	svc := survey.NewService(
		conversation.NewManager(),
		tracker.New(
			tracker.WithHistorySize(cfg.Tracker.HistorySize),
			tracker.WithCalculator(calc),
		),
	)

	deps := []api.Option{api.WithCache(resultCache)}

	// Speech uploads need S3 and RabbitMQ
	if cfg.Validate(config.RequireS3, config.RequireRabbitMQ) == nil {
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

		rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
			return
		}
		defer rabbitMQ.Close()

		jobs := storage.NewCacheJobStore(resultCache, cfg.Redis.ResultTTL)
		deps = append(deps, api.WithJobs(worker.NewSubmitter(s3Storage, jobs, rabbitMQ), jobs))

		logger.Info("Speech pipeline enabled")
	} else {
		logger.Warn("S3 or RabbitMQ not configured, speech endpoints disabled")
	}

	server := api.NewServer(svc, calc, api.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit:      cfg.HTTP.RateLimit,
		RateWindow:     cfg.HTTP.RateWindow,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		MaxWords:       cfg.WER.MaxWords,
		ResultTTL:      cfg.Redis.ResultTTL,
	}, deps...)

	go svc.RunCleanup(ctx, time.Hour, cfg.Tracker.SessionMaxAge)
	go server.RunLimiterCleanup(ctx, cfg.HTTP.RateWindow)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("API server shutdown complete")
}
