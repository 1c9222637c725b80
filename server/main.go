package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nadungimhanalk/Gemini-Image/internal/config"
	"github.com/nadungimhanalk/Gemini-Image/internal/http/handlers"
	"github.com/nadungimhanalk/Gemini-Image/internal/http/routes"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"github.com/nadungimhanalk/Gemini-Image/internal/services/batch"
	"github.com/nadungimhanalk/Gemini-Image/internal/services/generator"
	"github.com/nadungimhanalk/Gemini-Image/internal/services/history"
	"github.com/nadungimhanalk/Gemini-Image/internal/services/processor"
	"github.com/nadungimhanalk/Gemini-Image/internal/services/queue"
	"github.com/nadungimhanalk/Gemini-Image/internal/services/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize services
	gen, err := generator.NewClient(ctx, generator.Options{
		APIKey:       cfg.Gemini.APIKey,
		BaseURL:      cfg.Gemini.BaseURL,
		ImageModel:   cfg.Gemini.ImageModel,
		VideoModel:   cfg.Gemini.VideoModel,
		PollInterval: cfg.Gemini.VideoPollInterval,
		HTTPClient:   &http.Client{Timeout: cfg.Gemini.Timeout},
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
	}
	if !gen.Configured() {
		logger.Warn("GEMINI_API_KEY is not set, generation requests will fail")
	}

	proc := processor.NewImageProcessor(logger, processor.Options{
		MaxWidth: cfg.Processing.MaxWidth,
		Quality:  cfg.Processing.Quality,
	})

	redisClient := connectRedis(ctx, cfg, logger)
	storageSvc := storage.NewStorageService(cfg, redisClient, logger)

	limits := history.Limits{MaxEntries: cfg.History.MaxEntries, MaxBytes: cfg.History.MaxBytes}
	var historyStore history.Store = history.NewMemoryStore(logger, limits)
	var tracker batch.Tracker = storage.NewMemoryTracker()
	if redisClient != nil {
		historyStore = history.NewRedisStore(redisClient, logger, limits)
		tracker = storageSvc.Tracker()
	}

	runner := batch.NewRunner(gen, historyStore, logger, batch.Options{
		Delay:      cfg.Batch.Delay,
		JobTimeout: cfg.Batch.JobTimeout,
	})
	manager := batch.NewManager(runner, tracker, func(opts models.ProcessingOptions) batch.PostProcessor {
		return processor.NewPipeline(proc, opts)
	}, logger, batch.ManagerOptions{
		MaxSize:            cfg.Batch.MaxSize,
		CancelPollInterval: cfg.Batch.CancelPoll,
	})

	queueSvc, err := queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, manager, logger)
	if err != nil {
		logger.Warn("Failed to initialize queue service, running batches in-process", zap.Error(err))
		// Continue without queue service for basic functionality
		queueSvc = nil
	} else {
		manager.SetPublisher(queueSvc)
	}

	// Initialize handlers
	var queueHealth handlers.QueueHealth
	if queueSvc != nil {
		queueHealth = queueSvc
	}
	router := routes.NewRouter(
		handlers.NewImageHandler(gen, proc, historyStore, logger, cfg),
		handlers.NewBatchHandler(manager, storageSvc, logger, cfg),
		handlers.NewHistoryHandler(historyStore, logger),
		handlers.NewHealthHandler(storageSvc, queueHealth, gen.Configured),
		logger,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if queueSvc != nil {
		g.Go(func() error {
			return queueSvc.RunWorker(gctx, 1)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Error("Batches did not stop in time", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	if queueSvc != nil {
		queueSvc.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}

// connectRedis returns nil when Redis is disabled or unreachable; callers
// fall back to in-memory stores.
func connectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		logger.Info("Redis disabled, using in-memory stores")
		return nil
	}

	client := storage.NewRedisClient(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, using in-memory stores",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err))
		client.Close()
		return nil
	}
	return client
}
