package storage

import (
	"errors"
	"time"

	"github.com/nadungimhanalk/Gemini-Image/internal/config"
	"github.com/redis/go-redis/v9"
	storage_go "github.com/supabase-community/storage-go"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by publishing calls when Supabase settings are missing.
var ErrNotConfigured = errors.New("object storage is not configured")

type StorageService struct {
	sbClient      *storage_go.Client
	redisClient   *redis.Client
	bucket        string
	cacheDuration time.Duration
	logger        *zap.Logger
}

// NewStorageService wires Supabase Storage when it is configured. redisClient
// may be nil when Redis is disabled.
func NewStorageService(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *StorageService {
	if logger == nil {
		logger = zap.NewNop()
	}

	var sbClient *storage_go.Client
	if cfg.SupabaseConfigured() {
		sbClient = storage_go.NewClient(cfg.Supabase.URL+"/storage/v1", cfg.Supabase.KEY, nil)
	}

	cacheDuration := cfg.Storage.CacheDuration
	if cacheDuration <= 0 {
		cacheDuration = 24 * time.Hour
	}

	return &StorageService{
		sbClient:      sbClient,
		redisClient:   redisClient,
		bucket:        cfg.Supabase.BUCKET,
		cacheDuration: cacheDuration,
		logger:        logger,
	}
}

// NewRedisClient builds the shared Redis client from config.
func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// PublishingEnabled reports whether exports can be uploaded.
func (s *StorageService) PublishingEnabled() bool {
	return s.sbClient != nil
}
