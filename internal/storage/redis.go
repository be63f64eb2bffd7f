package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging"
	"dealer-inventory/pkg/models"
)

// RedisStore persists the latest snapshot so a fresh process can serve
// inventory before its first upstream fetch completes.
type RedisStore struct {
	client  *redis.Client
	key     string
	ttl     time.Duration
	timeout time.Duration
	logger  logging.Logger
}

// NewRedisStore creates a store from the redis section of cfg.
func NewRedisStore(cfg *config.Config, logger logging.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	timeout := cfg.Redis.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout

	return &RedisStore{
		client:  redis.NewClient(opts),
		key:     cfg.Redis.Key,
		ttl:     cfg.Redis.TTL,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Load returns the persisted snapshot. A missing key is not an error.
func (s *RedisStore) Load(ctx context.Context) (models.Snapshot, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		return models.Snapshot{}, false, err
	}
	return snapshot, true, nil
}

// Save overwrites the persisted snapshot.
func (s *RedisStore) Save(ctx context.Context, snapshot models.Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.Debug("Snapshot persisted", map[string]interface{}{
		"key":      s.key,
		"listings": len(snapshot.Listings),
		"bytes":    len(data),
	})
	return nil
}

// Ping tests the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeSnapshot(snapshot models.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (models.Snapshot, error) {
	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snapshot.FetchedAt.IsZero() {
		return models.Snapshot{}, errors.New("persisted snapshot has no fetch time")
	}
	if snapshot.Listings == nil {
		snapshot.Listings = []models.Listing{}
	}
	return snapshot, nil
}
