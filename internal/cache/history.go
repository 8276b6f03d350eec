package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/pricetrack/backend-go/internal/config"
	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const historyKeyPrefix = "history:"

// HistoryCache stores product history responses keyed by product and date range.
type HistoryCache interface {
	GetHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, bool, error)
	SetHistory(ctx context.Context, productID domain.ID, rng domain.DateRange, history *domain.History) error
	InvalidateAll(ctx context.Context) error
}

type redisHistoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopHistoryCache struct{}

func NewHistoryCache(cfg config.CacheConfig) (HistoryCache, error) {
	if !cfg.Enabled {
		return &noopHistoryCache{}, nil
	}

	client, err := dialRedis(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisHistoryCache(client, time.Duration(cfg.HistoryTTLSeconds)*time.Second), nil
}

// NewRedisHistoryCache wraps an existing client. A non-positive ttl uses the default.
func NewRedisHistoryCache(client *redis.Client, ttl time.Duration) HistoryCache {
	return &redisHistoryCache{client: client, ttl: historyTTL(ttl)}
}

func NewNoopHistoryCache() HistoryCache {
	return &noopHistoryCache{}
}

func (c *redisHistoryCache) GetHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, bool, error) {
	key := buildHistoryKey(productID, rng)

	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var history domain.History
	if err := json.Unmarshal(payload, &history); err != nil {
		return nil, false, fmt.Errorf("decode history cache: %w", err)
	}

	return &history, true, nil
}

func (c *redisHistoryCache) SetHistory(ctx context.Context, productID domain.ID, rng domain.DateRange, history *domain.History) error {
	if history == nil {
		return nil
	}

	key := buildHistoryKey(productID, rng)
	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisHistoryCache) InvalidateAll(ctx context.Context) error {
	deleted, err := purgeHistory(ctx, c.client)
	if err != nil {
		return err
	}
	log.Debug().Int("keys", deleted).Msg("cache: history purged")
	return nil
}

func (n *noopHistoryCache) GetHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, bool, error) {
	return nil, false, nil
}

func (n *noopHistoryCache) SetHistory(ctx context.Context, productID domain.ID, rng domain.DateRange, history *domain.History) error {
	return nil
}

func (n *noopHistoryCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// buildHistoryKey keeps the product id readable and hashes the range.
func buildHistoryKey(productID domain.ID, rng domain.DateRange) string {
	hash := sha1.Sum([]byte(rng.Key()))
	return fmt.Sprintf("%s%s:%s", historyKeyPrefix, productID, hex.EncodeToString(hash[:]))
}
