package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/andresuchdata/pricetrack/backend-go/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	defaultHistoryTTL = 5 * time.Minute
	dialTimeout       = 5 * time.Second
	purgeScanCount    = 100
)

// historyTTL falls back to the default expiry for a non-positive ttl.
func historyTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultHistoryTTL
	}
	return ttl
}

// dialRedis connects and pings once so a misconfigured cache fails at startup.
func dialRedis(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", opts.Addr, err)
	}
	return client, nil
}

// buildRedisOptions prefers REDIS_URL and otherwise assembles host, port and db.
func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// purgeHistory unlinks every cached history entry and reports how many keys
// went away. Keys outside the history namespace are never touched.
func purgeHistory(ctx context.Context, client redis.UniversalClient) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, historyKeyPrefix+"*", purgeScanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan history keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := client.Unlink(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("unlink history keys: %w", err)
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
