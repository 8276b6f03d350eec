package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/pricetrack/backend-go/internal/config"
	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHistoryKey(t *testing.T) {
	rng, err := domain.ParseDateRange("2024-01-01", "2024-06-30")
	require.NoError(t, err)
	same, err := domain.ParseDateRange("2024-01-01", "2024-06-30")
	require.NoError(t, err)
	other, err := domain.ParseDateRange("2024-01-02", "2024-06-30")
	require.NoError(t, err)

	key := buildHistoryKey("42", rng)
	assert.True(t, strings.HasPrefix(key, "history:42:"))
	assert.Len(t, strings.TrimPrefix(key, "history:42:"), 40)

	assert.Equal(t, key, buildHistoryKey(domain.ParseID("042"), same), "normalized ids and equal ranges share a key")
	assert.NotEqual(t, key, buildHistoryKey("42", other))
	assert.NotEqual(t, key, buildHistoryKey("43", rng))
	assert.NotEqual(t, buildHistoryKey("42", domain.DateRange{}), key)
}

func TestNoopHistoryCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewHistoryCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	require.NoError(t, c.SetHistory(ctx, "1", domain.DateRange{}, &domain.History{}))
	h, ok, err := c.GetHistory(ctx, "1", domain.DateRange{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, h)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache.internal", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@redis.example:6390/3"})
	require.NoError(t, err)
	assert.Equal(t, "redis.example:6390", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}

func TestHistoryTTL(t *testing.T) {
	assert.Equal(t, defaultHistoryTTL, historyTTL(0))
	assert.Equal(t, defaultHistoryTTL, historyTTL(-time.Second))
	assert.Equal(t, 90*time.Second, historyTTL(90*time.Second))

	c := NewRedisHistoryCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), 0).(*redisHistoryCache)
	assert.Equal(t, defaultHistoryTTL, c.ttl)
}

func TestPurgeHistory_ScopedToHistoryKeys(t *testing.T) {
	hook := &recordingHook{}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(hook)
	defer client.Close()

	hook.scan = func(cmd *redis.ScanCmd) {
		if hook.scans == 1 {
			cmd.SetVal([]string{"history:1:a", "history:2:b"}, 7)
			return
		}
		cmd.SetVal([]string{"history:3:c"}, 0)
	}

	deleted, err := purgeHistory(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.Equal(t, []string{"history:*", "history:*"}, hook.patterns)
	assert.Equal(t, [][]string{{"history:1:a", "history:2:b"}, {"history:3:c"}}, hook.unlinked)
}

func TestPurgeHistory_ScanError(t *testing.T) {
	hook := &recordingHook{scanErr: errors.New("connection reset")}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(hook)
	defer client.Close()

	_, err := purgeHistory(context.Background(), client)
	assert.ErrorContains(t, err, "scan history keys")
}

// recordingHook answers SCAN and UNLINK in process instead of reaching a server.
type recordingHook struct {
	scans    int
	scan     func(cmd *redis.ScanCmd)
	scanErr  error
	patterns []string
	unlinked [][]string
}

func (h *recordingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *recordingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *recordingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		switch c := cmd.(type) {
		case *redis.ScanCmd:
			h.scans++
			args := c.Args()
			for i := 0; i+1 < len(args); i++ {
				if args[i] == "match" {
					h.patterns = append(h.patterns, args[i+1].(string))
				}
			}
			if h.scanErr != nil {
				c.SetErr(h.scanErr)
				return h.scanErr
			}
			h.scan(c)
			return nil
		case *redis.IntCmd:
			if c.Name() == "unlink" {
				var keys []string
				for _, arg := range c.Args()[1:] {
					keys = append(keys, arg.(string))
				}
				h.unlinked = append(h.unlinked, keys)
				c.SetVal(int64(len(keys)))
				return nil
			}
		}
		return next(ctx, cmd)
	}
}
