package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pokercrm/playtime/internal/config"
	"github.com/pokercrm/playtime/internal/domain"
)

const (
	keyPrefix      = "playtime:"
	leaderboardSet = keyPrefix + "leaderboard:keys"
	playerNamesKey = keyPrefix + "players:names"
)

// LeaderboardCache stores computed leaderboards and player names in Redis.
// Leaderboards are keyed by period and window start so that a new window
// never reads the previous one's board.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewLeaderboardCache creates a new Redis leaderboard cache
func NewLeaderboardCache(cfg *config.RedisConfig, logger *slog.Logger) (*LeaderboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewLeaderboardCacheWithClient(client, cfg.LeaderboardTTL, logger), nil
}

// NewLeaderboardCacheWithClient wraps an existing client
func NewLeaderboardCacheWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Close closes the Redis connection
func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *LeaderboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// LeaderboardKey returns the Redis key of a period's board for the window
// starting on windowStart (YYYY-MM-DD)
func LeaderboardKey(period domain.Period, windowStart string) string {
	return fmt.Sprintf("%sleaderboard:%s:%s", keyPrefix, period, windowStart)
}

// GetLeaderboard returns the cached board, or domain.ErrCacheMiss
func (c *LeaderboardCache) GetLeaderboard(ctx context.Context, period domain.Period, windowStart string) (*domain.Leaderboard, error) {
	data, err := c.client.Get(ctx, LeaderboardKey(period, windowStart)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("getting cached leaderboard: %w", err)
	}

	var lb domain.Leaderboard
	if err := json.Unmarshal(data, &lb); err != nil {
		return nil, fmt.Errorf("decoding cached leaderboard: %w", err)
	}
	return &lb, nil
}

// SetLeaderboard caches a board under its period and window start
func (c *LeaderboardCache) SetLeaderboard(ctx context.Context, lb *domain.Leaderboard) error {
	data, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("encoding leaderboard: %w", err)
	}

	key := LeaderboardKey(lb.Period, lb.StartDate)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, c.ttl)
	pipe.SAdd(ctx, leaderboardSet, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("caching leaderboard: %w", err)
	}
	return nil
}

// InvalidateLeaderboards drops every cached board
func (c *LeaderboardCache) InvalidateLeaderboards(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, leaderboardSet).Result()
	if err != nil {
		return fmt.Errorf("listing cached leaderboards: %w", err)
	}

	pipe := c.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, leaderboardSet)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidating leaderboards: %w", err)
	}

	c.logger.Debug("invalidated cached leaderboards", "count", len(keys))
	return nil
}

// SetPlayerNames caches player display names
func (c *LeaderboardCache) SetPlayerNames(ctx context.Context, names map[int64]string) error {
	if len(names) == 0 {
		return nil
	}

	values := make(map[string]interface{}, len(names))
	for id, name := range names {
		values[strconv.FormatInt(id, 10)] = name
	}
	if err := c.client.HSet(ctx, playerNamesKey, values).Err(); err != nil {
		return fmt.Errorf("caching player names: %w", err)
	}
	return nil
}

// PlayerNames returns the cached names of the given players. Players
// without a cached name are left out.
func (c *LeaderboardCache) PlayerNames(ctx context.Context, playerIDs []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(playerIDs))
	if len(playerIDs) == 0 {
		return names, nil
	}

	fields := make([]string, len(playerIDs))
	for i, id := range playerIDs {
		fields[i] = strconv.FormatInt(id, 10)
	}

	values, err := c.client.HMGet(ctx, playerNamesKey, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("getting cached player names: %w", err)
	}
	for i, v := range values {
		if name, ok := v.(string); ok {
			names[playerIDs[i]] = name
		}
	}
	return names, nil
}
