package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// VerdictCache 缓存话题判定结果，键为对话窗口内容的摘要。
type VerdictCache interface {
	// Get 的 found 为 false 表示未命中。
	Get(ctx context.Context, window string) (verdict bool, found bool, err error)
	Set(ctx context.Context, window string, verdict bool) error
}

type redisVerdictCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewVerdictCache 创建基于 Redis 的 VerdictCache。
func NewVerdictCache(redisClient *redis.Client, ttl time.Duration) VerdictCache {
	return &redisVerdictCache{redisClient: redisClient, ttl: ttl}
}

func verdictKey(window string) string {
	sum := sha256.Sum256([]byte(window))
	return "tarot:topic:" + hex.EncodeToString(sum[:])
}

func (c *redisVerdictCache) Get(ctx context.Context, window string) (bool, bool, error) {
	val, err := c.redisClient.Get(ctx, verdictKey(window)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to get topic verdict: %w", err)
	}
	return val == "1", true, nil
}

func (c *redisVerdictCache) Set(ctx context.Context, window string, verdict bool) error {
	val := "0"
	if verdict {
		val = "1"
	}
	if err := c.redisClient.Set(ctx, verdictKey(window), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set topic verdict: %w", err)
	}
	return nil
}
