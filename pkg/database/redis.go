package database

import (
	"context"

	"tarot-ai-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// RDB 为 nil 表示未配置 Redis，依赖它的功能会被跳过。
var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接
func InitRedis(addr, password string, db int) {
	RDB = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx := context.Background()
	if err := RDB.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", err)
	}

	log.Info("Redis client connected successfully")
}
