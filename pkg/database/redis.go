package database

import (
	"context"

	"gems-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// RDB 是全局的 Redis 客户端，用作解析结果缓存和消费失败计数。
var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接。
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
