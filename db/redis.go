package db

import (
	"context"
	"fmt"
	"time"

	"ParkMe/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient 创建 redis 客户端并做一次连通性检查
func NewRedisClient(redisConfig config.RedisConf) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: redisConfig.PassWord,
		DB:       redisConfig.DB,
		PoolSize: redisConfig.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}
