package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"voicelink_service/pkg/logger"
)

// NewRedisClient 建立 redis 連線，有設定 MasterName 時使用 sentinel
func NewRedisClient(c RedisConnection) (*redis.Client, error) {
	var rdb *redis.Client
	if c.MasterName != "" {
		rdb = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    c.MasterName,    // 哨兵主节点名称
			SentinelAddrs: c.SentinelAddrs, // 哨兵地址列表
			Password:      c.Password,
			DB:            c.DB,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.Addr,
			Password: c.Password,
			DB:       c.DB,
		})
	}

	var err error
	attempts := c.RetryCount
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; i <= attempts; i++ {
		// 测试连接
		if err = rdb.Ping(context.Background()).Err(); err == nil {
			return rdb, nil
		}
		logger.Log.Warn("Failed to connect to redis, retrying...", zap.Int("attempt", i), zap.Error(err))
		if i < attempts {
			time.Sleep(c.RetryInterval * time.Second)
		}
	}

	_ = rdb.Close()
	return nil, fmt.Errorf("failed to connect to redis: %w", err)
}
