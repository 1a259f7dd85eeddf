package database

import (
	"context"
	"fmt"
	"time"

	"cinema-booking/pkg/utils"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// InitRedis connects and pings Redis.
func InitRedis(config utils.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}
	return client, nil
}

// AsynqRedisOpt points the task queue at the same Redis.
func AsynqRedisOpt(config utils.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	}
}
