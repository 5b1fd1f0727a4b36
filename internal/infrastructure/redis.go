package infrastructure

import (
	"context"
	"time"

	"crm_engine/internal/config"

	"github.com/redis/go-redis/v9"
)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.ReadTimeout = time.Duration(cfg.ReadTimeout) * time.Second
	opts.WriteTimeout = time.Duration(cfg.WriteTimeout) * time.Second
	opts.DialTimeout = time.Duration(cfg.DialTimeout) * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
