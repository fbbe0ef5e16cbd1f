package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"emergency-alert/internal/config"
	"emergency-alert/internal/geo"

	"github.com/redis/go-redis/v9"
)

const positionKeyPrefix = "alerta:position:"

// RedisCache keeps the last position fix per device so that real-time alerts
// can reuse a fix younger than the maximum age.
type RedisCache struct {
	cache *redis.Client
}

func NewRedisCache(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		Username:     cfg.User,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}

	return &RedisCache{cache: client}, nil
}

func (r *RedisCache) GetPosition(ctx context.Context, key string) (geo.Position, bool, error) {
	data, err := r.cache.Get(ctx, positionKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return geo.Position{}, false, nil
	}
	if err != nil {
		return geo.Position{}, false, fmt.Errorf("get position %s: %w", key, err)
	}

	var pos geo.Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return geo.Position{}, false, fmt.Errorf("decode position %s: %w", key, err)
	}
	return pos, true, nil
}

func (r *RedisCache) PutPosition(ctx context.Context, key string, pos geo.Position, ttl time.Duration) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("encode position %s: %w", key, err)
	}
	if err := r.cache.Set(ctx, positionKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set position %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Close() error {
	if r == nil || r.cache == nil {
		return nil
	}
	return r.cache.Close()
}
