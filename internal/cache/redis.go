package cache

import (
	"context"
	"time"

	goRedis "github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a Redis server.
type Redis struct {
	redisClient *goRedis.Client
}

// NewRedis connects to addr and verifies the connection with a PING.
func NewRedis(addr, password string, db int) (*Redis, error) {
	redisClient := goRedis.NewClient(&goRedis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		_ = redisClient.Close()
		return nil, unavailable(err, "redis connect %s failed", addr)
	}
	return &Redis{redisClient: redisClient}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err == goRedis.Nil {
		return nil, false, nil
	} else if err != nil {
		return nil, false, unavailable(err, "get %s", key)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.redisClient.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(err, "set %s", key)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return unavailable(err, "delete %s", key)
	}
	return nil
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.redisClient.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable(err, "exists %s", key)
	}
	return n > 0, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.redisClient.Ping(ctx).Err(); err != nil {
		return unavailable(err, "ping")
	}
	return nil
}

func (r *Redis) Close() error {
	return r.redisClient.Close()
}
