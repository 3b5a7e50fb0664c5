package state

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/config"
	"github.com/sandhost/capahost/internal/logger"
)

// RedisBackend is the Redis-backed state-store backend. Unlike
// InMemoryBackend it honours TTL for real, via Redis's own expiry.
//
// Connection pooling mirrors the teacher's cache client: 25 max connections,
// 5 minimum idle, exponential retry backoff.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend dials Redis using cfg and verifies connectivity with PING.
func NewRedisBackend(ctx context.Context, cfg config.RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:        25,
		MinIdleConns:    5,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, capability.ConnectionRefused(fmt.Errorf("redis state backend: %w", err))
	}

	logger.StateStore().Info().Str("addr", fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)).Msg("connected to redis state backend")
	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) Open(_ context.Context, bucket string) (Bucket, error) {
	return &redisBucket{name: bucket, client: b.client}, nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

type redisBucket struct {
	name   string
	client *redis.Client
}

func (r *redisBucket) namespacedKey(key string) string {
	return r.name + ":" + key
}

func (r *redisBucket) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.namespacedKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, capability.InternalError(fmt.Errorf("state get %s: %w", key, err))
	}
	return val, true, nil
}

func (r *redisBucket) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.namespacedKey(key), value, ttl).Err(); err != nil {
		return capability.InternalError(fmt.Errorf("state set %s: %w", key, err))
	}
	return nil
}

func (r *redisBucket) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.namespacedKey(key)).Err(); err != nil {
		return capability.InternalError(fmt.Errorf("state delete %s: %w", key, err))
	}
	return nil
}

func (r *redisBucket) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.namespacedKey(key)).Result()
	if err != nil {
		return false, capability.InternalError(fmt.Errorf("state exists %s: %w", key, err))
	}
	return n > 0, nil
}

func (r *redisBucket) Keys(ctx context.Context) ([]string, error) {
	prefix := r.name + ":"
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, capability.InternalError(fmt.Errorf("state keys: %w", err))
	}
	return keys, nil
}
