package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shrek82/sqlchain/plugin"
)

// RedisStore keeps entries in Redis under their cache keys.
type RedisStore struct {
	Client *redis.Client
}

// NewRedisStore connects and pings the server.
func NewRedisStore(opt *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opt.Addr, err)
	}
	return &RedisStore{Client: client}, nil
}

func openRedisStore(props plugin.Properties) (Store, error) {
	db, err := intProp(props, "db", 0)
	if err != nil {
		return nil, err
	}
	return NewRedisStore(&redis.Options{
		Addr:     props.Get("addr", "localhost:6379"),
		Password: props.Get("password", ""),
		DB:       db,
	})
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set uses no expiration for a non-positive ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.Client.Set(ctx, key, value, ttl).Err()
}

// Flush deletes the keys under CacheKeyPrefix, leaving the rest of the
// database alone.
func (s *RedisStore) Flush(ctx context.Context) error {
	iter := s.Client.Scan(ctx, 0, CacheKeyPrefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.Client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.Client.Del(ctx, batch...).Err()
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
