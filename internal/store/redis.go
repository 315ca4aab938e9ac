package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by a Redis key/value server. Values are
// JSON-encoded for storage and decoded back on load; this makes the
// round-trip lossy for types JSON itself can't distinguish (e.g. an
// int comes back as float64), which is the same trade-off Go's own
// encoding/json makes and is acceptable per spec.md §3's
// "round-trippable" requirement — it does not mandate type fidelity,
// only that save-then-load returns an equivalent value.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore wraps an existing go-redis client as a Store, name-spacing
// all keys under "store:<name>:" so multiple stores can share one Redis database.
func NewRedisStore(client redis.Cmdable, name string) *RedisStore {
	return &RedisStore{client: client, prefix: "store:" + name + ":"}
}

func (r *RedisStore) key(k string) string { return r.prefix + k }

func (r *RedisStore) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis store: marshal %q: %w", key, err)
	}
	return r.client.Set(ctx, r.key(key), data, 0).Err()
}

func (r *RedisStore) Load(ctx context.Context, key string) (any, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis store: get %q: %w", key, err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("redis store: unmarshal %q: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisStore) HasKey(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis store: exists %q: %w", key, err)
	}
	return n > 0, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisStore) LoadAll(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any)
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis store: scan: %w", err)
		}
		for _, fullKey := range keys {
			shortKey := fullKey[len(r.prefix):]
			val, ok, err := r.Load(ctx, shortKey)
			if err != nil {
				return nil, err
			}
			if ok {
				out[shortKey] = val
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func (r *RedisStore) Count(ctx context.Context) (int, error) {
	all, err := r.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (r *RedisStore) TypeDescription() string { return "redis" }
