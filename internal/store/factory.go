package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/redis/go-redis/v9"
)

// StoreFactory is the process-wide Factory implementation. It opens a
// Store the first time a name is requested and returns the same
// instance thereafter (spec.md §3), choosing a backend per name from
// the store-config.yaml documents the config loader collected.
type StoreFactory struct {
	mu       sync.Mutex
	stores   map[string]Store
	backends map[string]configsrc.StoreBackendConfig
	logger   *slog.Logger
}

// NewStoreFactory creates a factory that consults backendCfgs (by
// store name) when a store is first opened, falling back to the
// in-memory backend for any name it has no config for.
func NewStoreFactory(backendCfgs []configsrc.StoreBackendConfig, logger *slog.Logger) *StoreFactory {
	backends := make(map[string]configsrc.StoreBackendConfig, len(backendCfgs))
	for _, b := range backendCfgs {
		backends[b.Name] = b
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreFactory{
		stores:   make(map[string]Store),
		backends: backends,
		logger:   logger,
	}
}

// OpenOrCreate returns the store for name, creating it (and, for a
// redis-backed store, dialling and pinging the server) on first use.
func (f *StoreFactory) OpenOrCreate(name string) (Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.stores[name]; ok {
		return s, nil
	}

	backendCfg, configured := f.backends[name]
	var s Store
	switch {
	case configured && backendCfg.Backend == "redis":
		redisStore, err := newConnectedRedisStore(backendCfg, name)
		if err != nil {
			return nil, fmt.Errorf("store %q: %w", name, err)
		}
		s = redisStore
		f.logger.Info("store opened", "name", name, "backend", "redis")
	default:
		s = NewMemoryStore()
		f.logger.Info("store opened", "name", name, "backend", "memory")
	}

	f.stores[name] = s
	return s, nil
}

func newConnectedRedisStore(cfg configsrc.StoreBackendConfig, name string) (*RedisStore, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis backend requires a redis connection config")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Redis.Address, err)
	}
	return NewRedisStore(client, name), nil
}
