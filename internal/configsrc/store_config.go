package configsrc

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StoreBackendConfig describes one named store and which backend
// implementation should serve it (spec.md §6: "may contain a
// store-backend configuration document, e.g. Redis").
type StoreBackendConfig struct {
	Name    string         `yaml:"name"`
	Backend string         `yaml:"backend"` // "memory" | "redis"
	Redis   *RedisConfig   `yaml:"redis,omitempty"`
}

// RedisConfig holds connection settings for the redis store backend.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type storeConfigDocument struct {
	Stores []StoreBackendConfig `yaml:"stores"`
}

// LoadStoreConfig reads a store-config.yaml document from a directory,
// if present. Absence is not an error: the store factory falls back to
// the in-memory backend for any store name it hasn't been told about.
func LoadStoreConfig(dir string) ([]StoreBackendConfig, error) {
	path := filepath.Join(dir, "store-config.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc storeConfigDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Stores, nil
}
