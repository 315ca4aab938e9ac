package response

import (
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// fileCache maps an absolute, normalised response file path to its
// decoded string body. Only used for templated files; non-templated
// files are streamed directly (spec.md §4.5). Concurrent misses for
// the same key coalesce into a single disk read via singleflight,
// mirroring the teacher's oauth token coalescing in
// module/pipeline_step_http_call.go.
type fileCache struct {
	cache *lru.Cache[string, string]
	group singleflight.Group
	onEvict func(key string)
}

// newFileCache creates a fileCache with the given capacity (env
// IMPOSTER_RESPONSE_FILE_CACHE_ENTRIES, default 20).
func newFileCache(capacity int, onEvict func(key string)) (*fileCache, error) {
	if capacity <= 0 {
		capacity = 20
	}
	fc := &fileCache{onEvict: onEvict}
	cache, err := lru.NewWithEvict(capacity, func(key string, _ string) {
		if fc.onEvict != nil {
			fc.onEvict(key)
		}
	})
	if err != nil {
		return nil, err
	}
	fc.cache = cache
	return fc, nil
}

// get returns the cached body for path, reading the file at most once
// per key even under concurrent callers.
func (c *fileCache) get(path string) (string, error) {
	if body, ok := c.cache.Get(path); ok {
		return body, nil
	}
	v, err, _ := c.group.Do(path, func() (any, error) {
		if body, ok := c.cache.Get(path); ok {
			return body, nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		body := string(raw)
		c.cache.Add(path, body)
		return body, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// len reports the current entry count, backing the
// response.file.cache.entries gauge.
func (c *fileCache) len() int {
	return c.cache.Len()
}

// purgeAll discards every cached entry, used when configuration is
// hot-reloaded and a cached response file may have changed underneath
// an unchanged script/config (spec.md §4.5 cache invariant: "never
// serve content newer than the cached entry" — reload is the one event
// that can make a cached entry stale without an mtime check).
func (c *fileCache) purgeAll() {
	c.cache.Purge()
}
