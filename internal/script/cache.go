package script

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mockforge/mockforge/internal/script/scriptapi"
)

// HandleFunc is the shape every resource script must expose as
// `func Handle(...)` in its `main` package.
type HandleFunc func(ctx *scriptapi.Context, resp *scriptapi.Response, logger *scriptapi.Logger, stores *scriptapi.StoresHandle)

type compiledScript struct {
	fn      HandleFunc
	modTime time.Time
}

// scriptCache caches compiled scripts by canonical file path,
// invalidating on modification-time change unless disabled (spec.md
// §4.4: "invalidate on modification time change (optional...)").
type scriptCache struct {
	cache      *lru.Cache[string, *compiledScript]
	invalidate bool
}

func newScriptCache(capacity int, invalidateOnModTime bool) (*scriptCache, error) {
	c, err := lru.New[string, *compiledScript](capacity)
	if err != nil {
		return nil, fmt.Errorf("create script cache: %w", err)
	}
	return &scriptCache{cache: c, invalidate: invalidateOnModTime}, nil
}

// get returns a cached compiled script for path if present and still
// fresh, compiling and storing it via compile otherwise.
func (c *scriptCache) get(path string, compile func(string) (HandleFunc, error)) (HandleFunc, error) {
	var modTime time.Time
	if c.invalidate {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat script %s: %w", path, err)
		}
		modTime = info.ModTime()
	}

	if entry, ok := c.cache.Get(path); ok {
		if !c.invalidate || entry.modTime.Equal(modTime) {
			return entry.fn, nil
		}
	}

	fn, err := compile(path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(path, &compiledScript{fn: fn, modTime: modTime})
	return fn, nil
}

// loggerCache caches per-script-basename loggers (spec.md §4.4:
// "Logger instances are cached by name (capacity ≈ 20, LRU)").
type loggerCache struct {
	cache *lru.Cache[string, *scriptapi.Logger]
}

func newLoggerCache(capacity int) (*loggerCache, error) {
	if capacity <= 0 {
		capacity = 20
	}
	c, err := lru.New[string, *scriptapi.Logger](capacity)
	if err != nil {
		return nil, fmt.Errorf("create logger cache: %w", err)
	}
	return &loggerCache{cache: c}, nil
}

func (c *loggerCache) get(name string, create func() *scriptapi.Logger) *scriptapi.Logger {
	if l, ok := c.cache.Get(name); ok {
		return l
	}
	l := create()
	c.cache.Add(name, l)
	return l
}
