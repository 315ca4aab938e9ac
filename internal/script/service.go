// Package script implements the scripted response service: it
// compiles (once, cached) and executes a resource's script through a
// sandboxed yaegi interpreter, returning the ResponseBehaviour the
// script built (spec.md §4.4).
package script

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mockforge/mockforge/internal/behaviour"
	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/lifecycle"
	"github.com/mockforge/mockforge/internal/script/scriptapi"
	"github.com/mockforge/mockforge/internal/store"
)

// ScriptError is raised when a script throws, or the resolved script
// file can't be compiled (spec.md §7: "ScriptError — script threw or
// engine missing; fails the exchange with 500").
type ScriptError struct {
	File string
	Err  error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s: %v", e.File, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// DurationRecorder observes script execution wall time for the
// `script.execution.duration` metric (spec.md §6), gated by the
// metrics feature flag at the call site that constructs a Service.
type DurationRecorder interface {
	Observe(d time.Duration)
}

// RuntimeContext is the read-only request view a script's Context is
// built from.
type RuntimeContext struct {
	Method      string
	Path        string
	Headers     map[string][]string
	Query       map[string][]string
	PathParams  map[string]string
	DecodedBody func() (string, error)
	Env         map[string]string
}

// Service compiles and executes resource scripts.
type Service struct {
	logger  *slog.Logger
	pool    *InterpreterPool
	scripts *scriptCache
	loggers *loggerCache
	hooks   *lifecycle.Registry
	stores  store.Factory // nil when the stores feature is disabled
	metrics DurationRecorder
}

// Config configures a Service.
type Config struct {
	ScriptCacheCapacity int
	InvalidateOnModTime bool
	LoggerCacheCapacity int
	Hooks               *lifecycle.Registry
	Stores              store.Factory
	Metrics             DurationRecorder
}

// New creates a Service.
func New(logger *slog.Logger, cfg Config) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	capacity := cfg.ScriptCacheCapacity
	if capacity <= 0 {
		capacity = 100
	}
	scripts, err := newScriptCache(capacity, cfg.InvalidateOnModTime)
	if err != nil {
		return nil, err
	}
	loggers, err := newLoggerCache(cfg.LoggerCacheCapacity)
	if err != nil {
		return nil, err
	}
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = lifecycle.NewRegistry()
	}
	return &Service{
		logger:  logger,
		pool:    NewInterpreterPool(""),
		scripts: scripts,
		loggers: loggers,
		hooks:   hooks,
		stores:  cfg.Stores,
		metrics: cfg.Metrics,
	}, nil
}

// Execute compiles (or reuses) the resource's configured script and
// runs it, returning the builder the script populated. The caller is
// responsible for the spec.md §4.3 default/short-circuit overlay
// logic; this method only runs the script and hands back its result.
func (s *Service) Execute(ctx context.Context, plugin *configsrc.PluginConfig, resource *configsrc.ResourceConfig, rc RuntimeContext) (*behaviour.Builder, error) {
	scriptFile := resource.Response.ScriptFile
	absPath, err := configsrc.ResolveResponseFile(plugin.Dir, scriptFile)
	if err != nil {
		return nil, &ScriptError{File: scriptFile, Err: err}
	}

	fn, err := s.scripts.get(absPath, s.compile)
	if err != nil {
		return nil, &ScriptError{File: scriptFile, Err: err}
	}

	bindings := map[string]any{
		"method": rc.Method,
		"path":   rc.Path,
		"env":    rc.Env,
	}
	s.hooks.FireBeforeBuildingRuntimeContext(bindings)

	var body string
	if rc.DecodedBody != nil {
		body, _ = rc.DecodedBody()
	}

	scriptCtx := &scriptapi.Context{
		Method:     rc.Method,
		Path:       rc.Path,
		Headers:    rc.Headers,
		Query:      rc.Query,
		PathParams: rc.PathParams,
		Body:       body,
		Env:        rc.Env,
	}
	resp := scriptapi.NewResponse()
	basename := filepath.Base(scriptFile)
	scriptLogger := s.loggers.get(basename, func() *scriptapi.Logger {
		childLogger := s.logger.With("component", "script", "script_file", basename)
		return scriptapi.NewLogger(basename, func(level, msg string) {
			switch level {
			case "debug":
				childLogger.Debug(msg)
			case "warn":
				childLogger.Warn(msg)
			case "error":
				childLogger.Error(msg)
			default:
				childLogger.Info(msg)
			}
		})
	})

	var storesHandle *scriptapi.StoresHandle
	if s.stores != nil {
		storesHandle = scriptapi.NewStoresHandle(func(name string) (scriptapi.StoreBackend, error) {
			st, err := s.stores.OpenOrCreate(name)
			if err != nil {
				return nil, err
			}
			return &storeBackendAdapter{ctx: ctx, store: st}, nil
		})
	}

	start := time.Now()
	if err := s.safeCall(fn, scriptCtx, resp, scriptLogger, storesHandle); err != nil {
		return nil, &ScriptError{File: scriptFile, Err: err}
	}
	if s.metrics != nil {
		s.metrics.Observe(time.Since(start))
	}

	s.hooks.FireAfterSuccessfulScriptExecution(bindings, resp.Mode)

	return responseToBuilder(resp), nil
}

func (s *Service) safeCall(fn HandleFunc, ctx *scriptapi.Context, resp *scriptapi.Response, logger *scriptapi.Logger, stores *scriptapi.StoresHandle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn(ctx, resp, logger, stores)
	return nil
}

func responseToBuilder(resp *scriptapi.Response) *behaviour.Builder {
	bd := behaviour.NewBuilder().WithStatusCode(resp.StatusCode)
	for k, v := range resp.Headers {
		bd.WithHeader(k, v)
	}
	switch resp.BodySource {
	case "file":
		bd.WithFile(resp.File)
	case "inline":
		bd.WithData(resp.Data)
	case "example":
		bd.WithExampleName(resp.ExampleName)
	case "empty":
		bd.WithEmpty()
	}
	switch {
	case resp.DelayExactMs > 0:
		bd.WithDelay(resp.DelayExactMs)
	case resp.DelayMaxMs > 0:
		bd.WithDelayRange(resp.DelayMinMs, resp.DelayMaxMs)
	}
	if resp.Mode == "short_circuit" {
		bd.SkipDefaultBehaviour()
	} else {
		bd.UsingDefaultBehaviour()
	}
	return bd
}

// storeBackendAdapter adapts a context-aware store.Store to the
// context-free scriptapi.StoreBackend a script sees.
type storeBackendAdapter struct {
	ctx   context.Context
	store store.Store
}

func (a *storeBackendAdapter) Save(key string, value any) error {
	return a.store.Save(a.ctx, key, value)
}

func (a *storeBackendAdapter) Load(key string) (any, bool, error) {
	return a.store.Load(a.ctx, key)
}

func (a *storeBackendAdapter) HasKey(key string) (bool, error) {
	return a.store.HasKey(a.ctx, key)
}

func (a *storeBackendAdapter) LoadAll() (map[string]any, error) {
	return a.store.LoadAll(a.ctx)
}

func (a *storeBackendAdapter) Delete(key string) error {
	return a.store.Delete(a.ctx, key)
}
