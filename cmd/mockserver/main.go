// Command mockserver wires the config loader, plugin registry, stores,
// script service, response service, and httpx adapter into a running
// process, grounded on the teacher's cmd/server/main.go flag/signal/
// shutdown pattern (config file or directory flags, slog to stdout,
// SIGINT/SIGTERM triggers a graceful shutdown), trimmed to this
// process's actual collaborators.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mockforge/mockforge/internal/capture"
	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/features"
	"github.com/mockforge/mockforge/internal/httpx"
	"github.com/mockforge/mockforge/internal/lifecycle"
	"github.com/mockforge/mockforge/internal/metrics"
	"github.com/mockforge/mockforge/internal/pluginmgr"
	"github.com/mockforge/mockforge/internal/response"
	"github.com/mockforge/mockforge/internal/router"
	"github.com/mockforge/mockforge/internal/script"
	"github.com/mockforge/mockforge/internal/store"
	"github.com/mockforge/mockforge/plugins/openapi"
	"github.com/mockforge/mockforge/plugins/rest"
)

var (
	configDirs  = flag.String("config-dir", "./config", "Comma-separated list of directories to scan for plugin configuration documents")
	addr        = flag.String("addr", ":8080", "HTTP listen address")
	metricsAddr = flag.String("metrics-addr", ":9090", "HTTP listen address for the Prometheus metrics endpoint (only served when the metrics feature is enabled)")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := run(logger); err != nil {
		log.Fatalf("mockserver: %v", err)
	}
}

func run(logger *slog.Logger) error {
	flags := features.Parse(os.Getenv("IMPOSTER_FEATURES"))

	dirs := splitNonEmpty(*configDirs, ",")
	pluginConfigs, err := configsrc.LoadDirectories(dirs)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger.Info("loaded plugin configuration", "documents", len(pluginConfigs), "dirs", dirs)

	var storeBackends []configsrc.StoreBackendConfig
	for _, dir := range dirs {
		cfgs, err := configsrc.LoadStoreConfig(dir)
		if err != nil {
			return fmt.Errorf("load store configuration: %w", err)
		}
		storeBackends = append(storeBackends, cfgs...)
	}

	var metricsCollector *metrics.Collector
	if flags.Metrics {
		metricsCollector = metrics.New()
	}

	// The capture engine (spec.md §4.2) always has a store factory to
	// write into, independent of the stores feature flag; that flag
	// only gates whether scripts additionally see a `stores` DSL
	// handle (spec.md §4.4).
	storeFactory := store.NewStoreFactory(storeBackends, logger.With("component", "stores"))

	var scriptStores store.Factory
	if flags.Stores {
		scriptStores = storeFactory
	}

	hooks := lifecycle.NewRegistry()

	scriptCacheCapacity := envInt("IMPOSTER_SCRIPT_CACHE_ENTRIES", 100)
	scriptSvc, err := script.New(logger.With("component", "script"), script.Config{
		ScriptCacheCapacity: scriptCacheCapacity,
		InvalidateOnModTime: true,
		LoggerCacheCapacity: 20,
		Hooks:               hooks,
		Stores:              scriptStores,
		Metrics:             metricsCollector,
	})
	if err != nil {
		return fmt.Errorf("init script service: %w", err)
	}

	fileCacheCapacity := envInt("IMPOSTER_RESPONSE_FILE_CACHE_ENTRIES", 20)
	var cacheObserver response.CacheObserver
	if metricsCollector != nil {
		cacheObserver = metricsCollector
	}
	responseSvc, err := response.New(logger.With("component", "response"), response.Config{
		Scripts:              scriptSvc,
		Hooks:                hooks,
		Captures:             capture.New(logger.With("component", "capture"), storeFactory),
		ResponseFileCacheCap: fileCacheCapacity,
		CacheObserver:        cacheObserver,
	})
	if err != nil {
		return fmt.Errorf("init response service: %w", err)
	}

	registry := pluginmgr.NewRegistry()
	if err := registry.Register("rest", rest.New(responseSvc)); err != nil {
		return fmt.Errorf("register rest plugin: %w", err)
	}

	rtr := router.New(logger.With("component", "router"))
	if err := mountPlugins(rtr, registry, responseSvc, pluginConfigs, logger); err != nil {
		return err
	}

	watcher, err := configsrc.NewWatcher(dirs, logger.With("component", "config-watcher"))
	if err != nil {
		return fmt.Errorf("init config watcher: %w", err)
	}
	defer watcher.Close()
	watcher.Start(func() {
		reloaded, err := configsrc.LoadDirectories(dirs)
		if err != nil {
			logger.Error("configuration reload failed; keeping previous routes", "error", err)
			return
		}
		rtr.Reset()
		if err := mountPlugins(rtr, registry, responseSvc, reloaded, logger); err != nil {
			logger.Error("configuration reload failed while mounting; routes may be incomplete", "error", err)
			return
		}
		responseSvc.InvalidateFileCache()
		logger.Info("configuration reloaded", "documents", len(reloaded))
	})

	server := httpx.NewServer(*addr, rtr, logger.With("component", "httpx"))
	server.SetTimeouts(30*time.Second, 30*time.Second, 120*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	var metricsServer *httpx.MetricsServer
	if metricsCollector != nil {
		metricsServer = httpx.NewMetricsServer(*metricsAddr, metricsCollector.Handler(), logger.With("component", "metrics"))
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
	return nil
}

// mountPlugins registers every loaded plugin document's resources with
// rtr, deriving an openapi plugin's ResourceConfig set fresh each time
// it's called (startup, and every hot-reload triggered by the
// configuration watcher).
func mountPlugins(rtr *router.Router, registry *pluginmgr.Registry, responseSvc *response.Service, pluginConfigs []*configsrc.PluginConfig, logger *slog.Logger) error {
	for _, cfg := range pluginConfigs {
		cfg := cfg
		if cfg.Plugin == "openapi" {
			oa, err := openapi.New(cfg, responseSvc)
			if err != nil {
				return fmt.Errorf("init openapi plugin for %s: %w", cfg.File, err)
			}
			cfg.Resources = append(cfg.Resources, oa.Resources()...)
			rtr.RegisterPlugin(cfg, oa.OnRequest)
			logger.Info("mounted openapi plugin document", "file", cfg.File, "resources", len(cfg.Resources))
			continue
		}

		plugin, ok := registry.Lookup(cfg.Plugin)
		if !ok {
			return fmt.Errorf("%s: unknown plugin %q", cfg.File, cfg.Plugin)
		}
		rtr.RegisterPlugin(cfg, plugin.OnRequest)
		logger.Info("mounted plugin document", "file", cfg.File, "plugin", cfg.Plugin, "resources", len(cfg.Resources))
	}
	return nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
