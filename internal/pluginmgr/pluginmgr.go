// Package pluginmgr is the explicit plugin registration table spec.md
// §9 calls for in place of dynamic classpath scanning: a
// map[string]Plugin built at process startup from concrete factories,
// with no reflection-based discovery. cmd/mockserver registers
// plugins/rest.New here; the openapi plugin is not registered, since
// plugins/openapi.New builds one instance per configuration document.
package pluginmgr

import (
	"context"
	"fmt"

	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/httpx"
)

// Plugin supplies per-request behaviour for one family of endpoints
// (spec.md §4.10, GLOSSARY: "a pluggable strategy that supplies routes
// and per-request behaviour for one family of endpoints").
type Plugin interface {
	// OnRequest handles a request already resolved to resource (or nil,
	// for a plugin-document root-response fallback) within plugin doc
	// cfg.
	OnRequest(ctx context.Context, ex *httpx.Exchange, cfg *configsrc.PluginConfig, resource *configsrc.ResourceConfig, pathParams map[string]string)
}

// Registry is a read-only-after-startup name → Plugin table.
type Registry struct {
	plugins map[string]Plugin
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin under name. Registering the same name twice
// is a startup configuration error.
func (r *Registry) Register(name string, p Plugin) error {
	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("plugin %q already registered", name)
	}
	r.plugins[name] = p
	return nil
}

// Lookup resolves a plugin by name, defaulting to "rest" when cfg
// doesn't name one (configsrc.PluginConfig.Plugin doc comment:
// "Defaults to rest when omitted").
func (r *Registry) Lookup(name string) (Plugin, bool) {
	if name == "" {
		name = "rest"
	}
	p, ok := r.plugins[name]
	return p, ok
}
