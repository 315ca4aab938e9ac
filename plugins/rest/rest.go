// Package rest implements the plain resource-matching plugin
// described throughout spec.md §4.1-§4.6: it has no specialisation
// beyond what the shared matcher/capture/response pipeline already
// does, so its entire job is adapting the router's resolved
// (plugin, resource) pair into a call against response.Service.
package rest

import (
	"context"
	"strings"

	"github.com/mockforge/mockforge/internal/behaviour"
	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/httpx"
	"github.com/mockforge/mockforge/internal/response"
)

// Plugin is the "rest" plugin.
type Plugin struct {
	responses *response.Service
}

// New creates a rest Plugin backed by svc.
func New(svc *response.Service) *Plugin {
	return &Plugin{responses: svc}
}

// OnRequest implements pluginmgr.Plugin.
func (p *Plugin) OnRequest(ctx context.Context, ex *httpx.Exchange, cfg *configsrc.PluginConfig, resource *configsrc.ResourceConfig, pathParams map[string]string) {
	if resource == nil {
		p.renderRootResponse(ex, cfg)
		return
	}
	_ = p.responses.Handle(ctx, cfg, resource, ex, pathParams, nil)
}

// renderRootResponse handles the case where no resource matched but
// the plugin document declares a root response to fall back to
// (spec.md §4.1: "the caller then falls back to the plugin's root
// ResponseConfig or to 404"). This path has no script, captures, or
// fallback senders of its own — it is a bare static/inline response.
func (p *Plugin) renderRootResponse(ex *httpx.Exchange, cfg *configsrc.PluginConfig) {
	b := behaviour.FromResponseConfig(*cfg.Response).Build()

	ex.SetStatusCode(b.StatusCode)
	for k, v := range b.Headers {
		ex.PutHeader(k, v)
	}
	if !headerSet(b.Headers, "Content-Type") {
		if cfg.ContentType != "" {
			ex.PutHeader("Content-Type", cfg.ContentType)
		} else {
			ex.PutHeader("Content-Type", "application/json")
		}
	}

	switch b.BodySource {
	case behaviour.BodyFile:
		if absPath, err := configsrc.ResolveResponseFile(cfg.Dir, b.File); err == nil {
			_ = ex.SendFile(absPath)
		} else {
			ex.Fail(500, err)
		}
	case behaviour.BodyInline:
		_ = ex.End([]byte(b.Data))
	default:
		_ = ex.End(nil)
	}
}

func headerSet(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
