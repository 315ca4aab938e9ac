// Package router implements the HTTP-adapter-facing routing layer
// (spec.md §4.7): it dispatches each Exchange to the first registered
// plugin document (in registration order) that has a matching
// resource, using that document's best-matching resource; matches in
// later documents are not compared. When no document has a match, the
// first document with a root response handles it. It maps a failed
// exchange's status code to a registered error handler or a default
// textual response. Resource disambiguation itself is delegated to
// internal/match.Matcher rather than reimplemented against
// net/http.ServeMux's own precedence rules (grounded on, but
// deliberately diverging from, the teacher's StandardHTTPRouter in
// module/http_router.go, which relies on Go 1.22 ServeMux patterns —
// those can't express the spec's declaration-order tie-break and
// constraint-based specificity scoring, and can panic on ambiguous
// patterns the spec explicitly permits).
package router

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/httpx"
	"github.com/mockforge/mockforge/internal/match"
)

// RequestHandler is invoked once a resource has been resolved for a
// request (or, for a root-response fallback, with a nil resource).
type RequestHandler func(ctx context.Context, ex *httpx.Exchange, plugin *configsrc.PluginConfig, resource *configsrc.ResourceConfig, pathParams map[string]string)

// ErrorHandler answers a failed exchange for a specific status code.
type ErrorHandler func(ex *httpx.Exchange, code int, cause error)

type pluginEntry struct {
	config  *configsrc.PluginConfig
	handler RequestHandler
}

// Router dispatches exchanges to registered plugin documents in
// registration order (spec.md §4.7: "literal routes, parameterised
// routes, and a catch-all").
type Router struct {
	mu sync.RWMutex

	logger  *slog.Logger
	matcher *match.Matcher

	plugins       []pluginEntry
	errorHandlers map[int]ErrorHandler
}

// New creates a Router.
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger:        logger,
		matcher:       match.New(logger),
		errorHandlers: make(map[int]ErrorHandler),
	}
}

// RegisterPlugin mounts a plugin document's resources, dispatched
// through handler whenever this document produces the best match (or,
// absent any match anywhere, its root response is used as a
// fallback).
func (r *Router) RegisterPlugin(cfg *configsrc.PluginConfig, handler RequestHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, pluginEntry{config: cfg, handler: handler})
}

// OnError registers the handler invoked when a dispatched exchange
// fails with the given status code.
func (r *Router) OnError(code int, h ErrorHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorHandlers[code] = h
}

// Reset removes every registered plugin document, used by the
// configuration watcher before it registers the reloaded set.
// In-flight dispatches keep the snapshot they already took; a request
// dispatched after Reset and before the new documents are registered
// finds none and gets a 404.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = nil
}

// Dispatch implements httpx.Dispatcher.
func (r *Router) Dispatch(ex *httpx.Exchange) {
	ctx := ex.Context()

	r.mu.RLock()
	plugins := append([]pluginEntry(nil), r.plugins...)
	r.mu.RUnlock()

	req := match.Request{
		Method:      ex.Method(),
		Path:        ex.Path(),
		Query:       ex.Query(),
		Headers:     ex.Headers(),
		DecodedBody: ex.DecodedBody,
	}

	for _, entry := range plugins {
		result, ok := r.matcher.Match(req, entry.config.Resources)
		if !ok {
			continue
		}
		entry.handler(ctx, ex, entry.config, result.Resource, result.PathParams)
		r.resolveFailure(ex)
		return
	}

	for _, entry := range plugins {
		if entry.config.Response != nil {
			entry.handler(ctx, ex, entry.config, nil, nil)
			r.resolveFailure(ex)
			return
		}
	}

	r.notFound(ex)
}

// resolveFailure looks up an error handler for an exchange the
// dispatched handler marked as failed (spec.md §4.7, §7).
func (r *Router) resolveFailure(ex *httpx.Exchange) {
	code, cause := ex.Failure()
	if code == 0 {
		return
	}
	if ex.Ended() {
		return
	}

	r.mu.RLock()
	h, ok := r.errorHandlers[code]
	r.mu.RUnlock()

	if ok {
		h(ex, code, cause)
		return
	}
	r.defaultErrorHandler(ex, code, cause)
}

func (r *Router) defaultErrorHandler(ex *httpx.Exchange, code int, cause error) {
	if code >= 500 {
		r.logger.Error("request failed", "status", code, "error", cause)
	} else if code > 0 {
		r.logger.Warn("request failed", "status", code, "error", cause)
	}
	ex.SetStatusCode(code)
	ex.PutHeader("Content-Type", "text/plain")
	msg := "request failed"
	if cause != nil {
		msg = cause.Error()
	}
	_ = ex.End([]byte(msg))
}

// notFound implements spec.md §6: "404 with body `Resource not found`
// and Content-Type: text/plain when no resource matches."
func (r *Router) notFound(ex *httpx.Exchange) {
	ex.SetStatusCode(404)
	ex.PutHeader("Content-Type", "text/plain")
	_ = ex.End([]byte("Resource not found"))
}
