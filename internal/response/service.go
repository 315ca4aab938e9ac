// Package response implements the render+transmit pipeline (spec.md
// §4.5): it turns a resolved ResponseBehaviour into bytes on the wire,
// running performance simulation, header emission, body rendering
// through the template transformer chain, and response_sent captures.
package response

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mockforge/mockforge/internal/behaviour"
	"github.com/mockforge/mockforge/internal/capture"
	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/httpx"
	"github.com/mockforge/mockforge/internal/lifecycle"
	"github.com/mockforge/mockforge/internal/script"
)

// RenderError is raised for file-missing, path-escape, or
// template-transformer failures (spec.md §7: "fails the exchange with
// 500").
type RenderError struct {
	Cause error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render response: %v", e.Cause) }
func (e *RenderError) Unwrap() error { return e.Cause }

// TransmissionError is raised when the client disconnects or the
// flush fails (spec.md §7); response_sent captures are skipped.
type TransmissionError struct {
	Cause error
}

func (e *TransmissionError) Error() string { return fmt.Sprintf("transmit response: %v", e.Cause) }
func (e *TransmissionError) Unwrap() error { return e.Cause }

// FallbackSender is tried, in order, when a behaviour yields an empty
// body (spec.md §4.5 point 3, "Empty"). It reports whether it handled
// the response.
type FallbackSender func(ctx context.Context, ex *httpx.Exchange) (bool, error)

// CacheObserver is notified of response-file cache size changes (after
// each templated file read, eviction, and purge), backing the
// response.file.cache.entries gauge (spec.md §6).
type CacheObserver interface {
	SetEntries(n int)
}

// Service renders and transmits resolved behaviours.
type Service struct {
	logger    *slog.Logger
	scripts   *script.Service // nil when Config.Scripts is not set
	hooks     *lifecycle.Registry
	captures  *capture.Engine
	fileCache *fileCache
	observer  CacheObserver
}

// Config configures a Service.
type Config struct {
	Scripts             *script.Service
	Hooks               *lifecycle.Registry
	Captures            *capture.Engine
	ResponseFileCacheCap int
	CacheObserver        CacheObserver
}

// New creates a Service.
func New(logger *slog.Logger, cfg Config) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = lifecycle.NewRegistry()
	}
	s := &Service{
		logger:   logger,
		scripts:  cfg.Scripts,
		hooks:    hooks,
		captures: cfg.Captures,
		observer: cfg.CacheObserver,
	}
	fc, err := newFileCache(cfg.ResponseFileCacheCap, func(string) { s.reportCacheSize() })
	if err != nil {
		return nil, err
	}
	s.fileCache = fc
	return s, nil
}

func (s *Service) reportCacheSize() {
	if s.observer != nil {
		s.observer.SetEntries(s.fileCache.len())
	}
}

// InvalidateFileCache discards every cached response-file body. Called
// when configuration is hot-reloaded, since a changed response file
// has no mtime check of its own (unlike compiled scripts, §4.4).
func (s *Service) InvalidateFileCache() {
	s.fileCache.purgeAll()
	s.reportCacheSize()
}

// Handle builds the behaviour for (plugin, resource) and renders and
// transmits the response onto ex. pathParams and the exchange's decoded
// body feed the script context and the capture engine. fallbacks are tried in order
// when the built behaviour yields an empty body.
func (s *Service) Handle(ctx context.Context, plugin *configsrc.PluginConfig, resource *configsrc.ResourceConfig, ex *httpx.Exchange, pathParams map[string]string, fallbacks []FallbackSender) error {
	req := capture.Request{
		Method:      ex.Method(),
		Path:        ex.Path(),
		PathParams:  pathParams,
		Query:       ex.Query(),
		Headers:     ex.Headers(),
		DecodedBody: ex.DecodedBody,
	}

	if s.captures != nil {
		if err := s.captures.Run(ctx, req, resource.Captures, configsrc.PhaseRequestReceived); err != nil {
			s.logger.Warn("request_received captures failed", "resource_id", resource.ID, "error", err)
		}
	}

	b, err := s.buildBehaviour(ctx, plugin, resource, req)
	if err != nil {
		ex.Fail(500, err)
		return err
	}

	if err := simulateDelay(ctx, b.Performance); err != nil {
		ex.Fail(0, err)
		return &TransmissionError{Cause: err}
	}

	s.emitHeaders(ex, plugin, resource, b)

	if b.Mode == behaviour.ModeShortCircuit {
		if err := ex.End(nil); err != nil {
			return &TransmissionError{Cause: err}
		}
		return nil
	}

	if err := s.renderBody(ctx, plugin, ex, b, fallbacks); err != nil {
		var renderErr *RenderError
		if errors.As(err, &renderErr) {
			ex.Fail(500, err)
		}
		return err
	}

	if s.captures != nil {
		if err := s.captures.Run(ctx, req, resource.Captures, configsrc.PhaseResponseSent); err != nil {
			s.logger.Warn("response_sent captures failed", "resource_id", resource.ID, "error", err)
		}
	}
	return nil
}

func (s *Service) buildBehaviour(ctx context.Context, plugin *configsrc.PluginConfig, resource *configsrc.ResourceConfig, req capture.Request) (behaviour.Behaviour, error) {
	var bd *behaviour.Builder
	if resource.Response.ScriptFile != "" {
		if s.scripts == nil {
			return behaviour.Behaviour{}, &script.ScriptError{File: resource.Response.ScriptFile, Err: errors.New("script engine not configured")}
		}
		var decoded func() (string, error)
		if req.DecodedBody != nil {
			decoded = req.DecodedBody
		}
		built, err := s.scripts.Execute(ctx, plugin, resource, script.RuntimeContext{
			Method:      req.Method,
			Path:        req.Path,
			Headers:     req.Headers,
			Query:       req.Query,
			PathParams:  req.PathParams,
			DecodedBody: decoded,
		})
		if err != nil {
			return behaviour.Behaviour{}, err
		}
		bd = built
		if bd.Mode() == behaviour.ModeDefault {
			bd.OverlayDefaults(*resource.Response)
		}
	} else {
		bd = behaviour.FromResponseConfig(*resource.Response)
	}

	if plugin.DefaultsFromRootResponse && plugin.Response != nil {
		bd.OverlayDefaults(*plugin.Response)
	}

	return bd.Build(), nil
}

func (s *Service) emitHeaders(ex *httpx.Exchange, plugin *configsrc.PluginConfig, resource *configsrc.ResourceConfig, b behaviour.Behaviour) {
	ex.SetStatusCode(b.StatusCode)
	for k, v := range b.Headers {
		ex.PutHeader(k, v)
	}
	if headerSet(b.Headers, "Content-Type") {
		return
	}
	if plugin.ContentType != "" {
		ex.PutHeader("Content-Type", plugin.ContentType)
		return
	}
	if b.BodySource == behaviour.BodyFile {
		if ct := httpx.GuessContentTypeFromExtension(b.File); ct != "" {
			ex.PutHeader("Content-Type", ct)
			return
		}
	}
	s.logger.Debug("guessing content type", "resource_id", resource.ID, "content_type", "application/json")
	ex.PutHeader("Content-Type", "application/json")
}

func headerSet(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func (s *Service) renderBody(ctx context.Context, plugin *configsrc.PluginConfig, ex *httpx.Exchange, b behaviour.Behaviour, fallbacks []FallbackSender) error {
	switch b.BodySource {
	case behaviour.BodyFile:
		return s.renderFile(ctx, plugin, ex, b)
	case behaviour.BodyInline:
		return s.renderInline(ex, b)
	default:
		for _, fb := range fallbacks {
			handled, err := fb(ctx, ex)
			if err != nil {
				return &TransmissionError{Cause: err}
			}
			if handled {
				return nil
			}
		}
		if err := ex.End(nil); err != nil {
			return &TransmissionError{Cause: err}
		}
		return nil
	}
}

func (s *Service) renderFile(ctx context.Context, plugin *configsrc.PluginConfig, ex *httpx.Exchange, b behaviour.Behaviour) error {
	absPath, err := configsrc.ResolveResponseFile(plugin.Dir, b.File)
	if err != nil {
		return &RenderError{Cause: err}
	}
	if !b.IsTemplate {
		if err := ex.SendFile(absPath); err != nil {
			return &TransmissionError{Cause: err}
		}
		return nil
	}
	body, err := s.fileCache.get(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RenderError{Cause: fmt.Errorf("response file %s: %w", absPath, err)}
		}
		return &RenderError{Cause: err}
	}
	s.reportCacheSize()
	out, err := s.hooks.RunTemplateChain([]byte(body))
	if err != nil {
		return &RenderError{Cause: err}
	}
	if err := ex.End(out); err != nil {
		return &TransmissionError{Cause: err}
	}
	return nil
}

func (s *Service) renderInline(ex *httpx.Exchange, b behaviour.Behaviour) error {
	data := []byte(b.Data)
	if b.IsTemplate {
		out, err := s.hooks.RunTemplateChain(data)
		if err != nil {
			return &RenderError{Cause: err}
		}
		data = out
	}
	if err := ex.End(data); err != nil {
		return &TransmissionError{Cause: err}
	}
	return nil
}
