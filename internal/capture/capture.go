// Package capture implements the capture engine: extracting named
// values out of a request and persisting them into a named store
// (spec.md §4.2). response_sent captures read the same request view as
// request_received ones; the response itself is not a capture source.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/pathquery"
	"github.com/mockforge/mockforge/internal/store"
)

// Request is the read-only view of an in-flight exchange the capture
// engine needs to resolve capture sources. It mirrors match.Request
// but also carries the path parameters the matcher resolved, since a
// capture may read one of them (spec.md §4.2 pathParam source).
type Request struct {
	Method      string
	Path        string
	PathParams  map[string]string
	Query       map[string][]string
	Headers     map[string][]string
	DecodedBody func() (string, error)
}

// Engine runs a resource's configured captures against a request.
type Engine struct {
	logger  *slog.Logger
	factory store.Factory
}

// New creates a capture Engine backed by factory for resolving store
// names to Store instances.
func New(logger *slog.Logger, factory store.Factory) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, factory: factory}
}

// Run evaluates every enabled capture whose effective phase matches
// phase, in the resource's declaration order, and persists each
// resolved (store, key, value) triple. Captures are processed in
// order so that, when two captures in the same phase target the same
// store and key, the later declaration wins (spec.md §4.2, §8).
func (e *Engine) Run(ctx context.Context, req Request, captures []configsrc.NamedCapture, phase configsrc.CapturePhase) error {
	for _, nc := range captures {
		cfg := nc.Config
		if !cfg.IsEnabled() {
			continue
		}
		if cfg.EffectivePhase() != phase {
			continue
		}

		value, ok, err := e.evalSource(cfg.CaptureSource, req)
		if err != nil {
			e.logger.Warn("capture value evaluation failed", "capture", nc.Name, "error", err)
			continue
		}
		if !ok {
			e.logger.Debug("capture source produced no value; skipping", "capture", nc.Name)
			continue
		}

		storeName, err := e.resolveStoreName(cfg, req)
		if err != nil {
			e.logger.Warn("capture store resolution failed", "capture", nc.Name, "error", err)
			continue
		}
		key, err := e.resolveKey(nc, cfg, req)
		if err != nil {
			e.logger.Warn("capture key resolution failed", "capture", nc.Name, "error", err)
			continue
		}

		s, err := e.factory.OpenOrCreate(storeName)
		if err != nil {
			e.logger.Warn("capture store open failed", "capture", nc.Name, "store", storeName, "error", err)
			continue
		}
		if err := s.Save(ctx, key, value); err != nil {
			e.logger.Warn("capture save failed", "capture", nc.Name, "store", storeName, "error", err)
			continue
		}
	}
	return nil
}

func (e *Engine) resolveStoreName(cfg configsrc.CaptureConfig, req Request) (string, error) {
	if cfg.StoreKey != nil {
		val, ok, err := e.evalSource(*cfg.StoreKey, req)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("storeKey source produced no value")
		}
		return val, nil
	}
	if cfg.Store == "" {
		return "default", nil
	}
	return cfg.Store, nil
}

func (e *Engine) resolveKey(nc configsrc.NamedCapture, cfg configsrc.CaptureConfig, req Request) (string, error) {
	if cfg.KeySource != nil {
		val, ok, err := e.evalSource(*cfg.KeySource, req)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("keySource source produced no value")
		}
		return val, nil
	}
	if cfg.Key != "" {
		return cfg.Key, nil
	}
	return nc.Name, nil
}

// evalSource resolves a single (non-nesting) capture source to a
// string value. ok is false when the source was well-formed but the
// request simply didn't carry a matching value (e.g. a missing query
// parameter), which is not itself an error (spec.md §4.2).
func (e *Engine) evalSource(src configsrc.CaptureSource, req Request) (string, bool, error) {
	switch src.Kind() {
	case configsrc.CapturePathParam:
		val, ok := req.PathParams[src.PathParam]
		return val, ok, nil

	case configsrc.CaptureQueryParam:
		values, ok := req.Query[src.QueryParam]
		if !ok || len(values) == 0 {
			return "", false, nil
		}
		return values[0], true, nil

	case configsrc.CaptureHeader:
		values, ok := lookupHeaderCaseInsensitive(req.Headers, src.RequestHeader)
		if !ok || len(values) == 0 {
			return "", false, nil
		}
		return values[0], true, nil

	case configsrc.CaptureJSONPath:
		if req.DecodedBody == nil {
			return "", false, nil
		}
		body, err := req.DecodedBody()
		if err != nil {
			return "", false, fmt.Errorf("decode request body: %w", err)
		}
		results, err := pathquery.EvaluateJSONPath(src.JSONPath, body)
		if err != nil {
			return "", false, fmt.Errorf("jsonPath %q: %w", src.JSONPath, err)
		}
		if len(results) == 0 {
			return "", false, nil
		}
		return stringify(results[0]), true, nil

	case configsrc.CaptureExpression:
		env := buildExpressionEnv(req)
		result, err := expr.Eval(src.Expression, env)
		if err != nil {
			return "", false, fmt.Errorf("expression %q: %w", src.Expression, err)
		}
		if result == nil {
			return "", false, nil
		}
		return stringify(result), true, nil

	case configsrc.CaptureConst:
		return src.Const, true, nil

	default:
		return "", false, fmt.Errorf("unknown capture source kind")
	}
}

// buildExpressionEnv exposes the request to expr-lang expressions as a
// plain map, matching the read-only context the scripted response
// service's DSL also exposes (spec.md §4.4).
func buildExpressionEnv(req Request) map[string]any {
	query := make(map[string]any, len(req.Query))
	for k, v := range req.Query {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	headers := make(map[string]any, len(req.Headers))
	for k, v := range req.Headers {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	pathParams := make(map[string]any, len(req.PathParams))
	for k, v := range req.PathParams {
		pathParams[k] = v
	}

	var body string
	if req.DecodedBody != nil {
		if b, err := req.DecodedBody(); err == nil {
			body = b
		}
	}

	return map[string]any{
		"method":     req.Method,
		"path":       req.Path,
		"query":      query,
		"headers":    headers,
		"pathParams": pathParams,
		"body":       body,
	}
}

func lookupHeaderCaseInsensitive(headers map[string][]string, name string) ([]string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
