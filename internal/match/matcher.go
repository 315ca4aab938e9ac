// Package match implements the resource matcher: given a request and
// a plugin's ordered resource list, it selects the single best match
// or reports that none qualified (spec.md §4.1).
package match

import (
	"log/slog"
	"strings"

	"github.com/mockforge/mockforge/internal/configsrc"
)

// Request is the subset of an inbound HTTP request the matcher needs.
// It mirrors the read-only view HttpExchange exposes (spec.md §3).
type Request struct {
	Method  string
	Path    string
	Query   map[string][]string
	Headers map[string][]string
	// DecodedBody is the request body decoded to a string, lazily
	// supplied by the caller only when a resource might need it.
	DecodedBody func() (string, error)
}

// Result is a successful match: the resource plus its resolved path
// parameters.
type Result struct {
	Resource   *configsrc.ResourceConfig
	PathParams map[string]string
}

// Matcher selects the best-matching resource for a request.
type Matcher struct {
	logger      *slog.Logger
	loggedOnce  map[string]bool
	bodyMatcher *BodyMatcherEvaluator
}

// New creates a Matcher. logger is used to log each resource's body
// matcher evaluation errors once (spec.md §4.1 failure semantics).
func New(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		logger:      logger,
		loggedOnce:  make(map[string]bool),
		bodyMatcher: NewBodyMatcherEvaluator(),
	}
}

// Match returns the best-scoring qualifying resource, or ok=false if
// none qualify.
func (m *Matcher) Match(req Request, resources []configsrc.ResourceConfig) (Result, bool) {
	var (
		best      *configsrc.ResourceConfig
		bestScore int
		bestOrder = -1
		bestParams map[string]string
	)

	for i := range resources {
		res := &resources[i]

		if !methodMatches(res.Method, req.Method) {
			continue
		}
		params, ok := matchPath(res.Path, req.Path)
		if !ok {
			continue
		}

		score := 10*literalSegmentCount(res.Path) + 5*paramSegmentCount(res.Path)

		if len(res.QueryParams) > 0 {
			if !m.queryConstraintsMatch(res.QueryParams, req.Query) {
				continue
			}
			score += 3 * len(res.QueryParams)
		}

		if len(res.Headers) > 0 {
			if !headerConstraintsMatch(res.Headers, req.Headers) {
				continue
			}
			score += 3 * len(res.Headers)
		}

		if res.RequestBody != nil {
			matched, err := m.bodyMatcher.Match(*res.RequestBody, req.DecodedBody)
			if err != nil {
				if !m.loggedOnce[res.ID] {
					m.logger.Warn("resource body matcher evaluation failed; skipping resource",
						"resource_id", res.ID, "error", err)
					m.loggedOnce[res.ID] = true
				}
				continue
			}
			if !matched {
				continue
			}
			score += 4
		}

		if best == nil || score > bestScore || (score == bestScore && res.DeclarationOrder < bestOrder) {
			best = res
			bestScore = score
			bestOrder = res.DeclarationOrder
			bestParams = params
		}
	}

	if best == nil {
		return Result{}, false
	}
	return Result{Resource: best, PathParams: bestParams}, true
}

func methodMatches(configured, actual string) bool {
	if configured == "" {
		return true
	}
	return strings.EqualFold(configured, actual)
}

// matchPath compares a path template against a request path segment by
// segment. A trailing slash is a distinct segment count from a path
// without one (spec.md §8 boundary: "treated as distinct"), since
// splitting "/a/" yields a trailing empty segment that "/a" doesn't.
func matchPath(template, path string) (map[string]string, bool) {
	tplSegs := splitPath(template)
	pathSegs := splitPath(path)
	if len(tplSegs) != len(pathSegs) {
		return nil, false
	}

	var params map[string]string
	for i, seg := range tplSegs {
		if name, isParam := paramName(seg); isParam {
			if pathSegs[i] == "" {
				// A path parameter matches one non-empty segment only
				// (spec.md §8).
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = pathSegs[i]
			continue
		}
		if seg != pathSegs[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	return strings.Split(p, "/")
}

func paramName(segment string) (string, bool) {
	if len(segment) >= 2 && segment[0] == '{' && segment[len(segment)-1] == '}' {
		return segment[1 : len(segment)-1], true
	}
	return "", false
}

func literalSegmentCount(template string) int {
	n := 0
	for _, seg := range splitPath(template) {
		if _, isParam := paramName(seg); !isParam && seg != "" {
			n++
		}
	}
	return n
}

func paramSegmentCount(template string) int {
	n := 0
	for _, seg := range splitPath(template) {
		if _, isParam := paramName(seg); isParam {
			n++
		}
	}
	return n
}

func (m *Matcher) queryConstraintsMatch(want map[string]string, got map[string][]string) bool {
	for name, val := range want {
		values, ok := got[name]
		if !ok {
			return false
		}
		if !containsValue(values, val) {
			return false
		}
	}
	return true
}

func headerConstraintsMatch(want map[string]string, got map[string][]string) bool {
	for name, val := range want {
		values, ok := lookupHeaderCaseInsensitive(got, name)
		if !ok {
			return false
		}
		if !containsValue(values, val) {
			return false
		}
	}
	return true
}

func lookupHeaderCaseInsensitive(headers map[string][]string, name string) ([]string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func containsValue(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
