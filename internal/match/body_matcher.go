package match

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/pathquery"
)

// BodyMatcherEvaluator evaluates the (at most one) request body
// constraint a resource declares. Compiled regexes are cached since a
// resource's pattern never changes across requests. JSONPath and
// XPath matching delegate to internal/pathquery, which wraps
// PaesslerAG/jsonpath and antchfx/xpath/xmlquery (see DESIGN.md).
type BodyMatcherEvaluator struct {
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

// NewBodyMatcherEvaluator creates an evaluator with an empty regex cache.
func NewBodyMatcherEvaluator() *BodyMatcherEvaluator {
	return &BodyMatcherEvaluator{compiled: make(map[string]*regexp.Regexp)}
}

// Match evaluates matcher against the request body, decoding it lazily
// via decode only if the matcher actually needs body content.
func (e *BodyMatcherEvaluator) Match(matcher configsrc.BodyMatcher, decode func() (string, error)) (bool, error) {
	body, err := decode()
	if err != nil {
		return false, fmt.Errorf("decode request body: %w", err)
	}

	switch matcher.Kind {
	case configsrc.BodyMatcherLiteral:
		return body == matcher.Value, nil
	case configsrc.BodyMatcherJSONPath:
		results, err := pathquery.EvaluateJSONPath(matcher.JSONPath, body)
		if err != nil {
			return false, fmt.Errorf("jsonPath %q: %w", matcher.JSONPath, err)
		}
		return len(results) > 0, nil
	case configsrc.BodyMatcherXPath:
		results, err := pathquery.EvaluateXPath(matcher.XPath, body)
		if err != nil {
			return false, fmt.Errorf("xPath %q: %w", matcher.XPath, err)
		}
		return len(results) > 0, nil
	case configsrc.BodyMatcherRegex:
		re, err := e.compile(matcher.Regex)
		if err != nil {
			return false, fmt.Errorf("regex %q: %w", matcher.Regex, err)
		}
		return re.MatchString(body), nil
	default:
		return false, fmt.Errorf("unknown body matcher kind %q", matcher.Kind)
	}
}

func (e *BodyMatcherEvaluator) compile(pattern string) (*regexp.Regexp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if re, ok := e.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.compiled[pattern] = re
	return re, nil
}
