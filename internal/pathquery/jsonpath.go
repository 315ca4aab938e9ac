// Package pathquery runs the JSONPath and XPath expressions the body
// matcher (spec.md §4.1) and capture engine (spec.md §4.2) evaluate
// against a decoded request body, delegating to the same libraries the
// Go reimplementation of this Imposter-style system depends on for the
// identical concern (see DESIGN.md).
package pathquery

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// EvaluateJSONPath runs a JSONPath expression (e.g. "$.name",
// "$.items[0].id", "$..id") against a JSON document and returns every
// matching value. A path that resolves to nothing is not an error: it
// reports zero results, matching the body matcher and capture engine's
// "no match" semantics.
func EvaluateJSONPath(path, document string) ([]any, error) {
	var root any
	if err := json.Unmarshal([]byte(document), &root); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	result, err := jsonpath.Get(path, root)
	if err != nil {
		if isNoMatch(err) {
			return nil, nil
		}
		return nil, err
	}

	if results, ok := result.([]any); ok {
		return results, nil
	}
	return []any{result}, nil
}

// isNoMatch reports whether err is jsonpath's way of saying the path
// didn't resolve against this particular document, as opposed to a
// malformed path expression.
func isNoMatch(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unknown key") ||
		strings.Contains(msg, "out of range") ||
		strings.Contains(msg, "unsupported value type")
}
