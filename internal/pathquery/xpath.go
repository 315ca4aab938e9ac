package pathquery

import (
	"fmt"
	"strings"
	"sync"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

var (
	xpathCacheMu sync.Mutex
	xpathCache   = map[string]*xpath.Expr{}
)

// compileXPath compiles path once and caches the result, mirroring
// BodyMatcherEvaluator's regex cache: a resource's path expression
// never changes across requests.
func compileXPath(path string) (*xpath.Expr, error) {
	xpathCacheMu.Lock()
	defer xpathCacheMu.Unlock()
	if expr, ok := xpathCache[path]; ok {
		return expr, nil
	}
	expr, err := xpath.Compile(path)
	if err != nil {
		return nil, err
	}
	xpathCache[path] = expr
	return expr, nil
}

// EvaluateXPath runs an XPath expression (e.g. "/root/child",
// "//item[@id='1']", "//item/@id", "//item/text()") against an XML
// document and returns every matching value: element text, or an
// attribute's value for an "@attr"-terminated path.
func EvaluateXPath(path, document string) ([]string, error) {
	doc, err := xmlquery.Parse(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("invalid XML body: %w", err)
	}

	expr, err := compileXPath(path)
	if err != nil {
		return nil, err
	}

	nodes := xmlquery.QuerySelectorAll(doc, expr)
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, strings.TrimSpace(n.InnerText()))
	}
	return out, nil
}
