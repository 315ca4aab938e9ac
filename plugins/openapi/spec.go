// Package openapi implements the OpenAPI-driven plugin named in
// spec.md §1 ("one plugin's specialisation"): it parses a minimal
// OpenAPI v3 struct subset (grounded on the teacher's
// module/openapi.go, which takes the same hand-rolled-struct approach
// rather than a codegen/reflection-heavy library), derives one
// ResourceConfig per (path, method) operation so the shared
// matcher/capture/response pipeline serves OpenAPI routes exactly
// like hand-written ones, resolves named response examples, and
// validates inbound request bodies against the operation's JSON
// schema when enabled.
package openapi

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mockforge/mockforge/internal/configsrc"
)

// Spec is a minimal representation of an OpenAPI 3.x document — just
// enough to drive mock resource derivation and example/schema lookup.
type Spec struct {
	OpenAPI string              `yaml:"openapi" json:"openapi"`
	Paths   map[string]PathItem `yaml:"paths" json:"paths"`
}

// PathItem maps HTTP methods to operations.
type PathItem map[string]*Operation

// Operation holds the metadata for a single path+method.
type Operation struct {
	OperationID string              `yaml:"operationId" json:"operationId"`
	RequestBody *RequestBody        `yaml:"requestBody" json:"requestBody"`
	Responses   map[string]Response `yaml:"responses" json:"responses"`
}

// RequestBody describes the request body for an operation.
type RequestBody struct {
	Required bool                  `yaml:"required" json:"required"`
	Content  map[string]MediaType  `yaml:"content" json:"content"`
}

// MediaType holds a JSON schema and named examples for one content type.
type MediaType struct {
	Schema   map[string]any     `yaml:"schema" json:"schema"`
	Examples map[string]Example `yaml:"examples" json:"examples"`
}

// Example is one named response/request example.
type Example struct {
	Summary string `yaml:"summary" json:"summary"`
	Value   any    `yaml:"value" json:"value"`
}

// Response describes a single status-code response entry.
type Response struct {
	Description string               `yaml:"description" json:"description"`
	Content     map[string]MediaType `yaml:"content" json:"content"`
}

// Load parses an OpenAPI document from path, detecting YAML vs JSON by
// extension.
func Load(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read openapi spec %s: %w", path, err)
	}
	var spec Spec
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(raw, &spec); err != nil {
			return nil, fmt.Errorf("parse openapi spec %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			return nil, fmt.Errorf("parse openapi spec %s: %w", path, err)
		}
	}
	if len(spec.Paths) == 0 {
		return nil, fmt.Errorf("openapi spec %s declares no paths", path)
	}
	return &spec, nil
}

// DeriveResources produces one ResourceConfig per (path, method)
// operation, ordered by path and then by method, both sorted
// lexically (the parsed spec holds paths and methods in maps, so the
// document's own order is not kept). Each resource gets a fresh ID
// from configsrc.NewResourceID; DeclarationOrder is left at zero.
func DeriveResources(spec *Spec) []configsrc.ResourceConfig {
	var resources []configsrc.ResourceConfig
	for _, path := range sortedKeys(spec.Paths) {
		item := spec.Paths[path]
		for _, method := range sortedKeys(item) {
			op := item[method]
			if op == nil || !isHTTPMethod(method) {
				continue
			}
			status, body := firstExampleResponse(op)
			resources = append(resources, configsrc.ResourceConfig{
				ID:     configsrc.NewResourceID("openapi"),
				Method: strings.ToUpper(method),
				Path:   path,
				Response: &configsrc.ResponseConfig{
					StatusCode: status,
					Data:       body,
				},
			})
		}
	}
	return resources
}

// ResolveExample looks up a named example for an operation's response,
// returning its value JSON-encoded, for plugins/openapi's
// ResponseConfig.ExampleName support.
func ResolveExample(spec *Spec, path, method, exampleName string) (string, bool) {
	item, ok := spec.Paths[path]
	if !ok {
		return "", false
	}
	op, ok := item[strings.ToLower(method)]
	if !ok || op == nil {
		return "", false
	}
	for _, status := range sortedKeys(op.Responses) {
		resp := op.Responses[status]
		for _, mt := range resp.Content {
			if ex, ok := mt.Examples[exampleName]; ok {
				if encoded, err := json.Marshal(ex.Value); err == nil {
					return string(encoded), true
				}
			}
		}
	}
	return "", false
}

// RequestSchema returns the raw JSON schema document for an
// operation's request body, if any, for plugins/openapi's request
// validation.
func RequestSchema(spec *Spec, path, method string) (map[string]any, bool) {
	item, ok := spec.Paths[path]
	if !ok {
		return nil, false
	}
	op, ok := item[strings.ToLower(method)]
	if !ok || op == nil || op.RequestBody == nil {
		return nil, false
	}
	for _, mt := range op.RequestBody.Content {
		if mt.Schema != nil {
			return mt.Schema, true
		}
	}
	return nil, false
}

func firstExampleResponse(op *Operation) (int, string) {
	for _, status := range sortedKeys(op.Responses) {
		if !strings.HasPrefix(status, "2") {
			continue
		}
		resp := op.Responses[status]
		for _, mt := range resp.Content {
			for _, name := range sortedKeys(mt.Examples) {
				if encoded, err := json.Marshal(mt.Examples[name].Value); err == nil {
					return statusCode(status), string(encoded)
				}
			}
		}
		return statusCode(status), ""
	}
	return 200, ""
}

func statusCode(s string) int {
	var code int
	if _, err := fmt.Sscanf(s, "%d", &code); err != nil || code == 0 {
		return 200
	}
	return code
}

func isHTTPMethod(m string) bool {
	switch strings.ToLower(m) {
	case "get", "put", "post", "delete", "options", "head", "patch", "trace":
		return true
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
