// Package configsrc discovers and parses mock server configuration
// directories into the typed plugin/resource trees consumed by the
// request-handling pipeline.
package configsrc

import "time"

// PluginConfig is the tree parsed from one configuration document.
type PluginConfig struct {
	// Dir is the directory containing the config file, used to resolve
	// relative response file paths. Never persisted to YAML.
	Dir string `yaml:"-"`

	// File is the path to the config document this tree was parsed from.
	File string `yaml:"-"`

	// Plugin names which plugin handles this document's resources
	// (e.g. "rest", "openapi"). Defaults to "rest" when omitted.
	Plugin string `yaml:"plugin"`

	// ContentType is the default response content type for resources
	// in this document that don't set one explicitly.
	ContentType string `yaml:"contentType"`

	// DefaultsFromRootResponse, when true, overlays Response into any
	// still-unset field of a resolved resource's response.
	DefaultsFromRootResponse bool `yaml:"defaultsFromRootResponse"`

	// Response is the plugin-level default response, used as a
	// fallback when no resource matches and as an overlay source when
	// DefaultsFromRootResponse is set.
	Response *ResponseConfig `yaml:"response"`

	Resources []ResourceConfig `yaml:"resources"`

	// SpecFile is the OpenAPI spec path for plugin: openapi documents.
	SpecFile string `yaml:"specFile"`

	// Validation configures the openapi plugin's request/response checks.
	Validation *ValidationConfig `yaml:"validation"`
}

// ValidationConfig controls OpenAPI request/response validation.
type ValidationConfig struct {
	Request  bool `yaml:"request"`
	Response bool `yaml:"response"`
}

// ResourceConfig is a single matchable endpoint.
type ResourceConfig struct {
	// ID is assigned at load time (not user-configured); used in log
	// messages and for tie-breaking diagnostics.
	ID string `yaml:"-"`

	// DeclarationOrder preserves the order resources appeared in their
	// document, used to break matcher scoring ties.
	DeclarationOrder int `yaml:"-"`

	Method string `yaml:"method"`
	Path   string `yaml:"path"`

	QueryParams map[string]string `yaml:"queryParams"`
	Headers     map[string]string `yaml:"requestHeaders"`

	RequestBody *BodyMatcher `yaml:"requestBody"`

	Response *ResponseConfig `yaml:"response"`

	// Captures preserves declaration order so "last declared wins"
	// (spec.md §4.2, §8) is well-defined even though YAML maps don't
	// guarantee iteration order.
	Captures []NamedCapture `yaml:"-"`
	// CaptureMap is the raw YAML form; Captures is derived from it at
	// load time by the document's ordered key scan (see loader.go).
	CaptureMap map[string]CaptureConfig `yaml:"capture"`
}

// NamedCapture pairs a capture's configured key name with its config,
// in the order the document declared them.
type NamedCapture struct {
	Name   string
	Config CaptureConfig
}

// BodyMatcherKind enumerates the supported request body matcher forms.
type BodyMatcherKind string

const (
	BodyMatcherLiteral BodyMatcherKind = "literal"
	BodyMatcherJSONPath BodyMatcherKind = "jsonPath"
	BodyMatcherXPath    BodyMatcherKind = "xPath"
	BodyMatcherRegex    BodyMatcherKind = "regex"
)

// BodyMatcher describes the (at most one) request body constraint a
// resource may declare.
type BodyMatcher struct {
	Kind  BodyMatcherKind `yaml:"-"`
	Value string          `yaml:"value"`

	JSONPath string `yaml:"jsonPath"`
	XPath    string `yaml:"xPath"`
	Regex    string `yaml:"regex"`
}

// ResponseConfig describes a resource's (or plugin's default) response.
type ResponseConfig struct {
	StatusCode int `yaml:"statusCode"`

	File string `yaml:"file"`
	Data string `yaml:"data"`

	// ExampleName names an OpenAPI example to serve (openapi plugin only).
	ExampleName string `yaml:"exampleName"`

	Headers map[string]string `yaml:"headers"`

	ScriptFile string `yaml:"scriptFile"`

	IsTemplate bool `yaml:"template"`

	Performance PerformanceConfig `yaml:"delay"`
}

// PerformanceConfig configures artificial response latency.
type PerformanceConfig struct {
	ExactMs int `yaml:"exact"`
	MinMs   int `yaml:"min"`
	MaxMs   int `yaml:"max"`
}

// Delay resolves the configured delay to a concrete duration, applying
// the exclusive-upper-bound semantics flagged in spec.md §9 (REDESIGN
// FLAGS / Open Questions): the original's exclusive upper bound on
// maxMs is preserved rather than silently changed, since the spec
// records this as an open question rather than a mandated fix.
func (p PerformanceConfig) Delay(rng func(n int) int) time.Duration {
	if p.ExactMs > 0 {
		return time.Duration(p.ExactMs) * time.Millisecond
	}
	if p.MinMs > 0 && p.MaxMs >= p.MinMs {
		if p.MaxMs == p.MinMs {
			return time.Duration(p.MinMs) * time.Millisecond
		}
		span := p.MaxMs - p.MinMs
		return time.Duration(p.MinMs+rng(span)) * time.Millisecond
	}
	return 0
}

// CapturePhase names when a capture is persisted.
type CapturePhase string

const (
	PhaseRequestReceived CapturePhase = "request_received"
	PhaseResponseSent    CapturePhase = "response_sent"
)

// CaptureSourceKind enumerates the mutually exclusive capture sources.
type CaptureSourceKind string

const (
	CapturePathParam  CaptureSourceKind = "pathParam"
	CaptureQueryParam CaptureSourceKind = "queryParam"
	CaptureHeader     CaptureSourceKind = "requestHeader"
	CaptureJSONPath   CaptureSourceKind = "jsonPath"
	CaptureExpression CaptureSourceKind = "expression"
	CaptureConst      CaptureSourceKind = "const"
)

// CaptureSource is the reduced shape used for a capture's nested key
// and store sub-configs. It carries only a value source — no further
// Key/Store nesting — which forbids capture-nesting cycles by
// construction (spec.md §4.2).
type CaptureSource struct {
	PathParam     string `yaml:"pathParam"`
	QueryParam    string `yaml:"queryParam"`
	RequestHeader string `yaml:"requestHeader"`
	JSONPath      string `yaml:"jsonPath"`
	Expression    string `yaml:"expression"`
	Const         string `yaml:"const"`
}

// Kind identifies which of the mutually-exclusive source fields is set.
func (s CaptureSource) Kind() CaptureSourceKind {
	switch {
	case s.PathParam != "":
		return CapturePathParam
	case s.QueryParam != "":
		return CaptureQueryParam
	case s.RequestHeader != "":
		return CaptureHeader
	case s.JSONPath != "":
		return CaptureJSONPath
	case s.Expression != "":
		return CaptureExpression
	default:
		return CaptureConst
	}
}

// CaptureConfig describes one named extraction of a value from a
// request into a store.
type CaptureConfig struct {
	CaptureSource `yaml:",inline"`

	Enabled *bool `yaml:"enabled"`

	// Store is the literal store name. StoreKey, if set, derives the
	// store name from the request instead (spec.md §3).
	Store    string         `yaml:"store"`
	StoreKey *CaptureSource `yaml:"storeKey,omitempty"`

	// Key is the literal capture key; if empty, the capture's
	// declared name (the document's map key) is used. KeySource, if
	// set, derives the key from the request instead (spec.md §3).
	Key       string         `yaml:"key"`
	KeySource *CaptureSource `yaml:"keySource,omitempty"`

	Phase CapturePhase `yaml:"phase"`
}

// IsEnabled reports whether the capture should run; defaults to true.
func (c CaptureConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// EffectivePhase defaults to request_received.
func (c CaptureConfig) EffectivePhase() CapturePhase {
	if c.Phase == "" {
		return PhaseRequestReceived
	}
	return c.Phase
}
