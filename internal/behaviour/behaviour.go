// Package behaviour implements the ResponseBehaviour model: the
// mutable builder a script (or the default path) fills in, and the
// frozen result the response service consumes (spec.md §3, §4.3, §9).
package behaviour

import (
	"maps"

	"github.com/mockforge/mockforge/internal/configsrc"
)

// Mode selects how the response service treats a built Behaviour.
type Mode string

const (
	// ModeDefault lets the plugin/response pipeline fill in any field
	// the behaviour left unset.
	ModeDefault Mode = "default"
	// ModeShortCircuit emits status+headers with an empty body and
	// terminates the pipeline before body rendering.
	ModeShortCircuit Mode = "short_circuit"
)

// BodySource selects where a behaviour's body comes from.
type BodySource string

const (
	BodyFile   BodySource = "file"
	BodyInline BodySource = "inline"
	BodyEmpty  BodySource = "empty"
)

// Behaviour is the effective response decision for one request. Zero
// value is an empty, unset behaviour.
type Behaviour struct {
	StatusCode int
	Headers    map[string]string

	BodySource  BodySource
	File        string
	Data        string
	ExampleName string

	IsTemplate  bool
	Performance configsrc.PerformanceConfig

	Mode Mode

	frozen bool
}

// Builder mutates a Behaviour until Build freezes it. Scripts mutate
// the builder single-threaded during their own execution (spec.md
// §4.4); nothing may mutate it afterward (spec.md §9: "make the commit
// explicit... to prevent surprise mutation by late-firing lifecycle
// listeners").
type Builder struct {
	b Behaviour
}

// NewBuilder starts from an empty behaviour in default mode.
func NewBuilder() *Builder {
	return &Builder{b: Behaviour{Headers: make(map[string]string), Mode: ModeDefault}}
}

// FromResponseConfig seeds a builder from a resource or plugin-level
// ResponseConfig, the no-script path of spec.md §4.3 ("copy the
// resource's ResponseConfig into a fresh behaviour").
func FromResponseConfig(cfg configsrc.ResponseConfig) *Builder {
	bd := NewBuilder()
	bd.WithStatusCode(cfg.StatusCode)
	for k, v := range cfg.Headers {
		bd.WithHeader(k, v)
	}
	bd.b.IsTemplate = cfg.IsTemplate
	bd.b.Performance = cfg.Performance

	switch {
	case cfg.File != "":
		bd.WithFile(cfg.File)
	case cfg.ExampleName != "":
		bd.WithExampleName(cfg.ExampleName)
	case cfg.Data != "":
		bd.WithData(cfg.Data)
	default:
		bd.WithEmpty()
	}
	return bd
}

func (bd *Builder) WithStatusCode(code int) *Builder {
	bd.b.StatusCode = code
	return bd
}

func (bd *Builder) WithFile(path string) *Builder {
	bd.b.BodySource = BodyFile
	bd.b.File = path
	return bd
}

func (bd *Builder) WithData(data string) *Builder {
	bd.b.BodySource = BodyInline
	bd.b.Data = data
	return bd
}

func (bd *Builder) WithHeader(name, value string) *Builder {
	bd.b.Headers[name] = value
	return bd
}

func (bd *Builder) WithExampleName(name string) *Builder {
	bd.b.ExampleName = name
	return bd
}

func (bd *Builder) WithEmpty() *Builder {
	bd.b.BodySource = BodyEmpty
	return bd
}

func (bd *Builder) WithDelay(ms int) *Builder {
	bd.b.Performance = configsrc.PerformanceConfig{ExactMs: ms}
	return bd
}

func (bd *Builder) WithDelayRange(minMs, maxMs int) *Builder {
	bd.b.Performance = configsrc.PerformanceConfig{MinMs: minMs, MaxMs: maxMs}
	return bd
}

func (bd *Builder) UsingDefaultBehaviour() *Builder {
	bd.b.Mode = ModeDefault
	return bd
}

// SkipDefaultBehaviour short-circuits the pipeline (script DSL alias:
// immediately).
func (bd *Builder) SkipDefaultBehaviour() *Builder {
	bd.b.Mode = ModeShortCircuit
	return bd
}

// OverlayDefaults fills any still-unset field of bd from defaults,
// implementing both the script's `default-behaviour` overlay
// (spec.md §4.3) and the plugin's defaults-from-root-response overlay.
// Script/resource settings already present always win.
func (bd *Builder) OverlayDefaults(defaults configsrc.ResponseConfig) *Builder {
	if bd.b.StatusCode == 0 {
		bd.b.StatusCode = defaults.StatusCode
	}
	for k, v := range defaults.Headers {
		if _, set := bd.b.Headers[k]; !set {
			bd.b.Headers[k] = v
		}
	}
	if bd.b.BodySource == "" {
		switch {
		case defaults.File != "":
			bd.WithFile(defaults.File)
		case defaults.ExampleName != "":
			bd.WithExampleName(defaults.ExampleName)
		case defaults.Data != "":
			bd.WithData(defaults.Data)
		}
	}
	if !bd.b.IsTemplate {
		bd.b.IsTemplate = defaults.IsTemplate
	}
	if bd.b.Performance == (configsrc.PerformanceConfig{}) {
		bd.b.Performance = defaults.Performance
	}
	return bd
}

// Build freezes the behaviour. Further mutation through this builder
// is a programming error; callers should discard the builder.
func (bd *Builder) Build() Behaviour {
	bd.b.frozen = true
	out := bd.b
	out.Headers = maps.Clone(bd.b.Headers)
	if out.BodySource == "" {
		out.BodySource = BodyEmpty
	}
	if out.StatusCode == 0 {
		out.StatusCode = 200
	}
	return out
}

// IsFrozen reports whether Build has already been called.
func (bd *Builder) IsFrozen() bool {
	return bd.b.frozen
}

// Mode reports the builder's current mode, read by the response
// orchestrator after a script runs to decide whether to apply the
// default-behaviour overlay or short-circuit.
func (bd *Builder) Mode() Mode {
	return bd.b.Mode
}

// HasBody reports whether a body source has been set yet (by a script
// or the resource config), used to decide whether an overlay should
// still fill it in.
func (bd *Builder) HasBody() bool {
	return bd.b.BodySource != ""
}
