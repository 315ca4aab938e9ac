// Package scriptapi defines the host-injected types a resource script
// sees: a read-only request Context, a chainable Response builder, a
// scoped Logger, and an optional StoresHandle (spec.md §4.4). Scripts
// import this package by its real Go import path — there is no
// separate require()-style module shim — and call these exported
// types' methods as ordinary Go method calls, matching the design
// note in spec.md §9 ("expose these as host-injected globals").
package scriptapi

import "strings"

// Context is the read-only view of the inbound request a script sees.
type Context struct {
	Method     string
	Path       string
	Headers    map[string][]string
	Query      map[string][]string
	PathParams map[string]string
	Body       string
	Env        map[string]string
}

// Header looks up a request header case-insensitively, returning its
// first value or "".
func (c *Context) Header(name string) string {
	for k, v := range c.Headers {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// QueryParam returns the first value of a query parameter, or "".
func (c *Context) QueryParam(name string) string {
	if v, ok := c.Query[name]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

// PathParam returns a matched path parameter, or "".
func (c *Context) PathParam(name string) string {
	return c.PathParams[name]
}

// EnvVar returns an environment binding, or "".
func (c *Context) EnvVar(name string) string {
	return c.Env[name]
}

// Response is the singleton chainable response-builder scripts mutate
// (spec.md §4.4). Every With* method returns the receiver so calls
// chain; Respond and And are the terminators.
type Response struct {
	StatusCode int
	Headers    map[string]string

	BodySource  string // "file" | "inline" | "example" | "empty" | ""
	File        string
	Data        string
	ExampleName string

	DelayExactMs int
	DelayMinMs   int
	DelayMaxMs   int

	Mode string // "default" | "short_circuit"

	terminated bool
}

// NewResponse creates a response builder defaulting to "default" mode,
// matching usingDefaultBehaviour() being the implicit starting state.
func NewResponse() *Response {
	return &Response{Headers: make(map[string]string), Mode: "default"}
}

func (r *Response) WithStatusCode(code int) *Response {
	r.StatusCode = code
	return r
}

func (r *Response) WithFile(path string) *Response {
	r.BodySource = "file"
	r.File = path
	return r
}

func (r *Response) WithData(data string) *Response {
	r.BodySource = "inline"
	r.Data = data
	return r
}

func (r *Response) WithHeader(name, value string) *Response {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[name] = value
	return r
}

func (r *Response) WithExampleName(name string) *Response {
	r.BodySource = "example"
	r.ExampleName = name
	return r
}

func (r *Response) WithEmpty() *Response {
	r.BodySource = "empty"
	return r
}

func (r *Response) WithDelay(ms int) *Response {
	r.DelayExactMs = ms
	r.DelayMinMs = 0
	r.DelayMaxMs = 0
	return r
}

func (r *Response) WithDelayRange(minMs, maxMs int) *Response {
	r.DelayExactMs = 0
	r.DelayMinMs = minMs
	r.DelayMaxMs = maxMs
	return r
}

func (r *Response) UsingDefaultBehaviour() *Response {
	r.Mode = "default"
	return r
}

// SkipDefaultBehaviour switches the response to short-circuit mode:
// status and headers are emitted with an empty body, bypassing
// default rendering (spec.md §4.3).
func (r *Response) SkipDefaultBehaviour() *Response {
	r.Mode = "short_circuit"
	return r
}

// Immediately is the DSL alias for SkipDefaultBehaviour (spec.md §4.4).
func (r *Response) Immediately() *Response {
	return r.SkipDefaultBehaviour()
}

// Respond terminates the script's interaction with the builder.
func (r *Response) Respond() *Response {
	r.terminated = true
	return r
}

// And is the DSL's other terminator alias.
func (r *Response) And() *Response {
	r.terminated = true
	return r
}

// Terminated reports whether Respond or And was called.
func (r *Response) Terminated() bool {
	return r.terminated
}

// Logger is a script-scoped logger (spec.md §4.4: "scoped to the
// script file's basename").
type Logger struct {
	name string
	sink func(level, msg string)
}

// NewLogger creates a Logger that forwards to sink.
func NewLogger(name string, sink func(level, msg string)) *Logger {
	return &Logger{name: name, sink: sink}
}

func (l *Logger) Debug(msg string) { l.emit("debug", msg) }
func (l *Logger) Info(msg string)  { l.emit("info", msg) }
func (l *Logger) Warn(msg string)  { l.emit("warn", msg) }
func (l *Logger) Error(msg string) { l.emit("error", msg) }

func (l *Logger) emit(level, msg string) {
	if l.sink != nil {
		l.sink(level, msg)
	}
}

// StoreBackend is the subset of store.Store a script's store proxy
// needs. Defined here, rather than imported from internal/store, so
// this package stays free of the yaegi-incompatible surface of that
// package (context parameters, interfaces) and can be safely exported
// into the interpreter.
type StoreBackend interface {
	Save(key string, value any) error
	Load(key string) (any, bool, error)
	HasKey(key string) (bool, error)
	LoadAll() (map[string]any, error)
	Delete(key string) error
}

// StoresHandle is the `stores` DSL handle (spec.md §4.4), present only
// when the stores feature is enabled.
type StoresHandle struct {
	open func(name string) (StoreBackend, error)
}

// NewStoresHandle creates a handle backed by open.
func NewStoresHandle(open func(name string) (StoreBackend, error)) *StoresHandle {
	return &StoresHandle{open: open}
}

// Open resolves a named store proxy. A resolution failure panics,
// caught and turned into a ScriptError by the service's safe-call
// wrapper — scripts are not expected to handle store plumbing errors.
func (s *StoresHandle) Open(name string) *StoreProxy {
	backend, err := s.open(name)
	if err != nil {
		panic(err)
	}
	return &StoreProxy{backend: backend}
}

// StoreProxy exposes one named store to a script.
type StoreProxy struct {
	backend StoreBackend
}

func (p *StoreProxy) Save(key string, value any) {
	if err := p.backend.Save(key, value); err != nil {
		panic(err)
	}
}

func (p *StoreProxy) Load(key string) any {
	v, _, err := p.backend.Load(key)
	if err != nil {
		panic(err)
	}
	return v
}

func (p *StoreProxy) HasKey(key string) bool {
	ok, err := p.backend.HasKey(key)
	if err != nil {
		panic(err)
	}
	return ok
}

func (p *StoreProxy) LoadAll() map[string]any {
	m, err := p.backend.LoadAll()
	if err != nil {
		panic(err)
	}
	return m
}

func (p *StoreProxy) Delete(key string) {
	if err := p.backend.Delete(key); err != nil {
		panic(err)
	}
}
