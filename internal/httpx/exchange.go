// Package httpx implements the server adapter: a net/http listener
// that builds one Exchange per request and a minimal uniform view over
// it (spec.md §3, §6 "HttpExchange surface consumed by the core"),
// grounded on the teacher's module/http.go and module/http_server.go.
package httpx

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
)

// Exchange is the per-request object the core pipeline operates on:
// an immutable request view, a mutable response builder, an attribute
// bag, and a failure slot (spec.md §3).
type Exchange struct {
	req *http.Request
	w   http.ResponseWriter

	bodyOnce sync.Once
	bodyRaw  []byte
	bodyErr  error

	mu         sync.Mutex
	attributes map[string]any
	ended      bool
	failCode   int
	failErr    error

	pendingHeaders map[string]string
	pendingStatus  int
}

// New wraps a request/response pair into an Exchange.
func New(w http.ResponseWriter, r *http.Request) *Exchange {
	return &Exchange{
		req:            r,
		w:              w,
		attributes:     make(map[string]any),
		pendingHeaders: make(map[string]string),
		pendingStatus:  200,
	}
}

func (e *Exchange) Method() string { return e.req.Method }
func (e *Exchange) Path() string   { return e.req.URL.Path }

// Context returns the inbound request's context, cancelled when the
// client disconnects before the response is flushed (spec.md §5
// "Cancellation"). Callers that run a cancellable suspension point
// (the performance-simulation timer, a blocking read) must derive from
// this rather than context.Background(), or a dropped connection goes
// unnoticed until the handler finishes on its own.
func (e *Exchange) Context() context.Context { return e.req.Context() }

// Query returns the request's query parameters as a multimap.
func (e *Exchange) Query() map[string][]string {
	return map[string][]string(e.req.URL.Query())
}

// Headers returns the request headers as a case-insensitive multimap
// (net/http already canonicalises header names).
func (e *Exchange) Headers() map[string][]string {
	return map[string][]string(e.req.Header)
}

// Body reads and caches the raw request body.
func (e *Exchange) Body() ([]byte, error) {
	e.bodyOnce.Do(func() {
		if e.req.Body == nil {
			return
		}
		defer e.req.Body.Close()
		e.bodyRaw, e.bodyErr = io.ReadAll(e.req.Body)
	})
	return e.bodyRaw, e.bodyErr
}

// DecodedBody returns the request body decoded as a string.
func (e *Exchange) DecodedBody() (string, error) {
	b, err := e.Body()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Attr retrieves a value from the attribute bag (used to pass
// route-matched context, e.g. path parameters, forward).
func (e *Exchange) Attr(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.attributes[key]
	return v, ok
}

// SetAttr stores a value in the attribute bag.
func (e *Exchange) SetAttr(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attributes[key] = value
}

// SetStatusCode records the status code to send on End/SendFile.
func (e *Exchange) SetStatusCode(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingStatus = code
}

// PutHeader records a response header to send on End/SendFile.
func (e *Exchange) PutHeader(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingHeaders[name] = value
}

// Fail records a failure: the router maps it to the matching status
// code's error handler (spec.md §4.7).
func (e *Exchange) Fail(code int, cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failCode = code
	e.failErr = cause
}

// Failure returns the recorded failure, if any.
func (e *Exchange) Failure() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failCode, e.failErr
}

// Ended reports whether the response has already been flushed.
func (e *Exchange) Ended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ended
}

// flushHeaders writes the recorded status code and headers exactly
// once; callers must hold no further intent to mutate them afterward.
func (e *Exchange) flushHeaders() {
	for k, v := range e.pendingHeaders {
		e.w.Header().Set(k, v)
	}
	e.w.WriteHeader(e.pendingStatus)
}

// End writes body (which may be nil for an empty body) and marks the
// exchange ended. Calling End twice is a programming error; only the
// first call has effect.
func (e *Exchange) End(body []byte) error {
	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return nil
	}
	e.ended = true
	e.mu.Unlock()

	e.flushHeaders()
	if len(body) == 0 {
		return nil
	}
	_, err := e.w.Write(body)
	return err
}

// SendFile streams a file directly to the response without buffering
// its content in memory (spec.md §4.5: "stream the file directly").
func (e *Exchange) SendFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return nil
	}
	e.ended = true
	e.mu.Unlock()

	e.flushHeaders()
	_, err = io.Copy(e.w, f)
	return err
}

// GuessContentTypeFromExtension infers a MIME type from a response
// file's extension, falling back to "" when unknown (spec.md §4.5:
// "infer from the response file's extension via a MIME table").
func GuessContentTypeFromExtension(path string) string {
	dot := strings.LastIndex(path, ".")
	if dot < 0 {
		return ""
	}
	ext := strings.ToLower(path[dot+1:])
	return mimeTable[ext]
}

var mimeTable = map[string]string{
	"json": "application/json",
	"xml":  "application/xml",
	"html": "text/html",
	"htm":  "text/html",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
	"yaml": "application/yaml",
	"yml":  "application/yaml",
}
