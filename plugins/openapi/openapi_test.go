package openapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/httpx"
	"github.com/mockforge/mockforge/internal/response"
)

func newExchange(t *testing.T, method, path, body string) (*httpx.Exchange, *httptest.ResponseRecorder) {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	return httpx.New(w, r), w
}

func newPlugin(t *testing.T, validateRequest bool) *Plugin {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spec.yaml"), []byte(sampleSpec), 0o644))

	cfg := &configsrc.PluginConfig{
		Dir:      dir,
		SpecFile: "spec.yaml",
		Validation: &configsrc.ValidationConfig{
			Request: validateRequest,
		},
	}
	svc, err := response.New(nil, response.Config{})
	require.NoError(t, err)

	p, err := New(cfg, svc)
	require.NoError(t, err)
	return p
}

func TestPlugin_OnRequest_ResolvesExampleIntoBody(t *testing.T) {
	p := newPlugin(t, false)
	cfg := &configsrc.PluginConfig{Dir: t.TempDir()}
	resource := &configsrc.ResourceConfig{
		Method:   "GET",
		Path:     "/widgets/{id}",
		Response: &configsrc.ResponseConfig{StatusCode: 200, ExampleName: "default"},
	}

	ex, w := newExchange(t, http.MethodGet, "/widgets/1", "")
	p.OnRequest(context.Background(), ex, cfg, resource, map[string]string{"id": "1"})

	require.Equal(t, 200, w.Code)
	require.JSONEq(t, `{"name":"widget"}`, w.Body.String())
}

func TestPlugin_OnRequest_RejectsInvalidBodyWhenValidationEnabled(t *testing.T) {
	p := newPlugin(t, true)
	cfg := &configsrc.PluginConfig{Dir: t.TempDir()}
	resource := &configsrc.ResourceConfig{
		Method:   "POST",
		Path:     "/widgets/{id}",
		Response: &configsrc.ResponseConfig{StatusCode: 201},
	}

	ex, _ := newExchange(t, http.MethodPost, "/widgets/1", `{"notName": "oops"}`)
	p.OnRequest(context.Background(), ex, cfg, resource, map[string]string{"id": "1"})

	code, err := ex.Failure()
	require.Equal(t, 400, code)
	require.Error(t, err)
}

func TestPlugin_OnRequest_AcceptsValidBody(t *testing.T) {
	p := newPlugin(t, true)
	cfg := &configsrc.PluginConfig{Dir: t.TempDir()}
	resource := &configsrc.ResourceConfig{
		Method:   "POST",
		Path:     "/widgets/{id}",
		Response: &configsrc.ResponseConfig{StatusCode: 201},
	}

	ex, w := newExchange(t, http.MethodPost, "/widgets/1", `{"name": "widget"}`)
	p.OnRequest(context.Background(), ex, cfg, resource, map[string]string{"id": "1"})

	code, _ := ex.Failure()
	require.Equal(t, 0, code)
	require.Equal(t, 201, w.Code)
}
