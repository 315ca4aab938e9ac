package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/httpx"
	"github.com/mockforge/mockforge/internal/response"
)

func newExchange(method, path string) (*httpx.Exchange, *httptest.ResponseRecorder) {
	r := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	return httpx.New(w, r), w
}

func TestPlugin_OnRequest_ResolvedResource(t *testing.T) {
	svc, err := response.New(nil, response.Config{})
	require.NoError(t, err)
	p := New(svc)

	cfg := &configsrc.PluginConfig{Dir: t.TempDir()}
	resource := &configsrc.ResourceConfig{ID: "r1", Response: &configsrc.ResponseConfig{StatusCode: 200, Data: "pong"}}

	ex, w := newExchange(http.MethodGet, "/ping")
	p.OnRequest(context.Background(), ex, cfg, resource, nil)

	require.Equal(t, 200, w.Code)
	require.Equal(t, "pong", w.Body.String())
}

func TestPlugin_OnRequest_RootResponseFallback(t *testing.T) {
	svc, err := response.New(nil, response.Config{})
	require.NoError(t, err)
	p := New(svc)

	cfg := &configsrc.PluginConfig{
		Dir:      t.TempDir(),
		Response: &configsrc.ResponseConfig{StatusCode: 200, Data: "default body"},
	}

	ex, w := newExchange(http.MethodGet, "/anything")
	p.OnRequest(context.Background(), ex, cfg, nil, nil)

	require.Equal(t, 200, w.Code)
	require.Equal(t, "default body", w.Body.String())
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
}
