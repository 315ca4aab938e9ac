package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/httpx"
)

func newExchange(method, path string) (*httpx.Exchange, *httptest.ResponseRecorder) {
	r := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	return httpx.New(w, r), w
}

func TestRouter_DispatchesToMatchingResource(t *testing.T) {
	r := New(nil)
	cfg := &configsrc.PluginConfig{
		Resources: []configsrc.ResourceConfig{
			{Method: "GET", Path: "/users/{id}"},
		},
	}
	var gotID string
	r.RegisterPlugin(cfg, func(ctx context.Context, ex *httpx.Exchange, plugin *configsrc.PluginConfig, resource *configsrc.ResourceConfig, pathParams map[string]string) {
		gotID = pathParams["id"]
		ex.SetStatusCode(200)
		_ = ex.End([]byte("ok"))
	})

	ex, w := newExchange(http.MethodGet, "/users/42")
	r.Dispatch(ex)

	require.Equal(t, "42", gotID)
	require.Equal(t, 200, w.Code)
}

func TestRouter_NoMatchReturns404(t *testing.T) {
	r := New(nil)
	cfg := &configsrc.PluginConfig{
		Resources: []configsrc.ResourceConfig{{Method: "GET", Path: "/known"}},
	}
	r.RegisterPlugin(cfg, func(ctx context.Context, ex *httpx.Exchange, plugin *configsrc.PluginConfig, resource *configsrc.ResourceConfig, pathParams map[string]string) {
		t.Fatal("handler should not be invoked")
	})

	ex, w := newExchange(http.MethodGet, "/unknown")
	r.Dispatch(ex)

	require.Equal(t, 404, w.Code)
	require.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	require.Equal(t, "Resource not found", w.Body.String())
}

func TestRouter_FallsBackToRootResponseWhenNoResourceMatches(t *testing.T) {
	r := New(nil)
	cfg := &configsrc.PluginConfig{
		Response: &configsrc.ResponseConfig{StatusCode: 200, Data: "default"},
	}
	called := false
	r.RegisterPlugin(cfg, func(ctx context.Context, ex *httpx.Exchange, plugin *configsrc.PluginConfig, resource *configsrc.ResourceConfig, pathParams map[string]string) {
		called = true
		require.Nil(t, resource)
		ex.SetStatusCode(plugin.Response.StatusCode)
		_ = ex.End([]byte(plugin.Response.Data))
	})

	ex, w := newExchange(http.MethodGet, "/anything")
	r.Dispatch(ex)

	require.True(t, called)
	require.Equal(t, "default", w.Body.String())
}

func TestRouter_FailedExchangeUsesRegisteredErrorHandler(t *testing.T) {
	r := New(nil)
	cfg := &configsrc.PluginConfig{
		Resources: []configsrc.ResourceConfig{{Method: "GET", Path: "/boom"}},
	}
	r.RegisterPlugin(cfg, func(ctx context.Context, ex *httpx.Exchange, plugin *configsrc.PluginConfig, resource *configsrc.ResourceConfig, pathParams map[string]string) {
		ex.Fail(500, errors.New("kaboom"))
	})

	handlerCalled := false
	r.OnError(500, func(ex *httpx.Exchange, code int, cause error) {
		handlerCalled = true
		ex.SetStatusCode(code)
		_ = ex.End([]byte("handled: " + cause.Error()))
	})

	ex, w := newExchange(http.MethodGet, "/boom")
	r.Dispatch(ex)

	require.True(t, handlerCalled)
	require.Equal(t, 500, w.Code)
	require.Equal(t, "handled: kaboom", w.Body.String())
}

func TestRouter_FailedExchangeDefaultsWithoutRegisteredHandler(t *testing.T) {
	r := New(nil)
	cfg := &configsrc.PluginConfig{
		Resources: []configsrc.ResourceConfig{{Method: "GET", Path: "/boom"}},
	}
	r.RegisterPlugin(cfg, func(ctx context.Context, ex *httpx.Exchange, plugin *configsrc.PluginConfig, resource *configsrc.ResourceConfig, pathParams map[string]string) {
		ex.Fail(503, errors.New("unavailable"))
	})

	ex, w := newExchange(http.MethodGet, "/boom")
	r.Dispatch(ex)

	require.Equal(t, 503, w.Code)
	require.Equal(t, "unavailable", w.Body.String())
}

func TestRouter_ResetClearsRegisteredPlugins(t *testing.T) {
	r := New(nil)
	cfg := &configsrc.PluginConfig{
		Resources: []configsrc.ResourceConfig{{Method: "GET", Path: "/known"}},
	}
	r.RegisterPlugin(cfg, func(ctx context.Context, ex *httpx.Exchange, plugin *configsrc.PluginConfig, resource *configsrc.ResourceConfig, pathParams map[string]string) {
		ex.SetStatusCode(200)
		_ = ex.End([]byte("ok"))
	})

	r.Reset()

	ex, w := newExchange(http.MethodGet, "/known")
	r.Dispatch(ex)

	require.Equal(t, 404, w.Code)
}
