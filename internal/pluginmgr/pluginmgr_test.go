package pluginmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/httpx"
)

type stubPlugin struct{ called bool }

func (s *stubPlugin) OnRequest(ctx context.Context, ex *httpx.Exchange, cfg *configsrc.PluginConfig, resource *configsrc.ResourceConfig, pathParams map[string]string) {
	s.called = true
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	p := &stubPlugin{}
	require.NoError(t, r.Register("rest", p))

	got, ok := r.Lookup("rest")
	require.True(t, ok)
	require.Same(t, p, got)
}

func TestRegistry_LookupDefaultsToRest(t *testing.T) {
	r := NewRegistry()
	p := &stubPlugin{}
	require.NoError(t, r.Register("rest", p))

	got, ok := r.Lookup("")
	require.True(t, ok)
	require.Same(t, p, got)
}

func TestRegistry_DuplicateRegistrationFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("rest", &stubPlugin{}))
	require.Error(t, r.Register("rest", &stubPlugin{}))
}

func TestRegistry_LookupMissingReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("openapi")
	require.False(t, ok)
}
