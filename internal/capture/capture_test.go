package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/store"
)

func enabled(b bool) *bool { return &b }

func TestEngine_PathParamCapture(t *testing.T) {
	factory := store.NewStoreFactory(nil, nil)
	e := New(nil, factory)

	captures := []configsrc.NamedCapture{
		{Name: "userId", Config: configsrc.CaptureConfig{
			CaptureSource: configsrc.CaptureSource{PathParam: "id"},
			Store:         "users",
		}},
	}

	req := Request{PathParams: map[string]string{"id": "42"}}
	require.NoError(t, e.Run(context.Background(), req, captures, configsrc.PhaseRequestReceived))

	s, err := factory.OpenOrCreate("users")
	require.NoError(t, err)
	v, ok, err := s.Load(context.Background(), "userId")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "42", v)
}

func TestEngine_LastDeclaredWins(t *testing.T) {
	factory := store.NewStoreFactory(nil, nil)
	e := New(nil, factory)

	captures := []configsrc.NamedCapture{
		{Name: "value", Config: configsrc.CaptureConfig{
			CaptureSource: configsrc.CaptureSource{Const: "first"},
			Store:         "vals",
			Key:           "k",
		}},
		{Name: "value", Config: configsrc.CaptureConfig{
			CaptureSource: configsrc.CaptureSource{Const: "second"},
			Store:         "vals",
			Key:           "k",
		}},
	}

	require.NoError(t, e.Run(context.Background(), Request{}, captures, configsrc.PhaseRequestReceived))

	s, err := factory.OpenOrCreate("vals")
	require.NoError(t, err)
	v, ok, err := s.Load(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", v)
}

func TestEngine_DisabledCaptureSkipped(t *testing.T) {
	factory := store.NewStoreFactory(nil, nil)
	e := New(nil, factory)

	captures := []configsrc.NamedCapture{
		{Name: "ignored", Config: configsrc.CaptureConfig{
			CaptureSource: configsrc.CaptureSource{Const: "nope"},
			Enabled:       enabled(false),
		}},
	}

	require.NoError(t, e.Run(context.Background(), Request{}, captures, configsrc.PhaseRequestReceived))

	s, err := factory.OpenOrCreate("default")
	require.NoError(t, err)
	count, err := s.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestEngine_PhaseFiltering(t *testing.T) {
	factory := store.NewStoreFactory(nil, nil)
	e := New(nil, factory)

	captures := []configsrc.NamedCapture{
		{Name: "onSend", Config: configsrc.CaptureConfig{
			CaptureSource: configsrc.CaptureSource{Const: "v"},
			Phase:         configsrc.PhaseResponseSent,
		}},
	}

	require.NoError(t, e.Run(context.Background(), Request{}, captures, configsrc.PhaseRequestReceived))
	s, err := factory.OpenOrCreate("default")
	require.NoError(t, err)
	count, err := s.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, count)

	require.NoError(t, e.Run(context.Background(), Request{}, captures, configsrc.PhaseResponseSent))
	count, err = s.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestEngine_JSONPathCapture(t *testing.T) {
	factory := store.NewStoreFactory(nil, nil)
	e := New(nil, factory)

	captures := []configsrc.NamedCapture{
		{Name: "itemId", Config: configsrc.CaptureConfig{
			CaptureSource: configsrc.CaptureSource{JSONPath: "$.id"},
		}},
	}

	req := Request{DecodedBody: func() (string, error) { return `{"id": "abc-123"}`, nil }}
	require.NoError(t, e.Run(context.Background(), req, captures, configsrc.PhaseRequestReceived))

	s, err := factory.OpenOrCreate("default")
	require.NoError(t, err)
	v, ok, err := s.Load(context.Background(), "itemId")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc-123", v)
}

func TestEngine_ExpressionCapture(t *testing.T) {
	factory := store.NewStoreFactory(nil, nil)
	e := New(nil, factory)

	captures := []configsrc.NamedCapture{
		{Name: "upperMethod", Config: configsrc.CaptureConfig{
			CaptureSource: configsrc.CaptureSource{Expression: "method"},
		}},
	}

	req := Request{Method: "POST"}
	require.NoError(t, e.Run(context.Background(), req, captures, configsrc.PhaseRequestReceived))

	s, err := factory.OpenOrCreate("default")
	require.NoError(t, err)
	v, ok, err := s.Load(context.Background(), "upperMethod")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "POST", v)
}

func TestEngine_StoreKeyDerivesStoreName(t *testing.T) {
	factory := store.NewStoreFactory(nil, nil)
	e := New(nil, factory)

	captures := []configsrc.NamedCapture{
		{Name: "tenantValue", Config: configsrc.CaptureConfig{
			CaptureSource: configsrc.CaptureSource{Const: "v1"},
			StoreKey:      &configsrc.CaptureSource{PathParam: "tenant"},
		}},
	}

	req := Request{PathParams: map[string]string{"tenant": "acme"}}
	require.NoError(t, e.Run(context.Background(), req, captures, configsrc.PhaseRequestReceived))

	s, err := factory.OpenOrCreate("acme")
	require.NoError(t, err)
	v, ok, err := s.Load(context.Background(), "tenantValue")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", v)
}
