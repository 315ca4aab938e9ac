package features

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	f := Parse("metrics=true,stores=false")
	require.True(t, f.Metrics)
	require.False(t, f.Stores)
}

func TestParse_EmptyAndMalformedIgnored(t *testing.T) {
	f := Parse("")
	require.False(t, f.Metrics)
	require.False(t, f.Stores)

	f = Parse("metrics,stores=true,=true")
	require.False(t, f.Metrics)
	require.True(t, f.Stores)
}

func TestParse_CaseInsensitiveValue(t *testing.T) {
	f := Parse("metrics=TRUE")
	require.True(t, f.Metrics)
}
