package script

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSource_AllowsPermittedImports(t *testing.T) {
	src := `package main

import (
	"fmt"
	"strings"
)

func Handle() {
	fmt.Println(strings.ToUpper("ok"))
}
`
	require.NoError(t, ValidateSource(src))
}

func TestValidateSource_RejectsBlockedImport(t *testing.T) {
	src := `package main

import "os"

func Handle() {
	os.Exit(1)
}
`
	err := ValidateSource(src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "os")
}

func TestValidateSource_RejectsUnknownImport(t *testing.T) {
	src := `package main

import "github.com/some/unlisted/package"

func Handle() {}
`
	err := ValidateSource(src)
	require.Error(t, err)
}

func TestIsPackageAllowed(t *testing.T) {
	require.True(t, IsPackageAllowed("fmt"))
	require.False(t, IsPackageAllowed("os"))
	require.False(t, IsPackageAllowed("syscall"))
}
