package script

import (
	"fmt"
	"go/parser"
	"go/token"
)

// AllowedPackages lists the packages a resource script may import: the
// host's scriptapi package plus standard library packages trimmed from
// the host process's full stdlib to
// what a response-shaping script plausibly needs (spec.md §4.4: "a
// full scripting language runtime" is explicitly out of scope — the
// point is a small embedding contract, not a general sandbox).
var AllowedPackages = map[string]bool{
	"github.com/mockforge/mockforge/internal/script/scriptapi": true,
	"fmt":           true,
	"strings":       true,
	"strconv":       true,
	"encoding/json": true,
	"time":          true,
	"math":          true,
	"math/rand":     true,
	"sort":          true,
	"errors":        true,
	"regexp":        true,
	"net/url":       true,
	"unicode":       true,
	"unicode/utf8":  true,
}

// BlockedPackages is always rejected, even if accidentally added to
// AllowedPackages.
var BlockedPackages = map[string]bool{
	"os":            true,
	"os/exec":       true,
	"syscall":       true,
	"unsafe":        true,
	"plugin":        true,
	"reflect":       true,
	"net":           true,
	"net/http":      true,
	"runtime/debug": true,
}

// IsPackageAllowed reports whether a script may import pkg.
func IsPackageAllowed(pkg string) bool {
	if BlockedPackages[pkg] {
		return false
	}
	return AllowedPackages[pkg]
}

// ValidateSource parses source and rejects any import not on the
// allow list, before it ever reaches the interpreter. Sandbox
// enforcement happens here, at source-validation time, not by
// restricting what the interpreter's loaded stdlib symbols expose.
func ValidateSource(source string) error {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "script.go", source, parser.ImportsOnly)
	if err != nil {
		return fmt.Errorf("parse script: %w", err)
	}
	for _, imp := range f.Imports {
		path := imp.Path.Value
		path = path[1 : len(path)-1] // strip quotes
		if !IsPackageAllowed(path) {
			return fmt.Errorf("import %q is not permitted in a resource script", path)
		}
	}
	return nil
}
