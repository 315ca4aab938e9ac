package configsrc

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveResponseFile resolves a resource's response file path relative
// to the plugin's directory, rejecting any path that would escape it
// (spec.md §4.5: "must not escape it; reject `..` traversal").
func ResolveResponseFile(pluginDir, file string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("empty response file path")
	}
	joined := filepath.Join(pluginDir, file)

	absDir, err := filepath.Abs(pluginDir)
	if err != nil {
		return "", fmt.Errorf("resolve plugin dir: %w", err)
	}
	absFile, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("resolve response file: %w", err)
	}

	rel, err := filepath.Rel(absDir, absFile)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("response file %q escapes plugin directory", file)
	}
	return absFile, nil
}
