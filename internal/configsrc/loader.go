package configsrc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// rawResourceConfig mirrors ResourceConfig but captures the capture
// map as a yaml.Node so declaration order can be recovered — plain Go
// maps don't preserve YAML key order, and spec.md §4.2/§8 depends on
// "last declared wins" being well-defined.
type rawResourceConfig struct {
	Method         string            `yaml:"method"`
	Path           string            `yaml:"path"`
	QueryParams    map[string]string `yaml:"queryParams"`
	Headers        map[string]string `yaml:"requestHeaders"`
	RequestBody    *BodyMatcher      `yaml:"requestBody"`
	Response       *ResponseConfig   `yaml:"response"`
	CaptureNode    yaml.Node         `yaml:"capture"`
}

type rawPluginConfig struct {
	Plugin                   string              `yaml:"plugin"`
	ContentType              string              `yaml:"contentType"`
	DefaultsFromRootResponse bool                `yaml:"defaultsFromRootResponse"`
	Response                 *ResponseConfig     `yaml:"response"`
	Resources                []rawResourceConfig `yaml:"resources"`
	SpecFile                 string              `yaml:"specFile"`
	Validation               *ValidationConfig   `yaml:"validation"`
}

// LoadDirectories scans each root directory for plugin configuration
// documents and returns one PluginConfig per document found.
//
// A document is any *-config.yaml, *-config.yml, or *-config.json file,
// matching the discovery convention used by the reference
// implementation this spec was distilled from.
func LoadDirectories(roots []string) ([]*PluginConfig, error) {
	var configs []*PluginConfig
	for _, root := range roots {
		found, err := loadDirectory(root)
		if err != nil {
			return nil, err
		}
		configs = append(configs, found...)
	}
	return configs, nil
}

func loadDirectory(root string) ([]*PluginConfig, error) {
	var configs []*PluginConfig
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !isConfigDocument(d.Name()) {
			return nil
		}
		cfg, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		configs = append(configs, cfg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return configs, nil
}

func isConfigDocument(name string) bool {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, "-config.yaml") &&
		!strings.HasSuffix(lower, "-config.yml") &&
		!strings.HasSuffix(lower, "-config.json") {
		return false
	}
	return true
}

// LoadFile parses a single plugin configuration document.
func LoadFile(path string) (*PluginConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var raw rawPluginConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := &PluginConfig{
		Dir:                      filepath.Dir(path),
		File:                     path,
		Plugin:                   raw.Plugin,
		ContentType:              raw.ContentType,
		DefaultsFromRootResponse: raw.DefaultsFromRootResponse,
		Response:                 raw.Response,
		SpecFile:                 raw.SpecFile,
		Validation:               raw.Validation,
	}
	if cfg.Plugin == "" {
		cfg.Plugin = "rest"
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/json"
	}

	for i, rr := range raw.Resources {
		res := ResourceConfig{
			ID:               fmt.Sprintf("%s#%d", filepath.Base(path), i),
			DeclarationOrder: i,
			Method:           rr.Method,
			Path:             rr.Path,
			QueryParams:      rr.QueryParams,
			Headers:          rr.Headers,
			RequestBody:      rr.RequestBody,
			Response:         rr.Response,
		}
		if res.Response == nil {
			res.Response = &ResponseConfig{}
		}
		if res.Response.StatusCode == 0 {
			res.Response.StatusCode = 200
		}
		if rr.RequestBody != nil {
			res.RequestBody.Kind = classifyBodyMatcher(rr.RequestBody)
		}

		captures, captureMap, err := parseCaptureNode(&rr.CaptureNode)
		if err != nil {
			return nil, fmt.Errorf("%s: resource %d: capture: %w", path, i, err)
		}
		res.Captures = captures
		res.CaptureMap = captureMap

		cfg.Resources = append(cfg.Resources, res)
	}

	return cfg, nil
}

// classifyBodyMatcher infers which matcher form was configured.
func classifyBodyMatcher(b *BodyMatcher) BodyMatcherKind {
	switch {
	case b.JSONPath != "":
		return BodyMatcherJSONPath
	case b.XPath != "":
		return BodyMatcherXPath
	case b.Regex != "":
		return BodyMatcherRegex
	default:
		return BodyMatcherLiteral
	}
}

// parseCaptureNode decodes the `capture:` YAML mapping node while
// recording the order its keys appeared in the document.
func parseCaptureNode(node *yaml.Node) ([]NamedCapture, map[string]CaptureConfig, error) {
	if node.Kind == 0 {
		return nil, nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("capture must be a mapping")
	}

	captureMap := make(map[string]CaptureConfig, len(node.Content)/2)
	captures := make([]NamedCapture, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var cc CaptureConfig
		if err := node.Content[i+1].Decode(&cc); err != nil {
			return nil, nil, fmt.Errorf("capture %q: %w", name, err)
		}
		captureMap[name] = cc
		captures = append(captures, NamedCapture{Name: name, Config: cc})
	}

	return captures, captureMap, nil
}

// NewResourceID assigns a fresh unique ID, used by plugins (e.g.
// openapi) that synthesize ResourceConfigs rather than parsing them
// from a document.
func NewResourceID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
