package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/mockforge/mockforge/internal/configsrc"
	"github.com/mockforge/mockforge/internal/httpx"
	"github.com/mockforge/mockforge/internal/response"
)

// ResolutionError is a 400-class failure distinct from the core's 500
// RenderError/ScriptError, raised when an inbound request body fails
// OpenAPI schema validation (spec.md MODULE EXPANSION item 4).
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string { return e.Reason }

// Plugin is the "openapi" plugin.
type Plugin struct {
	spec       *Spec
	responses  *response.Service
	validation configsrc.ValidationConfig
	schemas    map[string]*jsonschema.Schema
}

// New creates an openapi Plugin. cfg.SpecFile is resolved relative to
// cfg.Dir and parsed once at startup; cfg.Validation (if set) enables
// request-body schema validation.
func New(cfg *configsrc.PluginConfig, svc *response.Service) (*Plugin, error) {
	specPath, err := configsrc.ResolveResponseFile(cfg.Dir, cfg.SpecFile)
	if err != nil {
		return nil, fmt.Errorf("openapi plugin: %w", err)
	}
	spec, err := Load(specPath)
	if err != nil {
		return nil, err
	}

	validation := configsrc.ValidationConfig{}
	if cfg.Validation != nil {
		validation = *cfg.Validation
	}

	p := &Plugin{spec: spec, responses: svc, validation: validation, schemas: make(map[string]*jsonschema.Schema)}
	if validation.Request {
		if err := p.compileSchemas(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Resources returns the ResourceConfig set derived from the parsed
// spec, for RegisterPlugin to hand to the router.
func (p *Plugin) Resources() []configsrc.ResourceConfig {
	return DeriveResources(p.spec)
}

func (p *Plugin) compileSchemas() error {
	compiler := jsonschema.NewCompiler()
	for path, item := range p.spec.Paths {
		for method, op := range item {
			if op == nil || op.RequestBody == nil {
				continue
			}
			schemaDoc, ok := RequestSchema(p.spec, path, method)
			if !ok {
				continue
			}
			url := fmt.Sprintf("mem://%s/%s", method, path)
			raw, err := json.Marshal(schemaDoc)
			if err != nil {
				return fmt.Errorf("marshal schema for %s %s: %w", method, path, err)
			}
			res, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
			if err != nil {
				return fmt.Errorf("decode schema for %s %s: %w", method, path, err)
			}
			if err := compiler.AddResource(url, res); err != nil {
				return fmt.Errorf("add schema resource %s %s: %w", method, path, err)
			}
			sch, err := compiler.Compile(url)
			if err != nil {
				return fmt.Errorf("compile schema for %s %s: %w", method, path, err)
			}
			p.schemas[schemaKey(method, path)] = sch
		}
	}
	return nil
}

func schemaKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// OnRequest implements pluginmgr.Plugin.
func (p *Plugin) OnRequest(ctx context.Context, ex *httpx.Exchange, cfg *configsrc.PluginConfig, resource *configsrc.ResourceConfig, pathParams map[string]string) {
	if resource == nil {
		ex.SetStatusCode(404)
		ex.PutHeader("Content-Type", "text/plain")
		_ = ex.End([]byte("Resource not found"))
		return
	}

	if p.validation.Request {
		if err := p.validateRequest(ex, resource); err != nil {
			ex.Fail(400, err)
			return
		}
	}

	resolved := *resource
	if resolved.Response != nil && resolved.Response.ExampleName != "" {
		if body, ok := ResolveExample(p.spec, resource.Path, resource.Method, resolved.Response.ExampleName); ok {
			responseCopy := *resolved.Response
			responseCopy.Data = body
			responseCopy.ExampleName = ""
			resolved.Response = &responseCopy
		}
	}

	_ = p.responses.Handle(ctx, cfg, &resolved, ex, pathParams, nil)
}

func (p *Plugin) validateRequest(ex *httpx.Exchange, resource *configsrc.ResourceConfig) error {
	sch, ok := p.schemas[schemaKey(resource.Method, resource.Path)]
	if !ok {
		return nil
	}
	body, err := ex.Body()
	if err != nil {
		return &ResolutionError{Reason: fmt.Sprintf("reading request body: %v", err)}
	}
	if len(body) == 0 {
		return nil
	}
	var instance any
	if err := json.Unmarshal(body, &instance); err != nil {
		return &ResolutionError{Reason: fmt.Sprintf("request body is not valid JSON: %v", err)}
	}
	if err := sch.Validate(instance); err != nil {
		return &ResolutionError{Reason: fmt.Sprintf("request body failed schema validation: %v", err)}
	}
	return nil
}
