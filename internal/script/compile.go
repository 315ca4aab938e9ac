package script

import (
	"fmt"
	"os"
	"reflect"

	"github.com/mockforge/mockforge/internal/script/scriptapi"
)

// compile reads, validates, and evaluates the script at path, then
// extracts its exported Handle function.
func (s *Service) compile(path string) (HandleFunc, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}

	if err := ValidateSource(string(source)); err != nil {
		return nil, fmt.Errorf("validate script %s: %w", path, err)
	}

	interp, err := s.pool.NewInterpreter()
	if err != nil {
		return nil, err
	}
	if err := interp.Use(scriptapi.Symbols); err != nil {
		return nil, fmt.Errorf("register script API: %w", err)
	}

	if _, err := interp.Eval(string(source)); err != nil {
		return nil, fmt.Errorf("evaluate script %s: %w", path, err)
	}

	v, err := interp.Eval("main.Handle")
	if err != nil {
		return nil, fmt.Errorf("script %s does not declare func Handle: %w", path, err)
	}
	if fn, ok := v.Interface().(HandleFunc); ok {
		return fn, nil
	}
	// yaegi may return a function whose signature matches structurally
	// but not as the named HandleFunc type; fall back to a reflective
	// adapter (mirrors the extraction pattern dynamic component loading
	// uses for its Execute function).
	if fn, ok := makeHandleAdapter(v); ok {
		return fn, nil
	}
	return nil, fmt.Errorf("script %s: Handle has an unexpected signature", path)
}

func makeHandleAdapter(v reflect.Value) (HandleFunc, bool) {
	if !v.IsValid() || v.Kind() != reflect.Func || v.Type().NumIn() != 4 {
		return nil, false
	}
	return func(ctx *scriptapi.Context, resp *scriptapi.Response, logger *scriptapi.Logger, stores *scriptapi.StoresHandle) {
		v.Call([]reflect.Value{
			reflect.ValueOf(ctx),
			reflect.ValueOf(resp),
			reflect.ValueOf(logger),
			reflect.ValueOf(stores),
		})
	}, true
}
