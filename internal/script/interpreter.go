package script

import (
	"fmt"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// InterpreterPool hands out fresh yaegi interpreters. Each script
// compilation gets its own interpreter; the compiled Handle function
// is then cached and reused by every later execution of that script,
// including executions from concurrent requests.
type InterpreterPool struct {
	mu     sync.Mutex
	goPath string
}

// NewInterpreterPool creates a pool. goPath may be empty.
func NewInterpreterPool(goPath string) *InterpreterPool {
	return &InterpreterPool{goPath: goPath}
}

// NewInterpreter creates an interpreter with the Go standard library
// loaded. Allowed-package enforcement happens earlier, at
// ValidateSource, not here.
func (p *InterpreterPool) NewInterpreter() (*interp.Interpreter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := interp.Options{}
	if p.goPath != "" {
		opts.GoPath = p.goPath
	}

	i := interp.New(opts)
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	return i, nil
}
