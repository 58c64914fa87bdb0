package condition

import (
	"context"
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// evalTimeout bounds a single expression run so a hostile watch expression
// cannot stall a preview session.
const evalTimeout = 100 * time.Millisecond

// Watch is a pre-compiled free-form boolean expression evaluated against a
// flag snapshot. Watches are a diagnostics surface for preview sessions;
// they are not part of the flag condition language and never appear in
// graph data.
type Watch struct {
	Src     string
	program *vm.Program
}

// CompileWatch compiles a watch expression once so repeated evaluation per
// runner step stays cheap.
func CompileWatch(src string) (*Watch, error) {
	program, err := expr.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("invalid watch expression %q: %w", src, err)
	}
	return &Watch{Src: src, program: program}, nil
}

// Eval runs the watch against an environment (normally a flag snapshot).
// The run is bounded by a timeout and must produce a boolean.
func (w *Watch) Eval(env map[string]interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	resultChan := make(chan interface{}, 1)
	errChan := make(chan error, 1)

	go func() {
		result, err := vm.Run(w.program, env)
		if err != nil {
			errChan <- err
		} else {
			resultChan <- result
		}
	}()

	select {
	case <-ctx.Done():
		return false, fmt.Errorf("watch evaluation timeout")
	case err := <-errChan:
		return false, fmt.Errorf("watch evaluation error: %w", err)
	case result := <-resultChan:
		boolResult, ok := result.(bool)
		if !ok {
			return false, fmt.Errorf("watch did not evaluate to boolean")
		}
		return boolResult, nil
	}
}

// EvaluateRaw compiles and runs a free-form expression in one shot.
func EvaluateRaw(src string, env map[string]interface{}) (bool, error) {
	w, err := CompileWatch(src)
	if err != nil {
		return false, err
	}
	return w.Eval(env)
}
