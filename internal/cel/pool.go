package cel

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// ExpressionPool caches compiled CEL expressions
type ExpressionPool struct {
	mu          sync.RWMutex
	expressions map[string]compiled
	env         *cel.Env
}

// compiled is a cached program with its checked output type.
type compiled struct {
	program cel.Program
	output  *cel.Type
}

// NewExpressionPool creates a new expression pool with the ping validation
// environment.
func NewExpressionPool() (*ExpressionPool, error) {
	env, err := NewEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create environment: %w", err)
	}
	return NewExpressionPoolWithEnv(env)
}

// NewExpressionPoolWithEnv creates a new expression pool with a custom CEL environment
func NewExpressionPoolWithEnv(env *cel.Env) (*ExpressionPool, error) {
	if env == nil {
		return nil, fmt.Errorf("CEL environment cannot be nil")
	}

	return &ExpressionPool{
		env:         env,
		expressions: make(map[string]compiled),
	}, nil
}

// GetExpression retrieves or compiles an expression. When want is not nil
// the expression must evaluate to that type.
func (e *ExpressionPool) GetExpression(exprStr string, want *cel.Type) (cel.Program, error) {
	e.mu.RLock()
	c, ok := e.expressions[exprStr]
	e.mu.RUnlock()

	if !ok {
		ast, issues := e.env.Compile(exprStr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile expression %q: %w", exprStr, issues.Err())
		}

		program, err := e.env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create program: %w", err)
		}

		c = compiled{program: program, output: ast.OutputType()}
		e.mu.Lock()
		e.expressions[exprStr] = c
		e.mu.Unlock()
	}

	if want != nil && !c.output.IsExactType(want) {
		return nil, fmt.Errorf("expression %q has type %s, want %s", exprStr, c.output, want)
	}
	return c.program, nil
}

// EvaluateExpression evaluates a compiled expression with parameters
func (e *ExpressionPool) EvaluateExpression(program cel.Program, params map[string]any) (any, error) {
	if params == nil {
		params = make(map[string]any)
	}

	activation, err := cel.NewActivation(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create activation: %w", err)
	}

	val, _, err := program.Eval(activation)
	if err != nil {
		return nil, fmt.Errorf("expression evaluation error: %w", err)
	}

	return adaptCELResult(val), nil
}

// Len returns the number of cached programs.
func (e *ExpressionPool) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.expressions)
}

// adaptCELResult converts CEL result values to Go native types
func adaptCELResult(val ref.Val) any {
	switch v := val.(type) {
	case types.Int:
		return int64(v)
	case types.Uint:
		return uint64(v)
	case types.Double:
		return float64(v)
	case types.Bool:
		return bool(v)
	case types.String:
		return string(v)
	case types.Bytes:
		return []byte(v)
	case types.Null:
		return nil
	}

	if lister, ok := val.(traits.Lister); ok {
		size := lister.Size().(types.Int)
		result := make([]any, size)
		for i := types.Int(0); i < size; i++ {
			result[i] = adaptCELResult(lister.Get(i))
		}
		return result
	}
	return val.Value()
}
