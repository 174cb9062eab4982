package cel

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/twinfer/xtf-plugin/pkg/xtf"
)

// windowSize bounds the raw bytes handed to an expression.
const windowSize = 256

// NewPingValidator compiles a boolean CEL expression into an
// xtf.PingValidator. A match is accepted only when the expression
// evaluates to true; evaluation errors reject the match.
//
//	header_type == 0 && num_chans <= 6 && u2le(window, 14) >= 1990
func (e *ExpressionPool) NewPingValidator(expr string) (xtf.PingValidator, error) {
	program, err := e.GetExpression(expr, cel.BoolType)
	if err != nil {
		return nil, err
	}

	return func(buf []byte, offset int) bool {
		v, err := e.EvaluateExpression(program, PingVariables(buf, offset))
		if err != nil {
			return false
		}
		ok, _ := v.(bool)
		return ok
	}, nil
}

// NewPingValidator compiles expr in a fresh pool.
func NewPingValidator(expr string) (xtf.PingValidator, error) {
	pool, err := NewExpressionPool()
	if err != nil {
		return nil, err
	}
	v, err := pool.NewPingValidator(expr)
	if err != nil {
		return nil, fmt.Errorf("ping validator: %w", err)
	}
	return v, nil
}

// PingVariables builds the activation for a magic number match at offset.
// Header bytes keep their raw record types (uint8, uint16); the environment's
// type adapter widens them to CEL ints.
func PingVariables(buf []byte, offset int) map[string]any {
	byteAt := func(i int) any {
		if i < 0 || i >= len(buf) {
			return int64(-1)
		}
		return buf[i]
	}

	var numChans any = int64(-1)
	if offset >= 0 && offset+6 <= len(buf) {
		numChans = uint16(buf[offset+4]) | uint16(buf[offset+5])<<8
	}

	end := min(offset+windowSize, len(buf))
	var window []byte
	if offset >= 0 && offset < end {
		window = buf[offset:end]
	}

	return map[string]any{
		VarOffset:     int64(offset),
		VarRemaining:  int64(len(buf) - offset),
		VarHeaderType: byteAt(offset + 2),
		VarSubChannel: byteAt(offset + 3),
		VarNumChans:   numChans,
		VarWindow:     window,
	}
}
