package main

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/twinfer/xtf-plugin/pkg/xtf"
)

// PingFilter selects pings with an expr-lang boolean expression evaluated
// against the decoded ping.
type PingFilter struct {
	source  string
	program *vm.Program
}

// NewPingFilter compiles source. The expression sees `index`, `offset`,
// `header` (field name to value) and `channels` (a list of such maps).
func NewPingFilter(source string) (*PingFilter, error) {
	program, err := expr.Compile(source, expr.Env(pingEnv(nil)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile ping filter %q: %w", source, err)
	}
	return &PingFilter{source: source, program: program}, nil
}

// Match reports whether the ping passes the filter.
func (f *PingFilter) Match(p *xtf.Ping) (bool, error) {
	out, err := expr.Run(f.program, pingEnv(p))
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}

func pingEnv(p *xtf.Ping) map[string]any {
	if p == nil {
		return map[string]any{
			"index":    0,
			"offset":   0,
			"header":   map[string]any{},
			"channels": []any{},
		}
	}
	m := p.ToMap()
	return map[string]any{
		"index":    p.Index,
		"offset":   p.Offset,
		"header":   m["header"],
		"channels": m["channels"],
	}
}
