// Package eval implements spec §4.4: the directive evaluators (var,
// show, import, run, exe, when, for, foreach, guard) and the
// evaluateDataValue/evaluateDocument drivers that tie interpolation
// (internal/interp), the value model (internal/value), and invocation
// (internal/exec) together over an internal/env.Environment tree.
package eval

import (
	"context"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
)

// EvalResult is the common shape every directive evaluator returns
// (spec §4.4: "each evaluator returns EvalResult{value, env, stdout?,
// stderr?, exitCode?} and may append to env.outputBuffer").
type EvalResult struct {
	Value    interface{}
	Env      *env.Environment
	Stdout   string
	Stderr   string
	ExitCode int
	HasExit  bool
}

// Document evaluates an ordered sequence of top-level nodes against a
// root environment, collecting rendered output in source order (spec
// §6 "Document output: a sequence of text chunks concatenated in
// source order").
func Document(ctx context.Context, nodes []*ast.Node, root *env.Environment) (string, error) {
	ev := New()
	return ev.EvaluateDocument(ctx, nodes, root)
}
