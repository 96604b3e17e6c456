package exec

import (
	"context"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/interp"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// InterpolateTemplate renders a command/template node sequence stored
// as []interface{} (the ExecutableDefinition payload shape, spec §3)
// through internal/interp, in shell-escaping context.
func InterpolateTemplate(ctx context.Context, template []interface{}, e *env.Environment, evalr BodyEvaluator) (string, *value.SecurityDescriptor, error) {
	return interpolateAs(ctx, template, e, evalr, interp.ContextShellCommand)
}

// InterpolateMarkdown renders a template{} executable's node sequence
// (spec §3) in Markdown context, the way show/var render TemplateCore
// bodies (spec §4.4.1, §4.4.2).
func InterpolateMarkdown(ctx context.Context, template []interface{}, e *env.Environment, evalr BodyEvaluator) (string, *value.SecurityDescriptor, error) {
	return interpolateAs(ctx, template, e, evalr, interp.ContextMarkdown)
}

// InterpolateDefault renders a node sequence in plain expression
// context, used for section{}'s path/section/rename templates, which
// are identifiers and path fragments rather than shell or Markdown
// output.
func InterpolateDefault(ctx context.Context, template []interface{}, e *env.Environment, evalr BodyEvaluator) (string, *value.SecurityDescriptor, error) {
	return interpolateAs(ctx, template, e, evalr, interp.ContextDefault)
}

func interpolateAs(ctx context.Context, template []interface{}, e *env.Environment, evalr BodyEvaluator, ectx interp.Context) (string, *value.SecurityDescriptor, error) {
	nodes := make([]*ast.Node, 0, len(template))
	for _, t := range template {
		if n, ok := t.(*ast.Node); ok {
			nodes = append(nodes, n)
		}
	}
	return interp.Interpolate(ctx, nodes, e, ectx, interp.Options{CollectSecurityDescriptor: true}, evalr)
}
