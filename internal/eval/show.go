package eval

import (
	"context"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/interp"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// evalShow implements spec §4.4.2 show: evaluate its argument
// (variable, literal, template, exec invocation, or load-content) and
// append the rendered text to the output buffer. Show never mutates
// bindings except to register the collected node.
func (ev *Evaluator) evalShow(ctx context.Context, n *ast.Node, e *env.Environment) (EvalResult, error) {
	targetNode, ok := n.Field("target")
	target, _ := targetNode.(*ast.Node)
	if !ok || target == nil {
		return EvalResult{}, errors.New(errors.KindMissingValue, loc(n), "show", "show has no target")
	}

	text, err := ev.renderShowTarget(ctx, target, e)
	if err != nil {
		return EvalResult{}, err
	}
	text = ensureTrailingNewline(text)
	e.AppendOutput(&ast.Node{NodeKind: ast.KindText, Fields: map[string]interface{}{"value": text}})
	return EvalResult{Env: e, Stdout: text}, nil
}

// renderShowTarget evaluates a show-like target to its text
// projection, preserving newline fidelity (spec §6, §8): template
// nodes interpolate in Markdown context; everything else goes through
// evaluateDataValue and asText.
func (ev *Evaluator) renderShowTarget(ctx context.Context, target *ast.Node, e *env.Environment) (string, error) {
	if target == nil {
		return "", nil
	}
	switch target.NodeKind {
	case ast.KindTemplateCore:
		text, _, err := interp.Interpolate(ctx, target.NodesField("nodes"), e, interp.ContextMarkdown, interp.Options{}, ev)
		return text, err
	case ast.KindText:
		return target.Text(), nil
	default:
		v, err := ev.EvaluateDataValue(ctx, target, e)
		if err != nil {
			return "", err
		}
		return value.AsText(v), nil
	}
}
