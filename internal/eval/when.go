package eval

import (
	"context"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// evalWhen implements the directive form of spec §4.4.5 when:
// evaluate ordered conditions and either return the first matching
// branch's value or run its show-effect (appending rendered text to
// the output buffer, mirroring evalShow).
func (ev *Evaluator) evalWhen(ctx context.Context, n *ast.Node, e *env.Environment) (EvalResult, error) {
	branches := n.NodesField("branches")
	for _, branch := range branches {
		condNode, hasCond := branch.Field("condition")
		matched := true
		if hasCond {
			cond, _ := condNode.(*ast.Node)
			v, err := ev.EvaluateDataValue(ctx, cond, e)
			if err != nil {
				return EvalResult{}, err
			}
			matched = truthy(v)
		}
		if !matched {
			continue
		}

		if effectNode, ok := branch.Field("effect"); ok {
			effect, _ := effectNode.(*ast.Node)
			text, err := ev.renderShowTarget(ctx, effect, e)
			if err != nil {
				return EvalResult{}, err
			}
			return EvalResult{Env: e, Stdout: ensureTrailingNewline(text)}, nil
		}

		valNode, _ := branch.Field("value")
		vn, _ := valNode.(*ast.Node)
		v, err := ev.EvaluateDataValue(ctx, vn, e)
		if err != nil {
			return EvalResult{}, err
		}
		return EvalResult{Value: v, Env: e}, nil
	}
	return EvalResult{Env: e}, nil
}

// evalFor implements spec §4.4.5 for/foreach: iterate an array
// producing either a concatenated value (bound to a destination
// variable) or side-effecting shows, with an optional inline filter
// and cross-product iteration via nested for nodes.
func (ev *Evaluator) evalFor(ctx context.Context, n *ast.Node, e *env.Environment) (EvalResult, error) {
	sourceNode, _ := n.Field("source")
	src, _ := sourceNode.(*ast.Node)
	sourceVal, err := ev.EvaluateDataValue(ctx, src, e)
	if err != nil {
		return EvalResult{}, err
	}
	items, _ := value.AsData(sourceVal).([]interface{})

	binding := n.StringField("binding")
	bodyNode, _ := n.Field("body")
	body, _ := bodyNode.(*ast.Node)
	filterNode, hasFilter := n.Field("filter")
	filter, _ := filterNode.(*ast.Node)
	dest := n.StringField("destination")

	var collected []interface{}
	var out string

	for _, item := range items {
		child := e.CreateChild(e.CurrentFilePath())
		pv := value.NewVariable(binding, value.KindPrimitive, item, value.Source{Directive: "for"})
		if err := child.SetParameterVariable(binding, pv); err != nil {
			return EvalResult{}, err
		}

		if hasFilter && filter != nil {
			keep, err := ev.EvaluateDataValue(ctx, filter, child)
			if err != nil {
				return EvalResult{}, err
			}
			if !truthy(keep) {
				continue
			}
		}

		if body.NodeKind == ast.KindDirective && body.DirectiveKind() == "for" {
			res, err := ev.evalFor(ctx, body, child)
			if err != nil {
				return EvalResult{}, err
			}
			if res.Value != nil {
				if arr, ok := res.Value.([]interface{}); ok {
					collected = append(collected, arr...)
				} else {
					collected = append(collected, res.Value)
				}
			}
			out += res.Stdout
			continue
		}

		if dest != "" {
			v, err := ev.EvaluateDataValue(ctx, body, child)
			if err != nil {
				return EvalResult{}, err
			}
			collected = append(collected, v)
			continue
		}

		text, err := ev.renderShowTarget(ctx, body, child)
		if err != nil {
			return EvalResult{}, err
		}
		out += ensureTrailingNewline(text)
	}

	if dest != "" {
		v := value.NewVariable(dest, value.KindArrayVar, collected, value.Source{Directive: "for"})
		if err := e.SetVariable(dest, v); err != nil {
			return EvalResult{}, err
		}
		return EvalResult{Value: collected, Env: e}, nil
	}
	return EvalResult{Env: e, Stdout: out}, nil
}

// evalGuard implements spec §4.4.5 guard: registers a before/after
// decision hook against a named callable (or "*" for every
// invocation) rather than evaluating it immediately. The registered
// branches run later, inside GuardManager (guard.go), once the exec
// engine's runPreGuards/runPostGuards actually reach a matching
// invocation — mirroring evalWhen's branch matching but translating
// the matched branch's decision verb (allow/deny/retry) into an
// iface.Decision instead of an EvalResult.
func (ev *Evaluator) evalGuard(ctx context.Context, n *ast.Node, e *env.Environment) (EvalResult, error) {
	timing := n.StringField("timing")
	if timing != "before" {
		timing = "after"
	}
	target := n.StringField("target")
	if target == "" {
		target = "*"
	}
	if ev.Guards != nil {
		ev.Guards.Register(&guardDef{
			name:     n.StringField("name"),
			timing:   timing,
			target:   target,
			branches: n.NodesField("branches"),
		})
	}
	return EvalResult{Env: e}, nil
}

func ensureTrailingNewline(s string) string {
	if s == "" || s[len(s)-1] == '\n' {
		return s
	}
	return s + "\n"
}
