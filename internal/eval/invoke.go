package eval

import (
	"context"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/exec"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// buildInvocationNode reads the fields an ExecInvocation AST node is
// expected to carry (spec §4.5): the target name or object/method
// pair, positional argument expressions, and a prebuilt with-clause.
func buildInvocationNode(ctx context.Context, n *ast.Node, ev *Evaluator, e *env.Environment) (exec.InvocationNode, error) {
	inv := exec.InvocationNode{
		Loc:         n.Loc,
		TargetName:  n.StringField("name"),
		ObjectRef:   n.StringField("objectRef"),
		FieldMethod: n.StringField("objectMethod"),
		Args:        n.NodesField("args"),
	}
	if w, ok := n.Field("with"); ok {
		if wc, ok := w.(*value.WithClause); ok {
			inv.With = wc
		}
	}
	return inv, nil
}

// evalForeachExpr implements the foreach/for-expression branch of
// spec §4.3 evaluateDataValue: iterate a source array, producing a
// concatenated array of per-iteration evaluations, honoring an
// optional inline filter condition.
func (ev *Evaluator) evalForeachExpr(ctx context.Context, n *ast.Node, e *env.Environment) (interface{}, error) {
	sourceNode, _ := n.Field("source")
	srcN, _ := sourceNode.(*ast.Node)
	source, err := ev.EvaluateDataValue(ctx, srcN, e)
	if err != nil {
		return nil, err
	}
	items, _ := value.AsData(source).([]interface{})

	bindingName := n.StringField("binding")
	bodyNode, _ := n.Field("body")
	body, _ := bodyNode.(*ast.Node)
	filterNode, hasFilter := n.Field("filter")
	filter, _ := filterNode.(*ast.Node)

	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		child := e.CreateChild(e.CurrentFilePath())
		pv := value.NewVariable(bindingName, value.KindPrimitive, item, value.Source{Directive: "for"})
		if err := child.SetParameterVariable(bindingName, pv); err != nil {
			return nil, err
		}
		if hasFilter && filter != nil {
			keep, err := ev.EvaluateDataValue(ctx, filter, child)
			if err != nil {
				return nil, err
			}
			if !truthy(keep) {
				continue
			}
		}
		v, err := ev.EvaluateDataValue(ctx, body, child)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// evalWhenExpr implements the WhenExpression branch of evaluateDataValue:
// evaluate ordered conditions, returning the first matching branch's
// value (spec §4.4.5 when).
func (ev *Evaluator) evalWhenExpr(ctx context.Context, n *ast.Node, e *env.Environment) (interface{}, error) {
	branches := n.NodesField("branches")
	for _, branch := range branches {
		condNode, _ := branch.Field("condition")
		cond, _ := condNode.(*ast.Node)
		matched := true
		if cond != nil {
			v, err := ev.EvaluateDataValue(ctx, cond, e)
			if err != nil {
				return nil, err
			}
			matched = truthy(v)
		}
		if matched {
			valNode, _ := branch.Field("value")
			vn, _ := valNode.(*ast.Node)
			return ev.EvaluateDataValue(ctx, vn, e)
		}
	}
	return nil, nil
}

// evalLoadContent produces a wrapped content value from a load-content
// node (spec §4.3, §4.4.1): read the resolved path through the
// environment's Filesystem/PathService collaborators and wrap as text.
func (ev *Evaluator) evalLoadContent(ctx context.Context, n *ast.Node, e *env.Environment) (interface{}, error) {
	path := n.StringField("path")
	mp, err := e.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	data, err := e.ReadFile(mp.ValidatedPath)
	if err != nil {
		return nil, err
	}
	content := string(data)
	if section := n.StringField("section"); section != "" {
		extracted, ok := extractSection(content, section)
		if !ok {
			return nil, sectionNotFound(n, section)
		}
		content = extracted
	}
	return value.WrapExecResult(content, value.WrapOptions{SourceType: "load-content"}), nil
}

func truthy(v interface{}) bool {
	switch t := value.AsData(v).(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}
