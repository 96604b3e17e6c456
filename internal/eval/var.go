package eval

import (
	"context"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/exec"
	"github.com/mlld-lang/mlld-go/internal/interp"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// evalVar implements spec §4.4.1: determine the RHS variant, evaluate
// it, wrap as a Variable, and call env.setVariable. Of the with-clause
// options only `tools:` is handled (validated); pipeline, trust and
// stdin options are not applied, and only template RHS values collect
// a security descriptor.
func (ev *Evaluator) evalVar(ctx context.Context, n *ast.Node, e *env.Environment) (EvalResult, error) {
	name := n.StringField("name")
	rhsNode, ok := n.Field("rhs")
	rhs, _ := rhsNode.(*ast.Node)
	if !ok || rhs == nil {
		return EvalResult{}, errors.New(errors.KindMissingValue, loc(n), "var", "%q has no right-hand side", name)
	}

	if raw, ok := n.Field("tools"); ok {
		if specs, ok := raw.([]value.ToolSpec); ok {
			if err := value.ValidateToolsCollection(specs); err != nil {
				return EvalResult{}, errors.Wrap(errors.KindInvalidToolSpec, err, loc(n), "var", name, "invalid tools collection")
			}
		}
	}

	variable, err := ev.evalVarRHS(ctx, name, rhs, n, e)
	if err != nil {
		return EvalResult{}, err
	}

	if err := e.SetVariable(name, variable); err != nil {
		return EvalResult{}, err
	}
	return EvalResult{Value: variable.Value, Env: e}, nil
}

func (ev *Evaluator) evalVarRHS(ctx context.Context, name string, rhs, directive *ast.Node, e *env.Environment) (*value.Variable, error) {
	src := value.Source{Directive: "var"}
	var (
		val  interface{}
		kind = value.KindPrimitive
		sourceFn func() (interface{}, error)
	)

	switch rhs.NodeKind {
	case ast.KindText:
		val = rhs.Text()
		kind = value.KindSimpleText
		if rhs.Meta()["interpolated"] == true {
			text, _, err := interp.Interpolate(ctx, rhs.NodesField("nodes"), e, interp.ContextDefault, interp.Options{}, ev)
			if err != nil {
				return nil, err
			}
			val = text
			kind = value.KindInterpolated
			src.Interpolated = true
		}

	case ast.KindTemplateCore:
		text, descr, err := interp.Interpolate(ctx, rhs.NodesField("nodes"), e, interp.ContextDefault, interp.Options{CollectSecurityDescriptor: true}, ev)
		if err != nil {
			return nil, err
		}
		val = text
		kind = value.KindTemplate
		src.Interpolated = true
		src.MultiLine = rhs.Meta()["multiline"] == true
		v := value.NewVariable(name, kind, val, src)
		v.Ctx = descr
		return v, nil

	case ast.KindObject:
		v, err := ev.EvaluateDataValue(ctx, rhs, e)
		if err != nil {
			return nil, err
		}
		val, kind = v, value.KindObjectVar

	case ast.KindArray:
		v, err := ev.EvaluateDataValue(ctx, rhs, e)
		if err != nil {
			return nil, err
		}
		val, kind = v, value.KindArrayVar

	case ast.KindCommand:
		template := make([]interface{}, 0)
		for _, nd := range rhs.NodesField("template") {
			template = append(template, nd)
		}
		res, err := ev.runCommandRHS(ctx, template, e, directive.Loc)
		if err != nil {
			return nil, err
		}
		val = res
		kind = value.KindCommandResult
		sourceFn = func() (interface{}, error) { return ev.runCommandRHS(ctx, template, e, directive.Loc) }

	case ast.KindCode:
		res, err := ev.runCodeRHS(ctx, rhs, e, directive.Loc)
		if err != nil {
			return nil, err
		}
		val = res
		kind = value.KindCommandResult
		sourceFn = func() (interface{}, error) { return ev.runCodeRHS(ctx, rhs, e, directive.Loc) }

	case ast.KindVariableRef:
		refName := rhs.StringField("name")
		bound, ok := e.GetVariable(refName)
		if !ok {
			return nil, errors.New(errors.KindUnknownVariable, loc(rhs), "var", "unknown variable %q", refName)
		}
		val = bound.Value
		kind = bound.Type

	case ast.KindNewExpression:
		v, err := ev.EvaluateDataValue(ctx, rhs, e)
		if err != nil {
			return nil, err
		}
		val = v

	case ast.KindExecInvocation:
		inv, err := buildInvocationNode(ctx, rhs, ev, e)
		if err != nil {
			return nil, err
		}
		sv, err := ev.Engine.Invoke(ctx, inv, e)
		if err != nil {
			return nil, err
		}
		val = sv
		kind = value.KindStructured

	case ast.KindLoadContent:
		v, err := ev.evalLoadContent(ctx, rhs, e)
		if err != nil {
			return nil, err
		}
		val = v
		kind = value.KindStructured

	default:
		v, err := ev.EvaluateDataValue(ctx, rhs, e)
		if err != nil {
			return nil, err
		}
		val = v
	}

	v := value.NewVariable(name, kind, val, src)
	if sourceFn != nil {
		v.Internal = &value.Internal{IsRetryable: true, SourceFunction: sourceFn}
	}
	return v, nil
}

func (ev *Evaluator) runCommandRHS(ctx context.Context, template []interface{}, e *env.Environment, loc ast.Location) (interface{}, error) {
	cmd, _, err := exec.InterpolateTemplate(ctx, template, e, ev)
	if err != nil {
		return nil, err
	}
	return runShell(ctx, cmd, e, loc, "var")
}

func (ev *Evaluator) runCodeRHS(ctx context.Context, rhs *ast.Node, e *env.Environment, loc ast.Location) (interface{}, error) {
	code := rhs.StringField("code")
	lang := rhs.StringField("language")
	return runCode(ctx, code, lang, nil, e, loc, "var")
}
