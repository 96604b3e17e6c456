package eval

import (
	"context"
	"strings"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/exec"
	"github.com/mlld-lang/mlld-go/internal/interp"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// Evaluator ties internal/interp's template interpolation, internal/exec's
// invocation engine, and the directive evaluators in this package
// together. It satisfies both interp.Evaluator and exec.BodyEvaluator
// so those packages never need to import eval directly.
type Evaluator struct {
	Engine *exec.Engine
	Guards *GuardManager
}

// New constructs an Evaluator with its own invocation engine wired
// back to itself, plus a GuardManager that routes the engine's
// pre/post hook calls to whatever /guard directives the document
// registers as it evaluates (spec §4.4.5, §4.5).
func New() *Evaluator {
	ev := &Evaluator{}
	ev.Guards = NewGuardManager(ev)
	ev.Engine = exec.New(ev, ev.Guards)
	return ev
}

// EvaluateDocument walks an ordered sequence of top-level nodes,
// evaluating each Directive and concatenating Text/Newline content
// and directive output in source order (spec §6 Document output). ctx
// carries the run's cancellation signal down through every command/
// code execution it triggers.
func (ev *Evaluator) EvaluateDocument(ctx context.Context, nodes []*ast.Node, root *env.Environment) (string, error) {
	var b strings.Builder
	cur := root
	for _, n := range nodes {
		switch n.NodeKind {
		case ast.KindText:
			b.WriteString(n.Text())
		case ast.KindNewline:
			b.WriteString("\n")
		case ast.KindDirective:
			res, err := ev.EvaluateDirective(ctx, n, cur)
			if err != nil {
				if isRecoverable(err) {
					cur.RecordError(err)
					continue
				}
				return b.String(), err
			}
			cur = res.Env
			if res.Stdout != "" {
				b.WriteString(res.Stdout)
			}
		default:
			v, err := ev.EvaluateDataValue(ctx, n, cur)
			if err != nil {
				return b.String(), err
			}
			b.WriteString(value.AsText(v))
		}
	}
	return b.String(), nil
}

func isRecoverable(err error) bool {
	if ee, ok := err.(*errors.EvalError); ok {
		return ee.Recoverable
	}
	return false
}

// EvaluateDirective dispatches a Directive node to its evaluator (spec
// §4.4: each evaluator returns EvalResult and may append to
// env.outputBuffer).
func (ev *Evaluator) EvaluateDirective(ctx context.Context, n *ast.Node, e *env.Environment) (EvalResult, error) {
	switch n.DirectiveKind() {
	case "var":
		return ev.evalVar(ctx, n, e)
	case "show":
		return ev.evalShow(ctx, n, e)
	case "import":
		return ev.evalImport(ctx, n, e)
	case "run":
		return ev.evalRun(ctx, n, e)
	case "exe":
		return ev.evalExe(ctx, n, e)
	case "when":
		return ev.evalWhen(ctx, n, e)
	case "for":
		return ev.evalFor(ctx, n, e)
	case "guard":
		return ev.evalGuard(ctx, n, e)
	default:
		return EvalResult{}, errors.New(errors.KindTypeMismatch, errors.Location{File: n.Loc.File, Line: n.Loc.Line, Column: n.Loc.Column},
			n.DirectiveKind(), "unknown directive kind %q", n.DirectiveKind())
	}
}

// EvaluateDataValue implements spec §4.3 evaluateDataValue and serves
// as both interp.Evaluator and exec.BodyEvaluator's callback: it
// recursively evaluates object/array literals, foreach, ExecInvocation,
// VariableReference, load-content, and WhenExpression subexpressions.
func (ev *Evaluator) EvaluateDataValue(ctx context.Context, n *ast.Node, e *env.Environment) (interface{}, error) {
	if n == nil {
		return nil, nil
	}
	switch n.NodeKind {
	case ast.KindText:
		return n.Text(), nil

	case ast.KindVariableRef:
		name := n.StringField("name")
		v, ok := e.GetVariable(name)
		if !ok {
			return nil, errors.New(errors.KindUnknownVariable, loc(n), "", "unknown variable %q", name)
		}
		raw := v.Value
		if fields := n.NodesField("fields"); len(fields) > 0 {
			return interp.AccessFieldChain(ctx, raw, fields, e, ev)
		}
		return raw, nil

	case ast.KindObject:
		out := map[string]interface{}{}
		for key, valNode := range n.Values() {
			v, err := ev.EvaluateDataValue(ctx, valNode, e)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil

	case ast.KindArray:
		items := n.NodesField("items")
		out := make([]interface{}, len(items))
		for i, item := range items {
			v, err := ev.EvaluateDataValue(ctx, item, e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case ast.KindForeach:
		return ev.evalForeachExpr(ctx, n, e)

	case ast.KindExecInvocation:
		inv, err := buildInvocationNode(ctx, n, ev, e)
		if err != nil {
			return nil, err
		}
		return ev.Engine.Invoke(ctx, inv, e)

	case ast.KindWhenExpression:
		return ev.evalWhenExpr(ctx, n, e)

	case ast.KindLoadContent:
		return ev.evalLoadContent(ctx, n, e)

	case ast.KindCommand, ast.KindCode:
		return nil, errors.New(errors.KindTypeMismatch, loc(n), "", "command/code nodes must be evaluated through run/exe, not evaluateDataValue")

	default:
		return n.StringField("value"), nil
	}
}

// EvaluateControlBody implements the mlld-when/mlld-for/mlld-foreach/
// mlld-exe-block dispatch spec §4.6 assigns to the code adapters: the
// body AST is re-entered through the matching control-flow evaluator
// in a fresh child scope.
func (ev *Evaluator) EvaluateControlBody(ctx context.Context, lang value.Language, body interface{}, e *env.Environment) (interface{}, error) {
	n, ok := body.(*ast.Node)
	if !ok {
		return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "exe", "control body is not an AST node")
	}
	child := e.CreateChild(e.CurrentFilePath())
	switch lang {
	case value.LangMlldWhen:
		return ev.evalWhenExpr(ctx, n, child)
	case value.LangMlldFor, value.LangMlldForeach:
		return ev.evalForeachExpr(ctx, n, child)
	case value.LangMlldExeBlock:
		res, err := ev.EvaluateDirective(ctx, n, child)
		return res.Value, err
	default:
		return nil, errors.New(errors.KindTypeMismatch, errors.Location{}, "exe", "unsupported control body language %q", lang)
	}
}

func loc(n *ast.Node) errors.Location {
	if n == nil {
		return errors.Location{}
	}
	return errors.Location{File: n.Loc.File, Line: n.Loc.Line, Column: n.Loc.Column}
}
