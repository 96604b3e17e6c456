package eval

import (
	"context"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/iface"
	"github.com/mlld-lang/mlld-go/internal/security"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// runShell validates cmd via the command classifier, then executes it
// through the environment's Executor collaborator (spec §4.4.4 "Both
// share command/code classification and must validate the command via
// the shell classifier before invocation").
func runShell(ctx context.Context, cmd string, e *env.Environment, loc ast.Location, directive string) (interface{}, error) {
	if err := security.ClassifyCommand(cmd); err != nil {
		return nil, err
	}
	res, err := e.ExecuteCommand(ctx, cmd, iface.CommandOptions{}, iface.OpLocation{
		File: loc.File, Line: loc.Line, Column: loc.Column, Directive: directive,
	})
	if err != nil {
		return nil, err
	}
	if parsed := value.ParseAndWrapJSON(res.Stdout); parsed != nil {
		return parsed, nil
	}
	return res.Stdout, nil
}

func runCode(ctx context.Context, code, lang string, params map[string]interface{}, e *env.Environment, loc ast.Location, directive string) (interface{}, error) {
	res, err := e.ExecuteCode(ctx, code, lang, params, iface.CodeOptions{}, iface.OpLocation{
		File: loc.File, Line: loc.Line, Column: loc.Column, Directive: directive,
	})
	if err != nil {
		return nil, err
	}
	if parsed := value.ParseAndWrapJSON(res.Stdout); parsed != nil {
		return parsed, nil
	}
	return res.Stdout, nil
}

// evalRun implements spec §4.4.4 run: execute a command or code
// inline and either store stdout into a destination variable or
// append it to the document.
func (ev *Evaluator) evalRun(ctx context.Context, n *ast.Node, e *env.Environment) (EvalResult, error) {
	bodyNode, ok := n.Field("body")
	body, _ := bodyNode.(*ast.Node)
	if !ok || body == nil {
		return EvalResult{}, errors.New(errors.KindMissingValue, loc(n), "run", "run has no command/code body")
	}

	var (
		result interface{}
		err    error
	)
	switch body.NodeKind {
	case ast.KindCommand:
		template := make([]interface{}, 0)
		for _, nd := range body.NodesField("template") {
			template = append(template, nd)
		}
		result, err = ev.runCommandRHS(ctx, template, e, n.Loc)
	case ast.KindCode:
		result, err = runCode(ctx, body.StringField("code"), body.StringField("language"), nil, e, n.Loc, "run")
	default:
		return EvalResult{}, errors.New(errors.KindTypeMismatch, loc(n), "run", "run body must be command or code")
	}

	if err != nil {
		if ce, ok := err.(*errors.CommandNonZeroExit); ok && n.Meta()["errorBehavior"] == "continue" {
			e.RecordError(ce.WithRecoverable(true))
			return EvalResult{Env: e, Stdout: ce.Stdout, Stderr: ce.Stderr, ExitCode: ce.ExitCode, HasExit: true}, nil
		}
		return EvalResult{}, err
	}

	text := value.AsText(result)
	if dest := n.StringField("destination"); dest != "" {
		v := value.NewVariable(dest, value.KindCommandResult, result, value.Source{Directive: "run"})
		if err := e.SetVariable(dest, v); err != nil {
			return EvalResult{}, err
		}
		return EvalResult{Value: result, Env: e}, nil
	}

	if text != "" && text[len(text)-1] != '\n' {
		text += "\n"
	}
	return EvalResult{Value: result, Env: e, Stdout: text}, nil
}

// evalExe implements spec §4.4.4 exe: define an ExecutableVariable
// with the appropriate ExecutableDefinition, without running it.
func (ev *Evaluator) evalExe(ctx context.Context, n *ast.Node, e *env.Environment) (EvalResult, error) {
	name := n.StringField("name")
	bodyNode, ok := n.Field("body")
	body, _ := bodyNode.(*ast.Node)
	if !ok || body == nil {
		return EvalResult{}, errors.New(errors.KindMissingValue, loc(n), "exe", "%q has no body", name)
	}

	paramNames := []string{}
	for _, p := range n.NodesField("params") {
		paramNames = append(paramNames, p.StringField("name"))
	}

	var with *value.WithClause
	if w, ok := n.Field("with"); ok {
		if wc, ok := w.(*value.WithClause); ok {
			with = wc
		}
	}

	var def *value.ExecutableDefinition
	switch body.NodeKind {
	case ast.KindCommand:
		template := make([]interface{}, 0)
		for _, nd := range body.NodesField("template") {
			template = append(template, nd)
		}
		def = value.NewCommandExecutable(template, with)

	case ast.KindCode:
		def = value.NewCodeExecutable(value.Language(body.StringField("language")), body.StringField("code"), with)

	case ast.KindTemplateCore:
		nodes := make([]interface{}, 0)
		for _, nd := range body.NodesField("nodes") {
			nodes = append(nodes, nd)
		}
		def = value.NewTemplateExecutable(nodes, with)

	case ast.KindSection:
		def = value.NewSectionExecutable(
			nodesToInterfaces(body.NodesField("path")),
			nodesToInterfaces(body.NodesField("section")),
			nodesToInterfaces(body.NodesField("rename")),
		)

	case ast.KindResolver:
		def = value.NewResolverExecutable(
			body.StringField("resolverPath"),
			nodesToInterfaces(body.NodesField("payload")),
		)

	case ast.KindData:
		astNode, _ := body.Field("value")
		def = value.NewDataExecutable(astNode)

	default:
		return EvalResult{}, errors.New(errors.KindTypeMismatch, loc(n), "exe", "unsupported exe body kind %q", body.NodeKind)
	}
	def.ParamNames = paramNames
	def.SourceDirective = "exe"

	v := value.NewVariable(name, value.KindExecutable, nil, value.Source{Directive: "exe"})
	v.Internal = &value.Internal{ExecutableDef: def}
	if err := e.SetVariable(name, v); err != nil {
		return EvalResult{}, err
	}
	return EvalResult{Env: e}, nil
}

func nodesToInterfaces(nodes []*ast.Node) []interface{} {
	out := make([]interface{}, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}
