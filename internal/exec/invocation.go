// Package exec implements spec §4.5: resolving a callable, binding
// parameters, running pre/post guards, dispatching on an
// ExecutableDefinition variant, and routing the result through the
// pipeline engine. Grounded on the teacher's invocation dispatch in
// core/decorator/decorator.go (Role-tagged dispatch) and
// runtime/executor (the actual subprocess plumbing, which here lives
// behind internal/env's Executor capability instead).
package exec

import (
	"context"
	"strings"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/iface"
	"github.com/mlld-lang/mlld-go/internal/interp"
	"github.com/mlld-lang/mlld-go/internal/security"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// DefaultGuardRetryBudget is N in spec §4.4.5's "Retry budget is
// bounded by mx.guard.try < N where N is environment-configurable
// (default 3)".
const DefaultGuardRetryBudget = 3

// BodyEvaluator is implemented by internal/eval so the invocation
// engine can evaluate argument expressions, mlld-when/mlld-for/
// mlld-foreach/mlld-exe-block executable bodies, and nested
// ExecInvocation nodes without exec importing eval (which itself
// depends on exec for run/exe directives).
type BodyEvaluator interface {
	EvaluateDataValue(ctx context.Context, node *ast.Node, e *env.Environment) (interface{}, error)
	EvaluateControlBody(ctx context.Context, lang value.Language, body interface{}, e *env.Environment) (interface{}, error)
}

// Callable is a resolved target ready for invocation: either a named
// executable's definition, or a builtin method bound to a receiver.
type Callable struct {
	Name       string
	Def        *value.ExecutableDefinition
	Builtin    *BuiltinMethod
	Receiver   interface{}
}

// Engine runs the invocation state machine described in spec §4.5:
//
//	start → resolveCallable → bindParams → runPreGuards
//	      → executeBody → buildStructuredResult → runPostGuards
//	      → pipelineEnter? → pipelineDone → return
type Engine struct {
	Evaluator BodyEvaluator
	Hooks     iface.HookManager
}

func New(evaluator BodyEvaluator, hooks iface.HookManager) *Engine {
	return &Engine{Evaluator: evaluator, Hooks: hooks}
}

// InvocationNode is the subset of an ExecInvocation AST node the
// engine reads: the callable reference, argument expressions, and any
// trailing with-clause (pipeline/format/stream/trust).
type InvocationNode struct {
	Loc          ast.Location
	TargetName   string
	ObjectRef    string // set for `@obj.method(...)` builtin dispatch
	FieldMethod  string // method name when ObjectRef is set
	Args         []*ast.Node
	With         *value.WithClause
}

// Invoke runs the full state machine for one ExecInvocation and
// returns its final structured result (after pipeline processing).
func (en *Engine) Invoke(ctx context.Context, inv InvocationNode, e *env.Environment) (*value.StructuredValue, error) {
	callable, err := en.resolveCallable(inv, e)
	if err != nil {
		return nil, err
	}

	params, childEnv, err := en.bindParams(ctx, inv, callable, e)
	if err != nil {
		return nil, err
	}

	opCtx := iface.OpContext{ExecutableName: callable.Name}
	tryCount := 0

	var result interface{}
	for {
		tryCount++
		opCtx.TryCount = tryCount
		if tryCount > DefaultGuardRetryBudget {
			return nil, errors.New(errors.KindGuardRetryExhaust, errors.Location(inv.Loc), "exe",
				"guard retry budget exhausted for %q", callable.Name)
		}

		if en.Hooks != nil {
			decision, err := en.Hooks.RunPre(inv, params, childEnv, opCtx)
			if err != nil {
				return nil, err
			}
			switch decision.Kind {
			case iface.DecisionDeny:
				return nil, errors.NewGuardDenied(errors.Location(inv.Loc), "exe", decision.Reason)
			case iface.DecisionTransform:
				if m, ok := decision.Transform.(map[string]interface{}); ok {
					params = m
				}
			case iface.DecisionRetry:
				continue
			}
		}

		result, err = en.executeBody(ctx, callable, params, childEnv, inv.Loc)
		if err != nil {
			return nil, err
		}

		sv := value.WrapExecResult(result, value.WrapOptions{SourceType: string(callable.defKind())})

		if en.Hooks != nil {
			decision, err := en.Hooks.RunPost(inv, sv, params, childEnv, opCtx)
			if err != nil {
				return nil, err
			}
			switch decision.Kind {
			case iface.DecisionDeny:
				return nil, errors.NewGuardDenied(errors.Location(inv.Loc), "exe", decision.Reason)
			case iface.DecisionTransform:
				if transformed, ok := decision.Transform.(*value.StructuredValue); ok {
					sv = transformed
				}
			case iface.DecisionRetry:
				continue
			}
		}

		if inv.With != nil && len(inv.With.Pipeline) > 0 {
			out, err := RunPipeline(ctx, inv.With.Pipeline, sv, childEnv, en.Evaluator, en.Hooks, func() (interface{}, error) {
				return en.executeBody(ctx, callable, params, childEnv, inv.Loc)
			})
			if err != nil {
				return nil, err
			}
			sv = out
		}

		return coerceFormat(sv, formatOf(inv.With)), nil
	}
}

func formatOf(w *value.WithClause) string {
	if w == nil {
		return ""
	}
	return w.Format
}

func (c *Callable) defKind() value.ExecKind {
	if c.Def != nil {
		return c.Def.Kind
	}
	return value.ExecCommand
}

// resolveCallable resolves in this order: a builtin method called on a
// variable (ObjectRef.FieldMethod), a builtin named by TargetName when
// arguments are given, then a named executable in env (falling back
// from `a.b` to base `a` with variant `b` for transformer variants). A
// FieldMethod that is not a builtin is not looked up among the fields
// of an imported object.
func (en *Engine) resolveCallable(inv InvocationNode, e *env.Environment) (*Callable, error) {
	if inv.ObjectRef != "" && inv.FieldMethod != "" {
		if bi, ok := LookupBuiltin(inv.FieldMethod); ok {
			recv, ok := e.GetVariable(inv.ObjectRef)
			if !ok {
				return nil, errors.New(errors.KindUnknownVariable, errors.Location(inv.Loc), "exe",
					"unknown variable %q", inv.ObjectRef)
			}
			return &Callable{Name: inv.FieldMethod, Builtin: bi, Receiver: recv.Value}, nil
		}
	}

	if bi, ok := LookupBuiltin(inv.TargetName); ok && inv.ObjectRef == "" && len(inv.Args) > 0 {
		return &Callable{Name: inv.TargetName, Builtin: bi}, nil
	}

	name := inv.TargetName
	if err := e.BeginResolving(name, false); err != nil {
		return nil, err
	}
	defer e.EndResolving(name, false)

	v, ok := e.GetVariable(name)
	variant := ""
	if !ok {
		if dot := lastDot(name); dot >= 0 {
			base := name[:dot]
			variant = name[dot+1:]
			v, ok = e.GetVariable(base)
			name = base
		}
	}
	if !ok || v.Internal == nil || v.Internal.ExecutableDef == nil {
		return nil, errors.New(errors.KindUnknownCommand, errors.Location(inv.Loc), "exe", "unknown executable %q", inv.TargetName)
	}
	def := v.Internal.ExecutableDef
	if variant != "" && v.Internal.TransformerVariants != nil {
		if variantImpl, ok := v.Internal.TransformerVariants[variant]; ok {
			if vd, ok := variantImpl.(*value.ExecutableDefinition); ok {
				def = vd
			}
		}
	}
	return &Callable{Name: name, Def: def}, nil
}

// bindParams evaluates each argument expression, auto-resolving
// string values that match a parameter name in the enclosing scope,
// and clones parameter bindings into a fresh child env (spec §4.5
// "Argument evaluation").
func (en *Engine) bindParams(ctx context.Context, inv InvocationNode, c *Callable, e *env.Environment) (map[string]interface{}, *env.Environment, error) {
	child := e.CreateChild(e.CurrentFilePath())
	params := map[string]interface{}{}

	paramNames := []string{}
	if c.Def != nil {
		paramNames = c.Def.ParamNames
	}

	for i, argNode := range inv.Args {
		argVal, err := en.Evaluator.EvaluateDataValue(ctx, argNode, e)
		if err != nil {
			return nil, nil, err
		}
		if s, ok := argVal.(string); ok {
			if bound, found := e.GetVariable(s); found {
				for _, pn := range paramNames {
					if pn == s {
						argVal = bound.Value
						break
					}
				}
			}
		}
		name := ""
		if i < len(paramNames) {
			name = paramNames[i]
		}
		if name == "" {
			continue
		}
		params[name] = argVal
		pv := value.NewVariable(name, value.KindPrimitive, argVal, value.Source{Directive: "exe"})
		if err := child.SetParameterVariable(name, pv); err != nil {
			return nil, nil, err
		}
	}
	return params, child, nil
}

// executeBody dispatches on the ExecutableDefinition variant (spec
// §3, §4.5 "Body execution dispatch on ExecutableDefinition variant").
func (en *Engine) executeBody(ctx context.Context, c *Callable, params map[string]interface{}, e *env.Environment, loc ast.Location) (interface{}, error) {
	if c.Builtin != nil {
		return c.Builtin.Invoke(c.Receiver, params)
	}
	def := c.Def
	if def == nil {
		return nil, errors.New(errors.KindUnknownCommand, errors.Location(loc), "exe", "no executable body for %q", c.Name)
	}

	opLoc := iface.OpLocation{File: loc.File, Line: loc.Line, Column: loc.Column, Directive: "exe"}

	switch def.Kind {
	case value.ExecCommand:
		cmd, _, err := InterpolateTemplate(ctx, def.Command.Template, e, en.Evaluator)
		if err != nil {
			return nil, err
		}
		if err := security.ClassifyCommand(cmd); err != nil {
			return nil, err
		}
		res, err := e.ExecuteCommand(ctx, cmd, iface.CommandOptions{Params: params}, opLoc)
		if err != nil {
			return nil, err
		}
		return execResultValue(res)

	case value.ExecCode:
		switch def.Code.Language {
		case value.LangMlldWhen, value.LangMlldFor, value.LangMlldForeach, value.LangMlldExeBlock:
			return en.Evaluator.EvaluateControlBody(ctx, def.Code.Language, def.Code.Template, e)
		default:
			res, err := e.ExecuteCode(ctx, def.Code.Template, string(def.Code.Language), params, iface.CodeOptions{}, opLoc)
			if err != nil {
				return nil, err
			}
			return execResultValue(res)
		}

	case value.ExecCommandRef:
		return en.Invoke(ctx, InvocationNode{
			Loc:        loc,
			TargetName: def.CommandRef.TargetName,
			Args:       nil,
			With:       def.CommandRef.WithClause,
		}, e)

	case value.ExecTemplate:
		text, _, err := InterpolateMarkdown(ctx, def.Template.Nodes, e, en.Evaluator)
		if err != nil {
			return nil, err
		}
		return text, nil

	case value.ExecSection:
		path, _, err := InterpolateDefault(ctx, def.Section.PathTemplate, e, en.Evaluator)
		if err != nil {
			return nil, err
		}
		mp, err := e.ResolvePath(path)
		if err != nil {
			return nil, err
		}
		data, err := e.ReadFile(mp.ValidatedPath)
		if err != nil {
			return nil, errors.Wrap(errors.KindPathNotFound, err, errors.Location(loc), "exe", mp.ValidatedPath, "read failed")
		}
		content := string(data)
		if len(def.Section.SectionTemplate) > 0 {
			section, _, err := InterpolateDefault(ctx, def.Section.SectionTemplate, e, en.Evaluator)
			if err != nil {
				return nil, err
			}
			extracted, ok := interp.ExtractSection(content, section, interp.DefaultSectionMatchThreshold)
			if !ok {
				return nil, errors.New(errors.KindSectionNotFound, errors.Location(loc), "exe", "no section matching %q", section)
			}
			content = extracted
		}
		if len(def.Section.RenameTemplate) > 0 {
			rename, _, err := InterpolateDefault(ctx, def.Section.RenameTemplate, e, en.Evaluator)
			if err != nil {
				return nil, err
			}
			content = renameHeading(content, rename)
		}
		return content, nil

	case value.ExecResolver:
		var payload interface{}
		if len(def.Resolver.PayloadTemplate) > 0 {
			rendered, _, err := InterpolateDefault(ctx, def.Resolver.PayloadTemplate, e, en.Evaluator)
			if err != nil {
				return nil, err
			}
			payload = rendered
		}
		res, err := e.Caps().Resolvers.Resolve(ctx, def.Resolver.ResolverPath, iface.ResolveOptions{BasePath: e.CurrentFilePath(), Payload: payload})
		if err != nil {
			return nil, err
		}
		if parsed := value.ParseAndWrapJSON(res.Content); parsed != nil {
			return parsed, nil
		}
		return res.Content, nil

	case value.ExecData:
		node, ok := def.Data.ASTTemplate.(*ast.Node)
		if !ok {
			return nil, errors.New(errors.KindTypeMismatch, errors.Location(loc), "exe", "data executable has no AST template")
		}
		return en.Evaluator.EvaluateDataValue(ctx, node, e)

	case value.ExecPipeline:
		return nil, errors.New(errors.KindUnknownCommand, errors.Location(loc), "exe", "pipeline executables are invoked through their source, not directly")

	default:
		return nil, errors.New(errors.KindUnknownCommand, errors.Location(loc), "exe", "unsupported executable kind %q", def.Kind)
	}
}

// renameHeading replaces a Markdown section's own heading text (its
// first line) with newName, preserving the heading level, for
// section{}'s optional renameTemplate (spec §3 "section{... ,
// renameTemplate? }").
func renameHeading(content, newName string) string {
	lines := strings.SplitN(content, "\n", 2)
	trimmed := strings.TrimLeft(lines[0], " ")
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 {
		return content
	}
	renamed := trimmed[:level] + " " + newName
	if len(lines) > 1 {
		return renamed + "\n" + lines[1]
	}
	return renamed
}

func execResultValue(res iface.ExecResult) (interface{}, error) {
	if parsed := value.ParseAndWrapJSON(res.Stdout); parsed != nil {
		return parsed, nil
	}
	return res.Stdout, nil
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func coerceFormat(sv *value.StructuredValue, format string) *value.StructuredValue {
	switch format {
	case "text":
		return &value.StructuredValue{Type: value.KindText, Text: sv.Text, Data: sv.Text, Ctx: sv.Ctx, Metadata: sv.Metadata}
	case "json", "array":
		return sv
	default:
		return sv
	}
}
