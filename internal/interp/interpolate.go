// Package interp implements spec §4.3: evaluating AST value nodes,
// template interpolation (`{{var}}`/`@var`), and structured-value
// field/index access.
package interp

import (
	"context"
	"strconv"
	"strings"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// Context selects the escaping strategy interpolate applies to each
// resolved value (spec §4.3 interpolate).
type Context string

const (
	ContextDefault      Context = "default"
	ContextShellCommand Context = "shell"
	ContextMarkdown     Context = "markdown"
)

// Options controls interpolate's extra behavior.
type Options struct {
	CollectSecurityDescriptor bool
}

// Evaluator is implemented by internal/eval to break the import cycle
// between "evaluate an expression node" (needed here for
// ExecInvocation/WhenExpression sub-nodes) and "evaluate a directive"
// (which itself interpolates templates). Interp calls back into it for
// node kinds it does not itself understand.
type Evaluator interface {
	EvaluateDataValue(ctx context.Context, node *ast.Node, e *env.Environment) (interface{}, error)
}

// Interpolate implements spec §4.3 interpolate(nodes, env, context,
// opts): concatenates Text node contents and resolved variable
// references, escaping per context, and optionally accumulates the
// union of every resolved value's SecurityDescriptor.
func Interpolate(ctx context.Context, nodes []*ast.Node, e *env.Environment, ectx Context, opts Options, evalr Evaluator) (string, *value.SecurityDescriptor, error) {
	var b strings.Builder
	descriptors := []*value.SecurityDescriptor{}

	for _, n := range nodes {
		switch n.NodeKind {
		case ast.KindText:
			b.WriteString(n.Text())
		case ast.KindNewline:
			b.WriteString("\n")
		case ast.KindVariableRef:
			resolved, err := resolveVariableRefText(ctx, n, e, evalr)
			if err != nil {
				return "", nil, err
			}
			if opts.CollectSecurityDescriptor {
				descriptors = append(descriptors, value.ExtractSecurityDescriptor(resolved.raw, value.ExtractOptions{}))
			}
			b.WriteString(Escape(resolved.text, ectx))
		default:
			v, err := evalr.EvaluateDataValue(ctx, n, e)
			if err != nil {
				return "", nil, err
			}
			if opts.CollectSecurityDescriptor {
				descriptors = append(descriptors, value.ExtractSecurityDescriptor(v, value.ExtractOptions{}))
			}
			b.WriteString(Escape(value.AsText(v), ectx))
		}
	}

	var merged *value.SecurityDescriptor
	if opts.CollectSecurityDescriptor {
		merged = value.MergeSecurityDescriptors(descriptors...)
	}
	return b.String(), merged, nil
}

type resolvedRef struct {
	text string
	raw  interface{}
}

func resolveVariableRefText(ctx context.Context, n *ast.Node, e *env.Environment, evalr Evaluator) (resolvedRef, error) {
	name := n.StringField("name")
	v, ok := e.GetVariable(name)
	if !ok {
		// Field/index chains on a missing base resolve to empty text
		// per the "undefined field chain short-circuits" rule (spec
		// §4.3); the evaluator layer raises UnknownVariable at the
		// point a bare reference (not a chain) is required.
		return resolvedRef{text: "", raw: nil}, nil
	}
	raw := interface{}(v.Value)
	if fields := n.NodesField("fields"); len(fields) > 0 {
		var err error
		raw, err = AccessFieldChain(ctx, raw, fields, e, evalr)
		if err != nil {
			return resolvedRef{}, err
		}
	}
	return resolvedRef{text: value.AsText(raw), raw: raw}, nil
}

// Escape applies the context-appropriate escaping rule (spec §4.3
// Context: Default, ShellCommand, Markdown).
func Escape(s string, ctx Context) string {
	switch ctx {
	case ContextShellCommand:
		return shellQuoteIfNeeded(s)
	case ContextMarkdown:
		return s // markdown content passes through; callers needing
		// literal-preservation rely on the parser's own escaping.
	default:
		return s
	}
}

// shellQuoteIfNeeded quotes a value per its shell classification (spec
// §4.3 "quote according to shell classification"): values containing
// shell metacharacters or whitespace are single-quoted with embedded
// single quotes escaped; simple tokens pass through unquoted.
func shellQuoteIfNeeded(s string) string {
	if s == "" {
		return "''"
	}
	if !needsShellQuoting(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsShellQuoting(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			continue
		case strings.ContainsRune("_-./,:@%+=", r):
			continue
		default:
			return true
		}
	}
	return false
}

// FormatNumber renders a number the same way across text projections
// (used by canonical-JSON paths and interpolation alike) so `3` and
// `3.0` don't diverge depending on call site.
func FormatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
