package eval

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

func sectionNotFound(n *ast.Node, section string) error {
	return errors.New(errors.KindSectionNotFound, loc(n), "import", "no section matching %q", section)
}

// extractSection finds the Markdown heading that best fuzzy-matches
// name (spec §4.4.3 step 5), delegating to interp.ExtractSection so
// import's section extraction and the exec engine's section{}
// executable dispatch share one matching rule.
func extractSection(content, name string) (string, bool) {
	return interp.ExtractSection(content, name, interp.DefaultSectionMatchThreshold)
}

// Parser is the minimal external-parser contract import needs (spec
// §6 Parser: "takes a source string and returns an ordered sequence
// of AST nodes").
type Parser interface {
	Parse(source string) ([]*ast.Node, error)
}

// ImportDeps bundles the collaborators import needs beyond what
// env.Environment already exposes: the parser and the optional
// approval gate guarding URL-sourced content (spec §4.4.3, §4.7).
type ImportDeps struct {
	Parser  Parser
	Approve *security.ApprovalGate
	Policy  iface.URLPolicy
}

// importDeps is package-level so evalImport doesn't need every caller
// to thread it through; the CLI composition root sets it once at
// startup via SetImportDeps.
var importDeps *ImportDeps

// SetImportDeps wires the parser and approval/URL-policy collaborators
// the import evaluator needs.
func SetImportDeps(d *ImportDeps) { importDeps = d }

// isRegistryReference reports whether pathExpr names a registry module
// (e.g. "@user/module", "@user/module@v1.2.3") rather than a local
// path or URL (spec §4.4.3 step 1: "resolveModule for registry
// references"). Registry references share the leading-"@" syntax the
// ResolverManager's registered resolvers key off (spec §6).
func isRegistryReference(pathExpr string) bool {
	return strings.HasPrefix(pathExpr, "@")
}

// evalImport implements spec §4.4.3's eight-step import algorithm.
func (ev *Evaluator) evalImport(ctx context.Context, n *ast.Node, e *env.Environment) (EvalResult, error) {
	if importDeps == nil || importDeps.Parser == nil {
		return EvalResult{}, errors.New(errors.KindMissingValue, loc(n), "import", "import requires a configured parser")
	}

	pathExpr := n.StringField("path")

	var content, validatedPath string
	if isRegistryReference(pathExpr) {
		res, err := e.ResolveModule(ctx, pathExpr)
		if err != nil {
			return EvalResult{}, err
		}
		content = res.Content
		validatedPath = pathExpr
	} else {
		mp, err := e.ResolvePath(pathExpr)
		if err != nil {
			return EvalResult{}, err
		}
		validatedPath = mp.ValidatedPath

		if mp.ContentType == iface.ContentURL {
			if err := security.ValidateURL(mp.ValidatedPath, importDeps.Policy); err != nil {
				return EvalResult{}, err
			}
			rewritten := security.RewriteGistURL(mp.ValidatedPath, importDeps.Policy)
			res, err := e.Caps().Fetch.FetchURL(ctx, rewritten, iface.FetchOptions{})
			if err != nil {
				return EvalResult{}, errors.Wrap(errors.KindFetchTimeout, err, loc(n), "import", rewritten, "fetch failed")
			}
			content = res.Content
			if importDeps.Approve != nil {
				if err := importDeps.Approve.Check(rewritten, content); err != nil {
					return EvalResult{}, err
				}
			}
		} else {
			data, err := e.ReadFile(mp.ValidatedPath)
			if err != nil {
				return EvalResult{}, errors.Wrap(errors.KindPathNotFound, err, loc(n), "import", mp.ValidatedPath, "read failed")
			}
			content = string(data)
		}
	}

	if err := e.BeginImport(validatedPath); err != nil {
		return EvalResult{}, err
	}
	defer e.EndImport(validatedPath)

	if section := n.StringField("section"); section != "" {
		extracted, ok := extractSection(content, section)
		if !ok {
			return EvalResult{}, sectionNotFound(n, section)
		}
		content = extracted
	}

	nodes, err := importDeps.Parser.Parse(content)
	if err != nil {
		return EvalResult{}, err
	}

	child := e.CreateChild(validatedPath)
	if _, err := ev.EvaluateDocument(ctx, nodes, child); err != nil {
		return EvalResult{}, err
	}

	if err := selectImportBindings(n, e, child, validatedPath, n.Loc); err != nil {
		return EvalResult{}, err
	}

	return EvalResult{Env: e}, nil
}

// selectImportBindings implements spec §4.4.3 step 7: `*` copies all
// user variables; named/aliased copies a subset, remapping names; each
// imported variable is cloned with origin=IMPORT and its import
// location attached.
func selectImportBindings(n *ast.Node, parent, child *env.Environment, source string, loc ast.Location) error {
	names := n.NodesField("imports")
	wildcard := len(names) == 0 && n.StringField("importsAll") == "*"

	bind := func(localName string, v *value.Variable) error {
		cloned := v.Clone()
		cloned.Origin = value.OriginImport
		cloned.ImportLocation = &value.ImportLocation{Path: source, Line: loc.Line, Col: loc.Column}
		if err := parent.SetVariable(localName, cloned); err != nil {
			return err
		}
		parent.RecordImportBinding(localName, source, loc)
		return nil
	}

	if wildcard {
		for _, name := range child.OwnVariableNames() {
			if child.IsReservedName(name) {
				continue
			}
			v, _ := child.GetVariable(name)
			if err := bind(name, v); err != nil {
				return err
			}
		}
		return nil
	}

	for _, spec := range names {
		remote := spec.StringField("name")
		local := spec.StringField("alias")
		if local == "" {
			local = remote
		}
		v, ok := child.GetVariable(remote)
		if !ok {
			return errors.New(errors.KindUnknownVariable, errors.Location{File: loc.File, Line: loc.Line, Column: loc.Column},
				"import", "imported module has no export %q", remote)
		}
		if err := bind(local, v); err != nil {
			return err
		}
	}
	return nil
}
