// Package env implements the scoped Environment (spec §4.1): a
// parent-linked tree of variable bindings that mediates scope,
// reservation, redefinition, and cycle detection, grounded on the
// teacher's Session capability-handle pattern (core/decorator/session.go)
// generalized from "one execution context" to "one lexical scope".
package env

import (
	"context"
	"strings"
	"sync"

	"github.com/mlld-lang/mlld-go/internal/ast"
	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/iface"
	"github.com/mlld-lang/mlld-go/internal/security"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// reservedNames are the runtime-owned names from spec §3: INPUT,
// TIME, PROJECTPATH, DEBUG, fm, frontmatter.
var reservedNames = map[string]struct{}{
	"INPUT":       {},
	"TIME":        {},
	"PROJECTPATH": {},
	"DEBUG":       {},
	"fm":          {},
	"frontmatter": {},
}

// lowercaseAliases maps a root-only lowercase alias to its reserved
// canonical name (spec §4.1 getVariable: "maps lowercase aliases
// input/time/debug at root only").
var lowercaseAliases = map[string]string{
	"input": "INPUT",
	"time":  "TIME",
	"debug": "DEBUG",
}

// Capabilities bundles the §6 external collaborators an environment
// tree shares across every scope.
type Capabilities struct {
	Filesystem iface.Filesystem
	Path       iface.PathService
	Fetch      iface.Fetch
	Resolvers  iface.ResolverManager
	Lock       iface.LockFile
	Hooks      iface.HookManager
	Streaming  iface.StreamingManager
	URLPolicy  iface.URLPolicy
	Executor   iface.Executor
}

// StreamingOptions mirrors spec §4.1 "streaming state".
type StreamingOptions struct {
	Enabled bool
	Format  string
}

// ImportBinding records the source and location of a name introduced
// by /import (spec §4.1 importBindings).
type ImportBinding struct {
	Source   string
	Location ast.Location
}

// Environment is one node in the parent-linked scope tree (spec §3
// Environment, §4.1). Child environments shallow-clone reserved names
// and share the import/resolution stacks and capability handles with
// their parent.
type Environment struct {
	mu sync.RWMutex

	parent    *Environment
	isRoot    bool
	variables map[string]*value.Variable

	reserved map[string]struct{}

	importStack     *security.ImportStack
	resolutionStack *security.ResolutionStack
	importBindings  map[string]ImportBinding

	outputBuffer []*ast.Node

	currentFilePath string
	caps            *Capabilities
	streaming       StreamingOptions

	collectedErrors []error

	// debugVar, when non-nil, produces the lazily materialized DEBUG
	// reserved variable on first access (spec §3: "DEBUG is lazy").
	debugVar func() *value.Variable
}

// NewRoot constructs a root Environment, seeding reserved variables
// and sharing fresh cycle-detection stacks (spec §3 Lifecycle: "Reserved
// variables... are seeded at root construction; DEBUG is lazy").
func NewRoot(caps *Capabilities) *Environment {
	e := &Environment{
		isRoot:          true,
		variables:       map[string]*value.Variable{},
		reserved:        cloneReservedSet(),
		importStack:     security.NewImportStack(),
		resolutionStack: security.NewResolutionStack(),
		importBindings:  map[string]ImportBinding{},
		caps:            caps,
	}
	e.seedReserved()
	return e
}

func cloneReservedSet() map[string]struct{} {
	m := make(map[string]struct{}, len(reservedNames))
	for n := range reservedNames {
		m[n] = struct{}{}
	}
	return m
}

// CreateChild returns a new scope sharing this environment's
// capability handles and cycle stacks (spec §4.1 createChild).
func (e *Environment) CreateChild(basePath string) *Environment {
	child := &Environment{
		parent:          e,
		variables:       map[string]*value.Variable{},
		reserved:        cloneReservedSet(),
		importStack:     e.importStack,
		resolutionStack: e.resolutionStack,
		importBindings:  map[string]ImportBinding{},
		caps:            e.caps,
		streaming:       e.streaming,
		currentFilePath: e.currentFilePath,
	}
	if basePath != "" {
		child.currentFilePath = basePath
	}
	return child
}

// MergeChild copies child's bindings into e without redefinition
// checks (spec §4.1 mergeChild), used for nested data scopes (e.g. an
// object literal's per-key evaluation scope).
func (e *Environment) MergeChild(child *Environment) {
	child.mu.RLock()
	defer child.mu.RUnlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, v := range child.variables {
		e.variables[name] = v
	}
}

// IsReservedName reports whether name is a reserved runtime name.
func (e *Environment) IsReservedName(name string) bool {
	_, ok := e.reserved[name]
	return ok
}

// SetVariable implements spec §4.1 setVariable: fails with
// ReservedName, Redefinition (same-scope, distinguishing import vs.
// local conflicts), or ImportConflict (ancestor scope), else inserts.
func (e *Environment) SetVariable(name string, v *value.Variable) error {
	if e.IsReservedName(name) && !(v.Internal != nil && v.Internal.IsSystem) {
		return errors.New(errors.KindReservedName, errors.Location{}, "var", "%q is a reserved name", name)
	}

	e.mu.Lock()
	existing, exists := e.variables[name]
	if exists {
		e.mu.Unlock()
		existingImported := existing.Origin == value.OriginImport
		incomingImported := v.Origin == value.OriginImport
		if existingImported || incomingImported {
			return errors.New(errors.KindImportConflict, errors.Location{}, "import",
				"%q conflicts with an existing import binding", name)
		}
		return errors.New(errors.KindRedefinition, errors.Location{}, "var", "%q is already defined in this scope", name)
	}

	if anc := e.ancestorHas(name); anc {
		e.mu.Unlock()
		return errors.New(errors.KindImportConflict, errors.Location{}, "import",
			"%q is already defined in an enclosing scope", name)
	}

	e.variables[name] = v
	e.mu.Unlock()
	return nil
}

// SetParameterVariable implements spec §4.1 setParameterVariable:
// same-scope redefinition check only; shadows ancestor names silently.
func (e *Environment) SetParameterVariable(name string, v *value.Variable) error {
	if v.Internal == nil {
		v.Internal = &value.Internal{}
	}
	v.Internal.IsParameter = true

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.variables[name]; exists {
		return errors.New(errors.KindRedefinition, errors.Location{}, "var", "parameter %q is already bound in this scope", name)
	}
	e.variables[name] = v
	return nil
}

func (e *Environment) ancestorHas(name string) bool {
	for p := e.parent; p != nil; p = p.parent {
		p.mu.RLock()
		_, ok := p.variables[name]
		p.mu.RUnlock()
		if ok {
			return true
		}
	}
	return false
}

// GetVariable implements spec §4.1 getVariable: searches current then
// ancestors, materializing the lazy DEBUG reserved variable on first
// access, and mapping lowercase aliases at root only.
func (e *Environment) GetVariable(name string) (*value.Variable, bool) {
	root := e.Root()
	if canonical, ok := lowercaseAliases[name]; ok && e == root {
		name = canonical
	}

	for s := e; s != nil; s = s.parent {
		s.mu.RLock()
		v, ok := s.variables[name]
		s.mu.RUnlock()
		if ok {
			return v, true
		}
	}

	if name == "DEBUG" && root.debugVar != nil {
		v := root.debugVar()
		root.mu.Lock()
		root.variables["DEBUG"] = v
		root.debugVar = nil
		root.mu.Unlock()
		return v, true
	}
	return nil, false
}

// OwnVariableNames returns the names bound directly in this scope
// (not ancestors), used by `/import *` to enumerate a module's
// exports (spec §4.4.3 step 7).
func (e *Environment) OwnVariableNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.variables))
	for n := range e.variables {
		names = append(names, n)
	}
	return names
}

// Root walks to the tree's root environment.
func (e *Environment) Root() *Environment {
	r := e
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// BeginImport/EndImport delegate to the shared import stack (spec §4.1,
// §4.7). BeginImport fails with CircularImport if path is already
// present.
func (e *Environment) BeginImport(path string) error { return e.importStack.Begin(path) }
func (e *Environment) EndImport(path string)          { e.importStack.End(path) }

// BeginResolving/EndResolving delegate to the shared resolution stack,
// excluding builtin method names and reserved names (spec §4.1).
func (e *Environment) BeginResolving(name string, isBuiltin bool) error {
	if security.IsExcluded(name, isBuiltin, e.IsReservedName(name)) {
		return nil
	}
	return e.resolutionStack.Begin(name)
}

func (e *Environment) EndResolving(name string, isBuiltin bool) {
	if security.IsExcluded(name, isBuiltin, e.IsReservedName(name)) {
		return
	}
	e.resolutionStack.End(name)
}

// RecordImportBinding stores the source/location of an imported name
// (spec §4.4.3 step 7).
func (e *Environment) RecordImportBinding(name, source string, loc ast.Location) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.importBindings[name] = ImportBinding{Source: source, Location: loc}
}

// AppendOutput appends a node to the output buffer (spec §3 "global
// output buffer grows append-only during evaluation").
func (e *Environment) AppendOutput(n *ast.Node) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outputBuffer = append(e.outputBuffer, n)
}

// OutputBuffer returns the accumulated output nodes.
func (e *Environment) OutputBuffer() []*ast.Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*ast.Node(nil), e.outputBuffer...)
}

// RecordError buffers a recoverable error for end-of-document
// reporting (spec §7 propagation policy).
func (e *Environment) RecordError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.collectedErrors = append(e.collectedErrors, err)
}

// CollectedErrors returns buffered recoverable errors.
func (e *Environment) CollectedErrors() []error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]error(nil), e.collectedErrors...)
}

// CurrentFilePath returns the file path this scope was seeded with
// (spec §4.4.3 step 6: child environments are "seeded with
// currentFilePath = resolvedPath").
func (e *Environment) CurrentFilePath() string { return e.currentFilePath }

// SetCurrentFilePath sets it (used by the root before the first import).
func (e *Environment) SetCurrentFilePath(p string) { e.currentFilePath = p }

// Caps exposes the shared capability handles.
func (e *Environment) Caps() *Capabilities { return e.caps }

// SetStreaming configures this tree's streaming state.
func (e *Environment) SetStreaming(opts StreamingOptions) { e.streaming = opts }
func (e *Environment) Streaming() StreamingOptions         { return e.streaming }

// ReadFile delegates to the Filesystem collaborator (spec §4.1
// readFile).
func (e *Environment) ReadFile(path string) ([]byte, error) {
	return e.caps.Filesystem.ReadFile(path)
}

// ResolvePath delegates to PathService (spec §4.1 resolvePath),
// detecting URLs by protocol check first (spec §4.1 "URL detection
// uses protocol check").
func (e *Environment) ResolvePath(input string) (iface.MeldPath, error) {
	if security.IsURL(input) {
		return iface.MeldPath{OriginalValue: input, ValidatedPath: input, ContentType: iface.ContentURL}, nil
	}
	return e.caps.Path.ResolvePath(input, iface.PathContext{BasePath: e.currentFilePath})
}

// ResolveModule delegates to the ResolverManager collaborator (spec
// §4.1 resolveModule).
func (e *Environment) ResolveModule(ctx context.Context, reference string) (iface.ResolverContent, error) {
	return e.caps.Resolvers.Resolve(ctx, reference, iface.ResolveOptions{BasePath: e.currentFilePath})
}

// ExecuteCommand delegates to the Executor collaborator, attaching
// this scope's current file path as the working directory default
// (spec §4.1 executeCommand). Adapter errors already carry a typed
// Kind (CommandNonZeroExit/CommandTimeout/ForbiddenShellOperator); any
// other error is wrapped with directive-level context per spec §7.
func (e *Environment) ExecuteCommand(ctx context.Context, cmd string, opts iface.CommandOptions, loc iface.OpLocation) (iface.ExecResult, error) {
	if opts.Dir == "" {
		opts.Dir = e.currentFilePath
	}
	res, err := e.caps.Executor.ExecuteCommand(ctx, cmd, opts, loc)
	return res, attachLocation(err, loc, cmd)
}

// ExecuteCode delegates to the Executor collaborator (spec §4.1
// executeCode).
func (e *Environment) ExecuteCode(ctx context.Context, code, language string, params map[string]interface{}, opts iface.CodeOptions, loc iface.OpLocation) (iface.ExecResult, error) {
	if opts.Dir == "" {
		opts.Dir = e.currentFilePath
	}
	res, err := e.caps.Executor.ExecuteCode(ctx, code, language, params, opts, loc)
	return res, attachLocation(err, loc, language)
}

// attachLocation leaves already-typed errors alone (the adapter
// already set their Kind/Location) and wraps anything else so the
// enclosing directive's context is never lost (spec §7 propagation
// policy).
func attachLocation(err error, loc iface.OpLocation, identifier string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(errors.Typed); ok {
		return err
	}
	return errors.Wrap(errors.KindCodeException, err,
		errors.Location{File: loc.File, Line: loc.Line, Column: loc.Column}, loc.Directive, identifier,
		"execution failed")
}

// isObjectStdin reports whether raw JSON-parses to a plain object.
func isObjectStdin(stdin string) (map[string]interface{}, bool) {
	trimmed := strings.TrimSpace(stdin)
	if trimmed == "" || trimmed[0] != '{' {
		return nil, false
	}
	parsed := value.ParseAndWrapJSON(trimmed)
	if parsed == nil || parsed.Type != value.KindObject {
		return nil, false
	}
	obj, ok := parsed.Data.(map[string]interface{})
	return obj, ok
}

// CreateInputValue builds the INPUT reserved value per spec §4.1: JSON
// object stdin merges with env vars (env-var precedence); non-object
// stdin becomes {content, ...env}; stdin alone (no env) preserves its
// original shape.
func CreateInputValue(stdin string, envVars map[string]string) interface{} {
	if stdin == "" {
		out := map[string]interface{}{}
		for k, v := range envVars {
			out[k] = v
		}
		return out
	}
	if obj, ok := isObjectStdin(stdin); ok {
		if len(envVars) == 0 {
			return obj
		}
		merged := map[string]interface{}{}
		for k, v := range obj {
			merged[k] = v
		}
		for k, v := range envVars {
			merged[k] = v // env-var precedence
		}
		return merged
	}
	if len(envVars) == 0 {
		if parsed := value.ParseAndWrapJSON(stdin); parsed != nil {
			return parsed.Data
		}
		return stdin
	}
	out := map[string]interface{}{"content": stdin}
	for k, v := range envVars {
		out[k] = v
	}
	return out
}
