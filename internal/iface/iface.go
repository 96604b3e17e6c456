// Package iface defines the external-collaborator interfaces spec §6
// names: Filesystem, PathService, Fetch/URLCache, ResolverManager,
// LockFile/ModuleCache, HookManager (guard Decision), and
// StreamingManager. The evaluation engine in internal/env, internal/eval,
// and internal/exec programs only against these interfaces, per the
// "duck-typed objects with method names" guidance in spec §9: replace
// with interface abstractions per capability.
package iface

import "context"

// Filesystem is the §6 Filesystem collaborator.
type Filesystem interface {
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Dirname(path string) string
	Join(parts ...string) string
	Normalize(path string) string
}

// ContentType distinguishes a resolved path's backing store.
type ContentType string

const (
	ContentFile ContentType = "file"
	ContentURL  ContentType = "url"
)

// MeldPath is the §6 PathService.resolvePath result shape.
type MeldPath struct {
	OriginalValue  string
	ValidatedPath  string
	ContentType    ContentType
}

// PathContext carries resolution hints (base directory, whether a URL
// is permitted here) into PathService.resolvePath.
type PathContext struct {
	BasePath  string
	AllowURL  bool
}

// PathService is the §6 PathService collaborator.
type PathService interface {
	ResolvePath(input string, ctx PathContext) (MeldPath, error)
	ValidateURL(raw string, opts URLPolicy) error
}

// URLPolicy is the §4.7/§6 URL policy: allowed/blocked domains,
// required HTTPS, maximum response size, cache rules, Gist rewrite.
type URLPolicy struct {
	AllowedDomains []string
	BlockedDomains []string
	RequireHTTPS   bool
	MaxBytes       int64
	Timeout        int64 // milliseconds
	BypassCache    bool
	RewriteGists   bool
}

// FetchResult is the §6 Fetch/URLCache.fetchURL result shape.
type FetchResult struct {
	Content string
	Headers map[string]string
}

// FetchOptions controls a single fetch call.
type FetchOptions struct {
	BypassCache bool
}

// Fetch is the §6 Fetch/URLCache collaborator.
type Fetch interface {
	FetchURL(ctx context.Context, url string, opts FetchOptions) (FetchResult, error)
}

// ResolverContent is the §6 ResolverManager.resolve content shape:
// either a {content, headers?} pair or a bare string.
type ResolverContent struct {
	Content string
	Headers map[string]string
}

// ResolveOptions carries the §6 resolve(reference, {context, basePath, payload?}) args.
type ResolveOptions struct {
	Context  string
	BasePath string
	Payload  interface{}
}

// Resolver is a single registered resolver (e.g. "@user/module", a
// local prefix, GitHub, HTTP).
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, reference string, opts ResolveOptions) (ResolverContent, error)
}

// ResolverManager is the §6 ResolverManager collaborator.
type ResolverManager interface {
	Resolve(ctx context.Context, reference string, opts ResolveOptions) (ResolverContent, error)
	RegisterResolver(r Resolver)
}

// LockFile is the §6 LockFile/ModuleCache collaborator: configures
// registries at startup and stores content-addressed module bodies.
type LockFile interface {
	RegistryFor(reference string) (registry string, ok bool)
	Get(contentHash string) (content string, ok bool)
	Put(contentHash, content string)
}

// Decision is a guard's verdict (spec §4.4.5, §4.5, GLOSSARY).
type Decision struct {
	Kind      DecisionKind
	Reason    string
	Transform interface{} // replacement inputs (pre-guard) or result (post-guard)
}

type DecisionKind string

const (
	DecisionAllow     DecisionKind = "allow"
	DecisionDeny      DecisionKind = "deny"
	DecisionRetry     DecisionKind = "retry"
	DecisionTransform DecisionKind = "transform"
)

// HookManager is the §6 Hook Manager collaborator: runPre/runPost
// around an exec invocation.
type HookManager interface {
	RunPre(node interface{}, inputs map[string]interface{}, env interface{}, opCtx OpContext) (Decision, error)
	RunPost(node interface{}, result interface{}, inputs map[string]interface{}, env interface{}, opCtx OpContext) (Decision, error)
}

// OpContext identifies the invocation a guard decision applies to.
type OpContext struct {
	ExecutableName string
	TryCount       int
}

// StreamAdapter formats streamed chunks for one output format (e.g.
// "ndjson").
type StreamAdapter interface {
	Name() string
	FormatChunk(chunk []byte) []byte
}

// StreamConfig configures a StreamingManager.Configure call.
type StreamConfig struct {
	Enabled bool
	Options map[string]interface{}
	Adapter StreamAdapter
}

// StreamingManager is the §6 StreamingManager collaborator.
type StreamingManager interface {
	Configure(cfg StreamConfig) error
	FinalizeResults() error
}

// CommandOptions configures a single command execution (spec §4.1
// executeCommand, §4.6).
type CommandOptions struct {
	Params     map[string]interface{}
	Dir        string
	TimeoutMS  int64
	ErrorContinue bool
}

// CodeOptions configures a single embedded-code execution (spec §4.1
// executeCode, §4.6).
type CodeOptions struct {
	Dir           string
	TimeoutMS     int64
	ErrorContinue bool
	ShadowEnvs    map[string]map[string]interface{}
}

// ExecResult is the common {stdout, stderr, exitCode} shape every
// execution adapter returns (spec §4.6).
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OpLocation carries the source location/directive context executeCommand
// and executeCode must attach to any raised error (spec §4.1).
type OpLocation struct {
	File      string
	Line      int
	Column    int
	Directive string
}

// Executor is the environment's execution-adapter collaborator (spec
// §4.1 executeCommand/executeCode, §4.6). internal/adapter implements
// this; internal/env only delegates to it so the two packages don't
// import each other.
type Executor interface {
	ExecuteCommand(ctx context.Context, cmd string, opts CommandOptions, loc OpLocation) (ExecResult, error)
	ExecuteCode(ctx context.Context, code, language string, params map[string]interface{}, opts CodeOptions, loc OpLocation) (ExecResult, error)
}
