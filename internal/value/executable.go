package value

// ExecKind is the ExecutableDefinition variant tag (spec §3). Grounded
// on the teacher's Descriptor/Capabilities split in
// core/decorator/decorator.go: a closed Role-like enum plus a payload,
// rather than one interface implemented seven different ways.
type ExecKind string

const (
	ExecCommand    ExecKind = "command"
	ExecCode       ExecKind = "code"
	ExecTemplate   ExecKind = "template"
	ExecCommandRef ExecKind = "commandRef"
	ExecSection    ExecKind = "section"
	ExecResolver   ExecKind = "resolver"
	ExecPipeline   ExecKind = "pipeline"
	ExecData       ExecKind = "data"
)

// Language tags a code{} executable (spec §3).
type Language string

const (
	LangJS         Language = "js"
	LangNode       Language = "node"
	LangPython     Language = "python"
	LangBash       Language = "bash"
	LangSh         Language = "sh"
	LangMlldWhen   Language = "mlld-when"
	LangMlldFor    Language = "mlld-for"
	LangMlldForeach Language = "mlld-foreach"
	LangMlldExeBlock Language = "mlld-exe-block"
)

// WithClause carries the trailing options on a value or invocation
// (spec GLOSSARY): pipeline, format, stdin, stream, trust, needs.
type WithClause struct {
	Pipeline []PipelineStage
	Format   string // "text" | "json" | "array"
	Stdin    interface{}
	Stream   bool
	Trust    string
	Needs    []string
	Tools    []ToolSpec
}

// PipelineStage is one element of a pipeline. A stage that is itself a
// slice of stages denotes parallel fan-out (spec §4.5).
type PipelineStage struct {
	Callable interface{} // *ExecInvocationNode or similar AST reference
	Parallel []PipelineStage
}

// IsParallel reports whether this stage is a parallel fan-out group.
func (p PipelineStage) IsParallel() bool { return len(p.Parallel) > 0 }

// ToolSpec describes a callable's JSON-Schema-shaped tool definition
// (SPEC_FULL §4.8), validated at /var evaluation time.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

type commandDef struct {
	Template   []interface{} // interpolatable node sequence
	WithClause *WithClause
}

type codeDef struct {
	Language   Language
	Template   string
	WithClause *WithClause
}

type templateDef struct {
	Nodes      []interface{}
	WithClause *WithClause
}

type commandRefDef struct {
	TargetName string
	Args       []interface{}
	WithClause *WithClause
}

type sectionDef struct {
	PathTemplate    []interface{}
	SectionTemplate []interface{}
	RenameTemplate  []interface{}
}

type resolverDef struct {
	ResolverPath   string
	PayloadTemplate []interface{}
}

type pipelineDef struct {
	Stages []PipelineStage
	Format string
}

type dataDef struct {
	ASTTemplate interface{}
}

// ExecutableDefinition is the tagged union described in spec §3. All
// variants share ParamNames and SourceDirective plus optional captured
// environments.
type ExecutableDefinition struct {
	Kind ExecKind

	Command    *commandDef
	Code       *codeDef
	Template   *templateDef
	CommandRef *commandRefDef
	Section    *sectionDef
	Resolver   *resolverDef
	Pipeline   *pipelineDef
	Data       *dataDef

	ParamNames      []string
	SourceDirective string // "exe" | "var"

	CapturedModuleEnv interface{}
	CapturedShadowEnvs map[string]map[string]interface{}
}

func NewCommandExecutable(template []interface{}, with *WithClause) *ExecutableDefinition {
	return &ExecutableDefinition{Kind: ExecCommand, Command: &commandDef{Template: template, WithClause: with}}
}

func NewCodeExecutable(lang Language, template string, with *WithClause) *ExecutableDefinition {
	return &ExecutableDefinition{Kind: ExecCode, Code: &codeDef{Language: lang, Template: template, WithClause: with}}
}

func NewTemplateExecutable(nodes []interface{}, with *WithClause) *ExecutableDefinition {
	return &ExecutableDefinition{Kind: ExecTemplate, Template: &templateDef{Nodes: nodes, WithClause: with}}
}

func NewCommandRefExecutable(target string, args []interface{}, with *WithClause) *ExecutableDefinition {
	return &ExecutableDefinition{Kind: ExecCommandRef, CommandRef: &commandRefDef{TargetName: target, Args: args, WithClause: with}}
}

func NewSectionExecutable(path, section, rename []interface{}) *ExecutableDefinition {
	return &ExecutableDefinition{Kind: ExecSection, Section: &sectionDef{PathTemplate: path, SectionTemplate: section, RenameTemplate: rename}}
}

func NewResolverExecutable(resolverPath string, payload []interface{}) *ExecutableDefinition {
	return &ExecutableDefinition{Kind: ExecResolver, Resolver: &resolverDef{ResolverPath: resolverPath, PayloadTemplate: payload}}
}

func NewPipelineExecutable(stages []PipelineStage, format string) *ExecutableDefinition {
	return &ExecutableDefinition{Kind: ExecPipeline, Pipeline: &pipelineDef{Stages: stages, Format: format}}
}

func NewDataExecutable(astTemplate interface{}) *ExecutableDefinition {
	return &ExecutableDefinition{Kind: ExecData, Data: &dataDef{ASTTemplate: astTemplate}}
}
