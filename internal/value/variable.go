package value

// Kind is the variant tag for Variable (spec §3). Go represents the
// polymorphic variable as a tagged struct rather than an interface
// hierarchy, per the "cyclic graphs" guidance in spec §9: a closed
// enum plus a per-kind payload field is easier to reason about and to
// merge security descriptors over than a dynamic-dispatch graph.
type Kind string

const (
	KindSimpleText      Kind = "simple-text"
	KindInterpolated    Kind = "interpolated-text"
	KindTemplate        Kind = "template"
	KindPrimitive       Kind = "primitive"
	KindObjectVar       Kind = "object"
	KindArrayVar        Kind = "array"
	KindPath            Kind = "path"
	KindExecutable      Kind = "executable"
	KindPipelineInput   Kind = "pipeline-input"
	KindStructured      Kind = "structured"
	KindCommandResult   Kind = "command-result"
)

// Source records the directive kind and syntax the variable was
// created from (spec §3 Variable.source).
type Source struct {
	Directive     string // "var" | "exe" | "import" | ...
	Syntax        string // "literal" | "template" | "command" | ...
	Interpolated  bool
	MultiLine     bool
}

// Origin marks where a variable was created (spec §4.4.3 step 7).
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginImport Origin = "import"
)

// ImportLocation records the import site for bindings created by
// /import (spec §3 Variable lifecycle, §4.4.3 step 7).
type ImportLocation struct {
	Path string
	Line int
	Col  int
}

// Internal mirrors spec §3 Variable.internal: runtime flags invisible
// to user code.
type Internal struct {
	IsSystem       bool
	IsParameter    bool
	IsReserved     bool
	IsLazy         bool
	IsRetryable    bool
	ExecutableDef  *ExecutableDefinition
	CapturedShadow map[string]map[string]interface{} // language -> name -> callable
	CapturedModule interface{}                        // captured module env handle
	SourceFunction func() (interface{}, error)         // re-execute the RHS for pipeline retry
	TransformerImpl     interface{}
	TransformerVariants map[string]interface{}
	GuardHelperImpl     interface{}
}

// Variable is the polymorphic value binding described in spec §3.
type Variable struct {
	Name     string
	Type     Kind
	Value    interface{}
	Source   Source
	Ctx      *SecurityDescriptor
	Internal *Internal

	Origin         Origin
	ImportLocation *ImportLocation
}

// NewVariable constructs a Variable, defaulting Ctx to a clean
// descriptor so callers never need a nil check before merging.
func NewVariable(name string, kind Kind, val interface{}, src Source) *Variable {
	return &Variable{
		Name:   name,
		Type:   kind,
		Value:  val,
		Source: src,
		Ctx:    NewSecurityDescriptor(),
		Origin: OriginLocal,
	}
}

// Clone returns a shallow copy with its own SecurityDescriptor, used
// by import binding (spec §4.4.3 step 7: "clone with origin=IMPORT").
func (v *Variable) Clone() *Variable {
	clone := *v
	clone.Ctx = v.Ctx.Clone()
	return &clone
}

// IsReserved reports whether this binding is one of the runtime's
// reserved names (spec §3 Lifecycle).
func (v *Variable) IsReserved() bool {
	return v.Internal != nil && v.Internal.IsReserved
}

// IsParameter reports whether this binding is a parameter variable,
// which bypasses the parent-scope redefinition check (spec §3).
func (v *Variable) IsParameter() bool {
	return v.Internal != nil && v.Internal.IsParameter
}
