package env

import (
	"time"

	"github.com/mlld-lang/mlld-go/internal/clock"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// Clock abstracts the current time so tests can pin it via
// MLLD_MOCK_TIME (spec §6 env vars) without the evaluator reaching for
// time.Now() directly.
type Clock func() time.Time

// defaultClock honors MLLD_MOCK_TIME at root construction time (spec
// §6 env vars); see internal/clock for the parsing rule.
var defaultClock Clock = Clock(clock.New())

func systemVariable(name string, v interface{}) *value.Variable {
	vv := value.NewVariable(name, value.KindPrimitive, v, value.Source{Directive: "system"})
	vv.Internal = &value.Internal{IsSystem: true, IsReserved: true}
	return vv
}

// seedReserved seeds INPUT, TIME, PROJECTPATH, fm, frontmatter at root
// construction, and arranges for DEBUG to materialize lazily on first
// access (spec §3 Lifecycle).
func (e *Environment) seedReserved() {
	e.variables["TIME"] = systemVariable("TIME", defaultClock().Format(time.RFC3339))
	e.variables["PROJECTPATH"] = systemVariable("PROJECTPATH", e.currentFilePath)
	e.variables["INPUT"] = systemVariable("INPUT", map[string]interface{}{})
	e.variables["fm"] = systemVariable("fm", map[string]interface{}{})
	e.variables["frontmatter"] = systemVariable("frontmatter", map[string]interface{}{})

	e.debugVar = func() *value.Variable {
		return systemVariable("DEBUG", e.debugSnapshot())
	}
}

// debugSnapshot renders a lazily computed debug view of the current
// scope (spec §3: "DEBUG is lazy"). Kept intentionally small: just
// enough to inspect scope shape during evaluation.
func (e *Environment) debugSnapshot() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.variables))
	for n := range e.variables {
		names = append(names, n)
	}
	return map[string]interface{}{
		"variables":      names,
		"currentFile":    e.currentFilePath,
		"isRoot":         e.isRoot,
	}
}

// SetStdinContent builds the INPUT reserved value from stdin content
// and the process environment, per spec §4.1 setStdinContent: object
// stdin merges env vars with env-var precedence; non-object stdin
// becomes {content, ...env}; stdin-only preserves the original shape.
func (e *Environment) SetStdinContent(stdin string, envVars map[string]string) {
	data := CreateInputValue(stdin, envVars)
	v := systemVariable("INPUT", data)
	e.mu.Lock()
	e.variables["INPUT"] = v
	e.mu.Unlock()
}
