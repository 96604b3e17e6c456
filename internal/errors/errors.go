// Package errors defines the typed error taxonomy the evaluator raises
// (spec §7) and wraps them with github.com/pkg/errors so a stack trace
// survives from the point of failure up to the CLI's formatter,
// mirroring how the teacher's runtime/decorators package wraps
// decorator failures.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one of the error taxonomy entries from spec.md §7.
type Kind string

const (
	KindReservedName       Kind = "ReservedName"
	KindRedefinition       Kind = "Redefinition"
	KindImportConflict     Kind = "ImportConflict"
	KindUnknownVariable    Kind = "UnknownVariable"
	KindUnknownCommand     Kind = "UnknownCommand"
	KindCircularImport     Kind = "CircularImport"
	KindCircularExecutable Kind = "CircularExecutable"
	KindPathNotFound       Kind = "PathNotFound"
	KindURLPolicyViolation Kind = "URLPolicyViolation"
	KindFetchTimeout       Kind = "FetchTimeout"
	KindSectionNotFound    Kind = "SectionNotFound"
	KindForbiddenOperator  Kind = "ForbiddenShellOperator"
	KindCommandNonZeroExit Kind = "CommandNonZeroExit"
	KindCommandTimeout     Kind = "CommandTimeout"
	KindCodeException      Kind = "CodeException"
	KindGuardDenied        Kind = "GuardDenied"
	KindGuardRetryExhaust  Kind = "GuardRetryExhausted"
	KindPipelineStageFail  Kind = "PipelineStageFailed"
	KindPipelineRetryExh   Kind = "PipelineRetryExhausted"
	KindTypeMismatch       Kind = "TypeMismatch"
	KindInvalidToolSpec    Kind = "InvalidToolSpec"
	KindInvalidStructured  Kind = "InvalidStructuredValue"
	KindMissingValue       Kind = "MissingValue"
)

// Location is the source position an error is attached to.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" && l.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// EvalError is the common shape for every evaluator-raised error.
// Recoverable is true only for CommandNonZeroExit under
// errorBehavior='continue' (spec §7 propagation policy).
type EvalError struct {
	Kind        Kind
	Message     string
	Location    Location
	Directive   string // directive kind that raised it, e.g. "import"
	Identifier  string // resolved name/path relevant to the error
	Recoverable bool
	cause       error
}

// Typed is satisfied by every error this package defines (EvalError
// and its embedders like CommandNonZeroExit), letting callers detect
// "this is already one of our typed errors, don't rewrap it" without
// a type switch over every concrete type.
type Typed interface {
	error
	typedEvalError()
}

func (e *EvalError) typedEvalError() {}

func (e *EvalError) Error() string {
	loc := e.Location.String()
	if loc != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, loc)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause so errors.Is/As and pkg/errors'
// Cause() both work.
func (e *EvalError) Unwrap() error { return e.cause }

// New constructs an EvalError wrapped with a stack trace.
func New(kind Kind, location Location, directive string, format string, args ...interface{}) *EvalError {
	return &EvalError{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Location:  location,
		Directive: directive,
		cause:     errors.New(string(kind)),
	}
}

// Wrap attaches directive-level context (location, directive kind,
// resolved identifier) to an adapter- or collaborator-raised error,
// per spec §7 "evaluators wrap adapter errors with directive-level
// context".
func Wrap(kind Kind, cause error, location Location, directive, identifier, format string, args ...interface{}) *EvalError {
	return &EvalError{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Location:   location,
		Directive:  directive,
		Identifier: identifier,
		cause:      errors.Wrap(cause, string(kind)),
	}
}

// WithRecoverable marks an error recoverable (buffered and execution
// continues) per the directive's errorBehavior.
func (e *EvalError) WithRecoverable(r bool) *EvalError {
	e.Recoverable = r
	return e
}

// CommandNonZeroExit carries the exit status and captured IO spec §7
// requires on ExecutionErrors.
type CommandNonZeroExit struct {
	*EvalError
	ExitCode int
	Stdout   string
	Stderr   string
	Cwd      string
}

func NewCommandNonZeroExit(location Location, directive, cwd, stdout, stderr string, exitCode int) *CommandNonZeroExit {
	return &CommandNonZeroExit{
		EvalError: New(KindCommandNonZeroExit, location, directive,
			"command exited with status %d", exitCode),
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Cwd:      cwd,
	}
}

// CommandTimeout carries the working directory and command per §7.
type CommandTimeout struct {
	*EvalError
	Cwd     string
	Command string
}

func NewCommandTimeout(location Location, directive, cwd, command string) *CommandTimeout {
	return &CommandTimeout{
		EvalError: New(KindCommandTimeout, location, directive,
			"command timed out: %s", command),
		Cwd:     cwd,
		Command: command,
	}
}

// GuardDenied carries the guard's stated reason.
type GuardDenied struct {
	*EvalError
	Reason string
}

func NewGuardDenied(location Location, directive, reason string) *GuardDenied {
	return &GuardDenied{
		EvalError: New(KindGuardDenied, location, directive, "guard denied: %s", reason),
		Reason:    reason,
	}
}

// CircularImport identifies the cycle's closing edge.
type CircularImport struct {
	*EvalError
	Cycle []string
}

func NewCircularImport(location Location, cycle []string) *CircularImport {
	return &CircularImport{
		EvalError: New(KindCircularImport, location, "import",
			"circular import: %s", joinCycle(cycle)),
		Cycle: cycle,
	}
}

func joinCycle(cycle []string) string {
	out := ""
	for i, c := range cycle {
		if i > 0 {
			out += " -> "
		}
		out += c
	}
	return out
}
