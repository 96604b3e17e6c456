package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/iface"
)

// ExecuteCode implements iface.Executor.ExecuteCode, dispatching on
// language to the matching adapter (spec §4.6). mlld-when/mlld-for/
// mlld-foreach/mlld-exe-block never reach here: internal/exec
// intercepts those languages and dispatches back into the evaluator
// before calling the Executor collaborator.
func (a *Adapter) ExecuteCode(ctx context.Context, code, language string, params map[string]interface{}, opts iface.CodeOptions, loc iface.OpLocation) (iface.ExecResult, error) {
	timeout := DefaultTimeout
	if opts.TimeoutMS > 0 {
		timeout = time.Duration(opts.TimeoutMS) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		res iface.ExecResult
		err error
	)
	switch language {
	case "js", "node":
		res, err = a.runNode(runCtx, code, params, opts)
	case "python":
		res, err = a.runPython(runCtx, code, params, opts)
	case "bash", "sh":
		res, err = a.runBash(runCtx, code, params, opts)
	default:
		return iface.ExecResult{}, errors.New(errors.KindCodeException, errors.Location{File: loc.File, Line: loc.Line, Column: loc.Column}, loc.Directive,
			"unsupported code language %q", language)
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return res, errors.NewCommandTimeout(errors.Location{File: loc.File, Line: loc.Line, Column: loc.Column}, loc.Directive, opts.Dir, language)
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		if opts.ErrorContinue {
			return res, nil
		}
		return res, errors.NewCommandNonZeroExit(errors.Location{File: loc.File, Line: loc.Line, Column: loc.Column}, loc.Directive, opts.Dir, res.Stdout, res.Stderr, res.ExitCode)
	}
	if err != nil {
		return res, errors.Wrap(errors.KindCodeException, err, errors.Location{File: loc.File, Line: loc.Line, Column: loc.Column}, loc.Directive, language, "code execution failed")
	}
	return res, nil
}

// runNode implements the js|node adapter (spec §4.6): parameters are
// passed as JSON-literal const bindings, and a bare-expression body
// (no explicit return) is wrapped so its value becomes the script's
// JSON-printed result.
func (a *Adapter) runNode(ctx context.Context, code string, params map[string]interface{}, opts iface.CodeOptions) (iface.ExecResult, error) {
	var script strings.Builder
	for name, v := range params {
		b, _ := json.Marshal(v)
		fmt.Fprintf(&script, "const %s = %s;\n", name, string(b))
	}
	body := code
	if !strings.Contains(code, "return") {
		body = "return (" + code + ");"
	}
	fmt.Fprintf(&script, "const __mlld_result = (function(){\n%s\n})();\nif (__mlld_result !== undefined) console.log(typeof __mlld_result === 'string' ? __mlld_result : JSON.stringify(__mlld_result));\n", body)

	c := exec.CommandContext(ctx, "node", "-e", script.String())
	return runCaptured(c, opts)
}

// runPython implements the python adapter (spec §4.6): writes code to
// a temp file with parameter pre-assignments as JSON literals, invokes
// python3, and always removes the temp file.
func (a *Adapter) runPython(ctx context.Context, code string, params map[string]interface{}, opts iface.CodeOptions) (iface.ExecResult, error) {
	f, err := os.CreateTemp("", "mlld-*.py")
	if err != nil {
		return iface.ExecResult{}, err
	}
	path := f.Name()
	defer os.Remove(path)

	var script strings.Builder
	for name, v := range params {
		b, _ := json.Marshal(v)
		fmt.Fprintf(&script, "%s = %s\n", name, pyLiteral(string(b)))
	}
	script.WriteString(code)
	if _, err := f.WriteString(script.String()); err != nil {
		f.Close()
		return iface.ExecResult{}, err
	}
	f.Close()

	c := exec.CommandContext(ctx, "python3", path)
	return runCaptured(c, opts)
}

// pyLiteral adjusts JSON's null/true/false spelling to Python's,
// anywhere they appear as bare tokens in the marshaled value -
// including nested inside an object or array literal (e.g.
// `{"a":null,"b":[true,false]}`) - while leaving occurrences inside
// quoted JSON string values untouched.
func pyLiteral(jsonVal string) string {
	var out strings.Builder
	inString := false
	for i := 0; i < len(jsonVal); {
		c := jsonVal[i]
		if inString {
			out.WriteByte(c)
			if c == '\\' && i+1 < len(jsonVal) {
				out.WriteByte(jsonVal[i+1])
				i += 2
				continue
			}
			if c == '"' {
				inString = false
			}
			i++
			continue
		}
		if c == '"' {
			inString = true
			out.WriteByte(c)
			i++
			continue
		}
		switch {
		case matchKeyword(jsonVal, i, "null"):
			out.WriteString("None")
			i += len("null")
		case matchKeyword(jsonVal, i, "true"):
			out.WriteString("True")
			i += len("true")
		case matchKeyword(jsonVal, i, "false"):
			out.WriteString("False")
			i += len("false")
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// matchKeyword reports whether kw occurs at s[i:] as a standalone
// token, not as a substring of a longer identifier.
func matchKeyword(s string, i int, kw string) bool {
	if i+len(kw) > len(s) || s[i:i+len(kw)] != kw {
		return false
	}
	if i > 0 && isIdentByte(s[i-1]) {
		return false
	}
	end := i + len(kw)
	if end < len(s) && isIdentByte(s[end]) {
		return false
	}
	return true
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// runBash implements the bash|sh adapter (spec §4.6): the user code is
// fed on stdin with the host environment plus one env var per explicit
// param, serialized as the command adapter does. When no params are
// given, no variables from the mlld scope are injected.
func (a *Adapter) runBash(ctx context.Context, code string, params map[string]interface{}, opts iface.CodeOptions) (iface.ExecResult, error) {
	shell := "bash"
	c := exec.CommandContext(ctx, shell)
	c.Stdin = strings.NewReader(code)
	env := os.Environ()
	for name, v := range params {
		env = append(env, name+"="+serializeParam(v))
	}
	c.Env = env
	return runCaptured(c, opts)
}

func runCaptured(c *exec.Cmd, opts iface.CodeOptions) (iface.ExecResult, error) {
	c.Dir = opts.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	err := c.Run()
	return iface.ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}, err
}
