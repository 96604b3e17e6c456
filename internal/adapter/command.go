// Package adapter implements spec §4.6: the execution adapters that
// run shell commands and embedded code with consistent timeouts, IO
// capture, and error shape. Grounded on the teacher's shell_worker.go
// os/exec invocation, simplified from its persistent worker-pool model
// to a direct-spawn-per-invocation model since the spec has no notion
// of a long-lived shell session to reuse across invocations (see
// DESIGN.md).
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

// DefaultTimeout is the adapter default when a directive doesn't
// override it (spec §4.6: "default 30s, configurable per-directive").
const DefaultTimeout = 30 * time.Second

// DefaultHeredocThreshold is the UTF-8 byte threshold above which a
// referenced parameter triggers the bash heredoc fallback (spec §4.6,
// default 128 KiB, overridable via MLLD_MAX_SHELL_ENV_VAR_SIZE).
const DefaultHeredocThreshold = 128 * 1024

// Adapter implements iface.Executor by shelling out to the host's
// `sh`/`bash`/`node`/`python3` binaries (spec §4.6: Go has no embedded
// JS or Python runtime, so these languages are always subprocesses).
type Adapter struct {
	HeredocThreshold  int
	DisableHeredoc    bool
}

// New returns an Adapter configured from the process environment
// (spec §6 env vars MLLD_MAX_SHELL_ENV_VAR_SIZE, MLLD_DISABLE_COMMAND_BASH_FALLBACK).
func New() *Adapter {
	a := &Adapter{HeredocThreshold: DefaultHeredocThreshold}
	if v := os.Getenv("MLLD_MAX_SHELL_ENV_VAR_SIZE"); v != "" {
		if n, err := parseByteSize(v); err == nil {
			a.HeredocThreshold = n
		}
	}
	a.DisableHeredoc = os.Getenv("MLLD_DISABLE_COMMAND_BASH_FALLBACK") != ""
	return a
}

func parseByteSize(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

// ExecuteCommand implements iface.Executor.ExecuteCommand: build an
// env map from referenced $name/${name} parameters, run under `sh -c`
// (or the bash heredoc fallback when a referenced parameter is
// oversized), and surface a typed CommandNonZeroExit/CommandTimeout on
// failure (spec §4.6).
func (a *Adapter) ExecuteCommand(ctx context.Context, cmd string, opts iface.CommandOptions, loc iface.OpLocation) (iface.ExecResult, error) {
	timeout := DefaultTimeout
	if opts.TimeoutMS > 0 {
		timeout = time.Duration(opts.TimeoutMS) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	envPairs, oversized := referencedParamEnv(cmd, opts.Params, a.HeredocThreshold)

	var c *exec.Cmd
	if len(oversized) > 0 && !a.DisableHeredoc {
		c = a.buildHeredocCommand(runCtx, cmd, opts.Params, opts.Dir)
	} else {
		c = exec.CommandContext(runCtx, "sh", "-c", cmd)
		c.Dir = opts.Dir
		c.Env = append(os.Environ(), envPairs...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := iface.ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if runCtx.Err() == context.DeadlineExceeded {
		return res, errors.NewCommandTimeout(errors.Location{File: loc.File, Line: loc.Line, Column: loc.Column}, loc.Directive, opts.Dir, cmd)
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		if opts.ErrorContinue {
			return res, nil
		}
		return res, errors.NewCommandNonZeroExit(errors.Location{File: loc.File, Line: loc.Line, Column: loc.Column}, loc.Directive, opts.Dir, res.Stdout, res.Stderr, res.ExitCode)
	}
	if err != nil {
		return res, errors.Wrap(errors.KindCodeException, err, errors.Location{File: loc.File, Line: loc.Line, Column: loc.Column}, loc.Directive, cmd, "failed to start command")
	}
	return res, nil
}

// referencedParamEnv builds KEY=VALUE env pairs for each parameter the
// template actually references by $name or ${name} (spec §4.6: "skip
// unreferenced parameters to avoid oversized envs"), returning the
// subset whose serialized size exceeds threshold.
func referencedParamEnv(cmd string, params map[string]interface{}, threshold int) (pairs []string, oversized []string) {
	for name, v := range params {
		if !strings.Contains(cmd, "$"+name) && !strings.Contains(cmd, "${"+name+"}") {
			continue
		}
		serialized := serializeParam(v)
		if len(serialized) > threshold {
			oversized = append(oversized, name)
			continue
		}
		pairs = append(pairs, name+"="+serialized)
	}
	return pairs, oversized
}

// serializeParam renders a parameter value for a shell env var: a
// string passes through unescaped so $name expands as the literal
// text, and anything else (object, array, number, bool, null)
// marshals to JSON (spec line 187: "set an env var with the serialized
// value (JSON for objects)").
func serializeParam(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// buildHeredocCommand implements the bash heredoc fallback (spec
// §4.6): for each parameter the command references as $name or
// ${name}, a `read` heredoc defining that variable is prepended, the
// command text follows unchanged, and the whole script is fed to bash
// on stdin, so no parameter has to travel as an env var.
func (a *Adapter) buildHeredocCommand(ctx context.Context, cmd string, params map[string]interface{}, dir string) *exec.Cmd {
	var script strings.Builder
	for name, v := range params {
		if !strings.Contains(cmd, "$"+name) && !strings.Contains(cmd, "${"+name+"}") {
			continue
		}
		fmt.Fprintf(&script, "read -r -d '' %s <<'MLLD_EOF_%s' || true\n%s\nMLLD_EOF_%s\n", name, name, serializeParam(v), name)
	}
	script.WriteString(cmd)

	c := exec.CommandContext(ctx, "bash")
	c.Dir = dir
	c.Stdin = strings.NewReader(script.String())
	c.Env = os.Environ()
	return c
}
