package adapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-go/internal/adapter"
	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/iface"
)

func TestExecuteCommandCapturesStdout(t *testing.T) {
	a := adapter.New()
	res, err := a.ExecuteCommand(context.Background(), "echo hello", iface.CommandOptions{}, iface.OpLocation{Directive: "run"})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
}

func TestExecuteCommandPassesReferencedParamsAsEnv(t *testing.T) {
	a := adapter.New()
	res, err := a.ExecuteCommand(context.Background(), `echo "$name"`, iface.CommandOptions{
		Params: map[string]interface{}{"name": "world", "unused": "ignored"},
	}, iface.OpLocation{Directive: "run"})
	require.NoError(t, err)
	assert.Equal(t, "world\n", res.Stdout)
}

func TestExecuteCommandNonZeroExitIsTyped(t *testing.T) {
	a := adapter.New()
	_, err := a.ExecuteCommand(context.Background(), "exit 3", iface.CommandOptions{}, iface.OpLocation{Directive: "run"})
	require.Error(t, err)
	var typed errors.Typed
	assert.ErrorAs(t, err, &typed)
}

func TestExecuteCommandNonZeroExitContinuesWhenErrorContinue(t *testing.T) {
	a := adapter.New()
	res, err := a.ExecuteCommand(context.Background(), "exit 7", iface.CommandOptions{ErrorContinue: true}, iface.OpLocation{Directive: "run"})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ExitCode)
}

func TestExecuteCommandTimesOut(t *testing.T) {
	a := adapter.New()
	_, err := a.ExecuteCommand(context.Background(), "sleep 5", iface.CommandOptions{TimeoutMS: 10}, iface.OpLocation{Directive: "run"})
	require.Error(t, err)
	var cmdTimeout *errors.CommandTimeout
	assert.ErrorAs(t, err, &cmdTimeout)
}

func TestExecuteCommandFallsBackToHeredocForOversizedParam(t *testing.T) {
	a := adapter.New()
	a.HeredocThreshold = 8
	res, err := a.ExecuteCommand(context.Background(), `echo "$payload"`, iface.CommandOptions{
		Params: map[string]interface{}{"payload": "this value is definitely over the threshold"},
	}, iface.OpLocation{Directive: "run"})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "this value is definitely over the threshold")
}

func TestExecuteCommandHeredocFallbackDisabled(t *testing.T) {
	a := adapter.New()
	a.HeredocThreshold = 8
	a.DisableHeredoc = true
	res, err := a.ExecuteCommand(context.Background(), `echo "$payload"`, iface.CommandOptions{
		Params: map[string]interface{}{"payload": "over the threshold value"},
	}, iface.OpLocation{Directive: "run"})
	require.NoError(t, err)
	assert.Equal(t, "\n", res.Stdout, "oversized param is skipped, not passed, when the heredoc fallback is disabled")
}
