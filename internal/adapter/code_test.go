package adapter_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-go/internal/adapter"
	"github.com/mlld-lang/mlld-go/internal/iface"
)

func TestExecuteCodeBash(t *testing.T) {
	a := adapter.New()
	res, err := a.ExecuteCode(context.Background(), `echo "hi $name"`, "bash", map[string]interface{}{"name": "there"}, iface.CodeOptions{}, iface.OpLocation{Directive: "run"})
	require.NoError(t, err)
	assert.Equal(t, "hi there\n", res.Stdout)
}

func TestExecuteCodeNodeReturnsJSONResult(t *testing.T) {
	a := adapter.New()
	res, err := a.ExecuteCode(context.Background(), "x + 1", "js", map[string]interface{}{"x": 2}, iface.CodeOptions{}, iface.OpLocation{Directive: "run"})
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(res.Stdout))
}

func TestExecuteCodePythonRunsExplicitPrint(t *testing.T) {
	a := adapter.New()
	res, err := a.ExecuteCode(context.Background(), "print(x * 2)", "python", map[string]interface{}{"x": 3}, iface.CodeOptions{}, iface.OpLocation{Directive: "run"})
	require.NoError(t, err)
	assert.Equal(t, "6", strings.TrimSpace(res.Stdout))
}

func TestExecuteCodeUnsupportedLanguage(t *testing.T) {
	a := adapter.New()
	_, err := a.ExecuteCode(context.Background(), "1", "ruby", nil, iface.CodeOptions{}, iface.OpLocation{Directive: "run"})
	assert.Error(t, err)
}
