package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/value"
)

func newTestRoot() *env.Environment {
	return env.NewRoot(&env.Capabilities{})
}

func TestSetVariableRejectsReservedName(t *testing.T) {
	e := newTestRoot()
	err := e.SetVariable("INPUT", value.NewVariable("INPUT", value.KindPrimitive, "x", value.Source{}))
	require.Error(t, err)
	var ee *errors.EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, errors.KindReservedName, ee.Kind)
}

func TestSetVariableRejectsSameScopeRedefinition(t *testing.T) {
	e := newTestRoot()
	require.NoError(t, e.SetVariable("x", value.NewVariable("x", value.KindPrimitive, 1, value.Source{})))
	err := e.SetVariable("x", value.NewVariable("x", value.KindPrimitive, 2, value.Source{}))
	require.Error(t, err)
	var ee *errors.EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, errors.KindRedefinition, ee.Kind)
}

func TestSetVariableRejectsAncestorConflictAsImportConflict(t *testing.T) {
	parent := newTestRoot()
	require.NoError(t, parent.SetVariable("x", value.NewVariable("x", value.KindPrimitive, 1, value.Source{})))
	child := parent.CreateChild("")

	err := child.SetVariable("x", value.NewVariable("x", value.KindPrimitive, 2, value.Source{}))
	require.Error(t, err)
	var ee *errors.EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, errors.KindImportConflict, ee.Kind)
}

func TestSetParameterVariableShadowsAncestorSilently(t *testing.T) {
	parent := newTestRoot()
	require.NoError(t, parent.SetVariable("x", value.NewVariable("x", value.KindPrimitive, 1, value.Source{})))
	child := parent.CreateChild("")

	require.NoError(t, child.SetParameterVariable("x", value.NewVariable("x", value.KindPrimitive, 2, value.Source{})))
	got, ok := child.GetVariable("x")
	require.True(t, ok)
	assert.Equal(t, 2, got.Value)
}

func TestGetVariableSearchesAncestorChain(t *testing.T) {
	parent := newTestRoot()
	require.NoError(t, parent.SetVariable("x", value.NewVariable("x", value.KindPrimitive, 1, value.Source{})))
	child := parent.CreateChild("")

	got, ok := child.GetVariable("x")
	require.True(t, ok)
	assert.Equal(t, 1, got.Value)
}

func TestGetVariableLowercaseAliasOnlyAtRoot(t *testing.T) {
	root := newTestRoot()
	got, ok := root.GetVariable("input")
	require.True(t, ok)
	assert.NotNil(t, got)

	child := root.CreateChild("")
	_, ok = child.GetVariable("input")
	assert.False(t, ok, "lowercase alias must not resolve in a child scope")
}

func TestDebugIsLazilyMaterializedOnce(t *testing.T) {
	root := newTestRoot()
	require.NoError(t, root.SetVariable("x", value.NewVariable("x", value.KindPrimitive, 1, value.Source{})))

	first, ok := root.GetVariable("DEBUG")
	require.True(t, ok)
	second, ok := root.GetVariable("DEBUG")
	require.True(t, ok)
	assert.Same(t, first, second, "DEBUG must materialize exactly once")
}

func TestCreateInputValuePrecedenceRules(t *testing.T) {
	obj := env.CreateInputValue(`{"a":1}`, map[string]string{"a": "override", "b": "2"})
	m, ok := obj.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "override", m["a"], "env vars take precedence over stdin object fields")
	assert.Equal(t, "2", m["b"])

	nonObject := env.CreateInputValue("plain text", map[string]string{"k": "v"})
	m2, ok := nonObject.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "plain text", m2["content"])

	stdinOnly := env.CreateInputValue(`{"x":1}`, nil)
	m3, ok := stdinOnly.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), m3["x"])
}

func TestBeginImportDetectsCircularImport(t *testing.T) {
	e := newTestRoot()
	require.NoError(t, e.BeginImport("a.mld"))
	err := e.BeginImport("a.mld")
	require.Error(t, err)
	var ci *errors.CircularImport
	require.ErrorAs(t, err, &ci)
}

func TestChildSharesImportStackWithParent(t *testing.T) {
	parent := newTestRoot()
	child := parent.CreateChild("")
	require.NoError(t, parent.BeginImport("a.mld"))
	err := child.BeginImport("a.mld")
	require.Error(t, err, "child must see parent's in-flight import for cycle detection")
}
