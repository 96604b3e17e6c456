package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/security"
)

func TestImportStackDetectsCircularImport(t *testing.T) {
	stack := security.NewImportStack()
	require.NoError(t, stack.Begin("a.mld"))
	require.NoError(t, stack.Begin("b.mld"))

	err := stack.Begin("a.mld")
	require.Error(t, err)
	var ci *errors.CircularImport
	require.ErrorAs(t, err, &ci)
}

func TestImportStackNormalizesBackslashes(t *testing.T) {
	stack := security.NewImportStack()
	require.NoError(t, stack.Begin("dir/a.mld"))
	err := stack.Begin(`dir\a.mld`)
	assert.Error(t, err, "backslash and forward-slash paths must be treated as the same path")
}

func TestImportStackEndAlwaysPopsOnErrorPath(t *testing.T) {
	stack := security.NewImportStack()
	require.NoError(t, stack.Begin("a.mld"))
	func() {
		defer stack.End("a.mld")
		_ = stack.Begin("a.mld") // would error, but defer still pops
	}()
	assert.False(t, stack.Contains("a.mld"))
}

func TestResolutionStackDetectsCircularExecutable(t *testing.T) {
	stack := security.NewResolutionStack()
	require.NoError(t, stack.Begin("foo"))
	err := stack.Begin("foo")
	require.Error(t, err)
	var ee *errors.EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, errors.KindCircularExecutable, ee.Kind)
}
