package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-go/internal/security"
)

func TestApprovalGateSkipsPromptForCachedHash(t *testing.T) {
	cache := security.NewImmutableCache()
	calls := 0
	gate := &security.ApprovalGate{Cache: cache, Prompt: func(url, hash string) (bool, error) {
		calls++
		return true, nil
	}}

	require.NoError(t, gate.Check("https://example.com/a.mld", "content-a"))
	require.NoError(t, gate.Check("https://example.com/a.mld", "content-a"))
	assert.Equal(t, 1, calls, "second check of identical content must bypass the prompt")
}

func TestApprovalGateDeniedPromptFails(t *testing.T) {
	gate := &security.ApprovalGate{Cache: security.NewImmutableCache(), Prompt: func(url, hash string) (bool, error) {
		return false, nil
	}}
	assert.Error(t, gate.Check("https://example.com/a.mld", "content"))
}

func TestApprovalGateNilPromptTrustsContent(t *testing.T) {
	gate := &security.ApprovalGate{Cache: security.NewImmutableCache()}
	assert.NoError(t, gate.Check("file:///local.mld", "content"))
}

func TestContentHashDeterministic(t *testing.T) {
	assert.Equal(t, security.ContentHash([]byte("abc")), security.ContentHash([]byte("abc")))
	assert.NotEqual(t, security.ContentHash([]byte("abc")), security.ContentHash([]byte("abd")))
}
