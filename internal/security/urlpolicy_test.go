package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlld-lang/mlld-go/internal/iface"
	"github.com/mlld-lang/mlld-go/internal/security"
)

func TestIsURL(t *testing.T) {
	assert.True(t, security.IsURL("https://example.com/mod.mld"))
	assert.True(t, security.IsURL("http://example.com/mod.mld"))
	assert.False(t, security.IsURL("./local/mod.mld"))
	assert.False(t, security.IsURL("mod.mld"))
}

func TestValidateURLRequiresHTTPS(t *testing.T) {
	policy := iface.URLPolicy{RequireHTTPS: true}
	assert.Error(t, security.ValidateURL("http://example.com", policy))
	assert.NoError(t, security.ValidateURL("https://example.com", policy))
}

func TestValidateURLBlocklistAndAllowlist(t *testing.T) {
	blocked := iface.URLPolicy{BlockedDomains: []string{"evil.com"}}
	assert.Error(t, security.ValidateURL("https://evil.com/x", blocked))
	assert.NoError(t, security.ValidateURL("https://good.com/x", blocked))

	allowed := iface.URLPolicy{AllowedDomains: []string{"good.com"}}
	assert.NoError(t, security.ValidateURL("https://good.com/x", allowed))
	assert.NoError(t, security.ValidateURL("https://sub.good.com/x", allowed))
	assert.Error(t, security.ValidateURL("https://other.com/x", allowed))
}

func TestRewriteGistURL(t *testing.T) {
	policy := iface.URLPolicy{RewriteGists: true}
	rewritten := security.RewriteGistURL("https://gist.github.com/user/abc123", policy)
	assert.Equal(t, "https://gist.github.com/user/abc123/raw", rewritten)

	assert.Equal(t, "https://gist.github.com/user/abc123", security.RewriteGistURL("https://gist.github.com/user/abc123", iface.URLPolicy{}))
}
