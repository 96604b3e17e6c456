package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-go/internal/iface"
	"github.com/mlld-lang/mlld-go/internal/resolver"
)

type stubResolver struct {
	name    string
	content string
}

func (s stubResolver) Name() string { return s.name }

func (s stubResolver) Resolve(ctx context.Context, reference string, opts iface.ResolveOptions) (iface.ResolverContent, error) {
	return iface.ResolverContent{Content: s.content}, nil
}

func TestManagerResolvesByPrefix(t *testing.T) {
	m := resolver.NewManager()
	m.RegisterResolver(stubResolver{name: "@user/", content: "hello"})

	out, err := m.Resolve(context.Background(), "@user/module", iface.ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Content)
}

func TestManagerResolveUnregisteredPrefixFails(t *testing.T) {
	m := resolver.NewManager()
	_, err := m.Resolve(context.Background(), "@other/module", iface.ResolveOptions{})
	assert.Error(t, err)
}

func TestParsePinnedVersion(t *testing.T) {
	base, version, pinned := resolver.ParsePinnedVersion("@user/module@1.2.3")
	assert.True(t, pinned)
	assert.Equal(t, "@user/module", base)
	assert.Equal(t, "1.2.3", version)

	base, _, pinned = resolver.ParsePinnedVersion("@user/module")
	assert.False(t, pinned)
	assert.Equal(t, "@user/module", base)

	_, _, pinned = resolver.ParsePinnedVersion("@user/module@not-a-version")
	assert.False(t, pinned)
}

func TestSelectLatest(t *testing.T) {
	latest, ok := resolver.SelectLatest([]string{"1.0.0", "2.1.0", "1.9.9"})
	require.True(t, ok)
	assert.Equal(t, "2.1.0", latest)

	_, ok = resolver.SelectLatest([]string{"not-a-version"})
	assert.False(t, ok)
}

func TestLockFile(t *testing.T) {
	l := resolver.NewLockFile()
	l.ConfigureRegistry("@user/", "https://registry.example.com")

	registry, ok := l.RegistryFor("@user/module")
	require.True(t, ok)
	assert.Equal(t, "https://registry.example.com", registry)

	_, ok = l.RegistryFor("@other/module")
	assert.False(t, ok)

	l.Put("hash123", "cached content")
	content, ok := l.Get("hash123")
	require.True(t, ok)
	assert.Equal(t, "cached content", content)
}
