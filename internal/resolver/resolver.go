// Package resolver implements spec §6's ResolverManager collaborator:
// a registry of named resolvers (local prefixes, @user/module
// registry references, GitHub, HTTP) consulted by import resolution
// (spec §4.4.3 step 1). Grounded on the teacher's registry-versioned
// module lookups; semver comparison for registry-pinned references
// uses golang.org/x/mod/semver, the same module-version library the
// rest of the pack's tooling commands rely on.
package resolver

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/iface"
)

// Manager is a straightforward in-memory ResolverManager: resolvers
// are tried in registration order against the reference's prefix.
type Manager struct {
	resolvers []iface.Resolver
}

func NewManager() *Manager { return &Manager{} }

func (m *Manager) RegisterResolver(r iface.Resolver) {
	m.resolvers = append(m.resolvers, r)
}

// Resolve implements iface.ResolverManager.Resolve: the first
// registered resolver whose Name() prefixes reference handles it.
func (m *Manager) Resolve(ctx context.Context, reference string, opts iface.ResolveOptions) (iface.ResolverContent, error) {
	for _, r := range m.resolvers {
		if strings.HasPrefix(reference, r.Name()) {
			return r.Resolve(ctx, reference, opts)
		}
	}
	return iface.ResolverContent{}, errors.New(errors.KindPathNotFound, errors.Location{}, "import",
		"no resolver registered for %q", reference)
}

// ParsePinnedVersion splits a "@user/module@v1.2.3" reference into its
// base reference and pinned version, validating the version with
// semver so malformed pins fail fast instead of silently resolving
// the latest registry entry.
func ParsePinnedVersion(reference string) (base, version string, pinned bool) {
	idx := strings.LastIndex(reference, "@")
	if idx <= 0 {
		return reference, "", false
	}
	candidate := reference[idx+1:]
	if !semver.IsValid("v" + strings.TrimPrefix(candidate, "v")) {
		return reference, "", false
	}
	return reference[:idx], candidate, true
}

// SelectLatest returns the highest semver-valid version among
// candidates, per the lockfile's registry version-resolution rule.
func SelectLatest(candidates []string) (string, bool) {
	valid := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if semver.IsValid("v" + strings.TrimPrefix(c, "v")) {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return "", false
	}
	sort.Slice(valid, func(i, j int) bool {
		return semver.Compare("v"+strings.TrimPrefix(valid[i], "v"), "v"+strings.TrimPrefix(valid[j], "v")) < 0
	})
	return valid[len(valid)-1], true
}

// LockFile is a minimal in-memory iface.LockFile: registry
// configuration set at startup, plus a content-addressed store for
// verified module bodies (spec §4.7 "immutable content-addressed
// cache").
type LockFile struct {
	registries map[string]string
	content    map[string]string
}

func NewLockFile() *LockFile {
	return &LockFile{registries: map[string]string{}, content: map[string]string{}}
}

func (l *LockFile) ConfigureRegistry(prefix, registry string) { l.registries[prefix] = registry }

func (l *LockFile) RegistryFor(reference string) (string, bool) {
	for prefix, registry := range l.registries {
		if strings.HasPrefix(reference, prefix) {
			return registry, true
		}
	}
	return "", false
}

func (l *LockFile) Get(contentHash string) (string, bool) {
	c, ok := l.content[contentHash]
	return c, ok
}

func (l *LockFile) Put(contentHash, content string) { l.content[contentHash] = content }
