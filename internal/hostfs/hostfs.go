// Package hostfs implements spec §6's Filesystem and PathService
// collaborators against the real OS filesystem, grounded on the
// plain os/filepath usage scattered through the teacher's
// runtime/executor/context.go and decorators/builtin/workdir.go.
package hostfs

import (
	"os"
	"path/filepath"

	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/iface"
	"github.com/mlld-lang/mlld-go/internal/security"
)

// FS implements iface.Filesystem against the local disk.
type FS struct{}

func (FS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (FS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (FS) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func (FS) Dirname(path string) string { return filepath.Dir(path) }

func (FS) Join(parts ...string) string { return filepath.Join(parts...) }

func (FS) Normalize(path string) string { return filepath.Clean(path) }

// PathService implements iface.PathService: resolves a raw input
// (relative path, absolute path, or URL) against a base directory,
// and validates URLs against the configured policy.
type PathService struct {
	FS FS
}

func (p PathService) ResolvePath(input string, ctx iface.PathContext) (iface.MeldPath, error) {
	if security.IsURL(input) {
		if !ctx.AllowURL {
			return iface.MeldPath{}, errors.New(errors.KindURLPolicyViolation, errors.Location{}, "import", "URL not permitted in this context: %s", input)
		}
		return iface.MeldPath{OriginalValue: input, ValidatedPath: input, ContentType: iface.ContentURL}, nil
	}

	resolved := input
	if !filepath.IsAbs(resolved) && ctx.BasePath != "" {
		base := ctx.BasePath
		if !p.FS.Exists(base) || !isDir(base) {
			base = filepath.Dir(base)
		}
		resolved = filepath.Join(base, input)
	}
	resolved = filepath.Clean(resolved)
	if !p.FS.Exists(resolved) {
		return iface.MeldPath{}, errors.New(errors.KindPathNotFound, errors.Location{}, "import", "path not found: %s", resolved)
	}
	return iface.MeldPath{OriginalValue: input, ValidatedPath: resolved, ContentType: iface.ContentFile}, nil
}

func (p PathService) ValidateURL(raw string, opts iface.URLPolicy) error {
	return security.ValidateURL(raw, opts)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
