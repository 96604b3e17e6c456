package hostfs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-go/internal/hostfs"
	"github.com/mlld-lang/mlld-go/internal/iface"
)

func TestFSReadWriteExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.mld")

	fs := hostfs.FS{}
	assert.False(t, fs.Exists(path))
	require.NoError(t, fs.WriteFile(path, []byte("hello")))
	assert.True(t, fs.Exists(path))

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, dir, fs.Dirname(path))
}

func TestPathServiceResolvesRelativeToBase(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "mod.mld")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	svc := hostfs.PathService{FS: hostfs.FS{}}
	mp, err := svc.ResolvePath("mod.mld", iface.PathContext{BasePath: dir})
	require.NoError(t, err)
	assert.Equal(t, target, mp.ValidatedPath)
	assert.Equal(t, iface.ContentFile, mp.ContentType)
}

func TestPathServiceRejectsMissingPath(t *testing.T) {
	svc := hostfs.PathService{FS: hostfs.FS{}}
	_, err := svc.ResolvePath("does-not-exist.mld", iface.PathContext{BasePath: t.TempDir()})
	assert.Error(t, err)
}

func TestPathServiceRejectsURLWithoutAllowURL(t *testing.T) {
	svc := hostfs.PathService{FS: hostfs.FS{}}
	_, err := svc.ResolvePath("https://example.com/mod.mld", iface.PathContext{})
	assert.Error(t, err)
}

func TestPathServiceAllowsURLWhenPermitted(t *testing.T) {
	svc := hostfs.PathService{FS: hostfs.FS{}}
	mp, err := svc.ResolvePath("https://example.com/mod.mld", iface.PathContext{AllowURL: true})
	require.NoError(t, err)
	assert.Equal(t, iface.ContentURL, mp.ContentType)
}
