package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathValidator(t *testing.T) {
	_, err := NewPathValidator("")
	assert.Error(t, err)

	v, err := NewPathValidator("relative/dir")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(v.Dir()))
}

func TestPathValidator_Resolve(t *testing.T) {
	dir := t.TempDir()
	v, err := NewPathValidator(dir)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		outside bool
		wantErr bool
	}{
		{name: "relative file", path: "forms/a.pdf", want: filepath.Join(dir, "forms", "a.pdf")},
		{name: "absolute inside", path: filepath.Join(dir, "b.pdf"), want: filepath.Join(dir, "b.pdf")},
		{name: "directory itself", path: dir, want: dir},
		{name: "null bytes stripped", path: "c\x00.pdf", want: filepath.Join(dir, "c.pdf")},
		{name: "parent traversal", path: "../escape.pdf", outside: true},
		{name: "absolute outside", path: "/etc/passwd", outside: true},
		{name: "sibling prefix", path: dir + "-other/x.pdf", outside: true},
		{name: "empty", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(tt.path)
			switch {
			case tt.outside:
				assert.True(t, errors.Is(err, ErrOutsideDirectory), "got %v", err)
			case tt.wantErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPathValidator_SymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.pdf")
	require.NoError(t, os.WriteFile(target, []byte("%PDF-1.4"), 0o600))

	link := filepath.Join(dir, "link.pdf")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	v, err := NewPathValidator(dir)
	require.NoError(t, err)
	assert.False(t, v.Within(link))
	_, err = v.Resolve("link.pdf")
	assert.True(t, errors.Is(err, ErrOutsideDirectory))
}

func TestPathValidator_EnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	v, err := NewPathValidator(dir)
	require.NoError(t, err)
	require.NoError(t, v.EnsureDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
