// Package security confines file access to a configured directory.
package security

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrOutsideDirectory is returned for paths that escape the configured directory
var ErrOutsideDirectory = errors.New("path is outside configured directory")

// PathValidator resolves user supplied paths against a configured directory
type PathValidator struct {
	dir string
}

// NewPathValidator creates a validator rooted at dir. The directory need not exist yet.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, errors.New("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve configured directory")
	}
	return &PathValidator{dir: filepath.Clean(abs)}, nil
}

// Dir returns the absolute configured directory
func (v *PathValidator) Dir() string { return v.dir }

// Resolve maps path to an absolute path inside the configured directory. Relative
// paths are taken relative to it. Null bytes are stripped; symlinks that lead out of
// the directory are rejected.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", errors.New("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.dir, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(err, "resolve path")
	}
	abs = filepath.Clean(abs)
	if !v.Within(abs) {
		return "", errors.Wrapf(ErrOutsideDirectory, "%s", path)
	}
	return abs, nil
}

// Within reports whether path, and the file it resolves to through symlinks, lie
// inside the configured directory
func (v *PathValidator) Within(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	abs = filepath.Clean(abs)

	roots := []string{v.dir}
	if real, err := filepath.EvalSymlinks(v.dir); err == nil && real != v.dir {
		roots = append(roots, real)
	}
	if !under(abs, roots) {
		return false
	}
	// an existing path must also resolve inside the directory
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return under(real, roots)
	} else if !os.IsNotExist(err) {
		return false
	}
	return true
}

func under(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// EnsureDir creates the configured directory if needed
func (v *PathValidator) EnsureDir() error {
	return errors.Wrap(os.MkdirAll(v.dir, 0o755), "create directory")
}
