// Package mediafs confines all local file access to the media root and
// rejects paths that would escape it.
package mediafs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Root is the directory under which originals and derivatives live.
type Root struct {
	base string
}

// New ensures the media root exists.
func New(base string) (*Root, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &Root{base: abs}, nil
}

// Path returns the absolute media root.
func (r *Root) Path() string {
	return r.base
}

// Resolve joins a relative path onto the root, rejecting traversal.
func (r *Root) Resolve(rel string) (string, error) {
	path := filepath.Clean(filepath.Join(r.base, rel))
	if path != r.base && !strings.HasPrefix(path, r.base+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes media root", rel)
	}
	return path, nil
}

// Contains reports whether an absolute path lies inside the root.
func (r *Root) Contains(abs string) bool {
	path := filepath.Clean(abs)
	return path != r.base && strings.HasPrefix(path, r.base+string(filepath.Separator))
}

// Save streams src to the given relative path, creating parent directories.
func (r *Root) Save(rel string, src io.Reader) (int64, error) {
	dst, err := r.Resolve(rel)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	return io.Copy(out, src)
}

// Exists reports whether a relative path exists under the root.
func (r *Root) Exists(rel string) (bool, error) {
	path, err := r.Resolve(rel)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
