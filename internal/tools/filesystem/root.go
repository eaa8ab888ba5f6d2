// Package filesystem implements workspace-confined file tools.
package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// ErrOutsideRoot is returned for paths that escape the workspace.
var ErrOutsideRoot = errors.New("path is outside the project root")

// defaultIgnores are skipped even without a .gitignore.
var defaultIgnores = []string{".git/", "node_modules/", "__pycache__/", ".venv/"}

// Root is a project directory every file tool is confined to.
type Root struct {
	dir     string
	fs      FileSystem
	matcher *gitignore.GitIgnore
}

// NewRoot opens dir as a workspace root, honoring its .gitignore if present.
func NewRoot(dir string) (*Root, error) {
	return NewRootWithFS(dir, OSFileSystem{})
}

// NewRootWithFS is NewRoot with an explicit FileSystem.
func NewRootWithFS(dir string, fsys FileSystem) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	info, err := fsys.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", abs)
	}

	lines := append([]string{}, defaultIgnores...)
	if data, err := fsys.ReadFile(filepath.Join(abs, ".gitignore")); err == nil {
		lines = append(lines, strings.Split(string(data), "\n")...)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .gitignore: %w", err)
	}

	return &Root{
		dir:     abs,
		fs:      fsys,
		matcher: gitignore.CompileIgnoreLines(lines...),
	}, nil
}

// Dir returns the absolute root directory.
func (r *Root) Dir() string {
	return r.dir
}

// Resolve maps a root-relative path to an absolute one, rejecting escapes.
func (r *Root) Resolve(rel string) (string, error) {
	full := filepath.Clean(filepath.Join(r.dir, rel))
	back, err := filepath.Rel(r.dir, full)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return full, nil
}

// Ignored reports whether a root-relative path is excluded by .gitignore
// or the built-in ignore list.
func (r *Root) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return false
	}
	return r.matcher.MatchesPath(rel)
}

func (r *Root) rel(full string) string {
	rel, err := filepath.Rel(r.dir, full)
	if err != nil {
		return full
	}
	return filepath.ToSlash(rel)
}
