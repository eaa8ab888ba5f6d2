package filesystem

import (
	"fmt"
	"path/filepath"
)

// WriteFile creates or replaces a root-relative file, creating parent
// directories as needed. It returns the number of bytes written.
func (r *Root) WriteFile(rel, content string) (int, error) {
	full, err := r.Resolve(rel)
	if err != nil {
		return 0, err
	}
	if full == r.dir {
		return 0, fmt.Errorf("cannot write to the project root itself")
	}

	if err := r.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := r.fs.WriteFile(full, []byte(content), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return len(content), nil
}
