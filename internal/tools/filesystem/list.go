package filesystem

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	units "github.com/docker/go-units"
)

// Entry is one item of a directory listing.
type Entry struct {
	Path  string // root-relative, slash separated
	IsDir bool
	Size  int64
}

// ListDir lists one directory level, skipping ignored entries.
// Directories sort before files.
func (r *Root) ListDir(rel string) ([]Entry, error) {
	full, err := r.Resolve(rel)
	if err != nil {
		return nil, err
	}

	dirEntries, err := r.fs.ReadDir(full)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		relPath := r.rel(filepath.Join(full, de.Name()))
		check := relPath
		if de.IsDir() {
			check += "/"
		}
		if r.Ignored(check) {
			continue
		}

		e := Entry{Path: relPath, IsDir: de.IsDir()}
		if !de.IsDir() {
			if info, err := de.Info(); err == nil {
				e.Size = info.Size()
			}
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// FormatEntries renders a listing the way it is shown to the model.
func FormatEntries(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		if e.IsDir {
			fmt.Fprintf(&b, "%s/\n", e.Path)
			continue
		}
		fmt.Fprintf(&b, "%s (%s)\n", e.Path, units.HumanSize(float64(e.Size)))
	}
	return strings.TrimRight(b.String(), "\n")
}
