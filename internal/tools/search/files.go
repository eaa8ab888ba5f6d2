// Package search finds workspace files by glob pattern.
package search

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/Avacaato/loop-orchestration/internal/tools/filesystem"
)

// DefaultLimit caps the number of results returned by Files.
const DefaultLimit = 200

// Result holds matched paths and whether the limit cut them short.
type Result struct {
	Pattern   string
	Paths     []string
	Truncated bool
}

// Files returns root-relative paths matching pattern. Patterns use
// path.Match syntax per segment plus "**" for any number of directories,
// e.g. "src/**/*.go". A pattern without a slash matches base names at any
// depth. Ignored files are never returned.
func Files(root *filesystem.Root, pattern string, limit int) (Result, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return Result{}, fmt.Errorf("search pattern must not be empty")
	}
	if _, err := path.Match(strings.ReplaceAll(pattern, "**", "*"), ""); err != nil {
		return Result{}, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if !strings.Contains(pattern, "/") {
		pattern = "**/" + pattern
	}

	res := Result{Pattern: pattern}
	err := root.Walk(func(rel string) error {
		if !Match(pattern, rel) {
			return nil
		}
		if len(res.Paths) >= limit {
			res.Truncated = true
			return fs.SkipAll
		}
		res.Paths = append(res.Paths, rel)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to search files: %w", err)
	}
	return res, nil
}

// Match reports whether a slash-separated path matches a glob with
// optional "**" segments.
func Match(pattern, name string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchSegments(pat, parts []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			rest := pat[1:]
			for i := 0; i <= len(parts); i++ {
				if matchSegments(rest, parts[i:]) {
					return true
				}
			}
			return false
		}
		if len(parts) == 0 {
			return false
		}
		ok, err := path.Match(pat[0], parts[0])
		if err != nil || !ok {
			return false
		}
		pat, parts = pat[1:], parts[1:]
	}
	return len(parts) == 0
}
