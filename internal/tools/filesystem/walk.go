package filesystem

import (
	"io/fs"
	"path/filepath"
)

// Walk visits every non-ignored file under the root, in lexical order,
// calling fn with its root-relative slash path. Returning fs.SkipAll from
// fn stops the walk.
func (r *Root) Walk(fn func(rel string) error) error {
	err := r.fs.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == r.dir {
			return nil
		}

		rel := r.rel(path)
		if d.IsDir() {
			if r.Ignored(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if r.Ignored(rel) {
			return nil
		}
		return fn(rel)
	})
	if err == fs.SkipAll {
		return nil
	}
	return err
}
