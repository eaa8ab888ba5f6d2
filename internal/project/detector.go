package project

import (
	"os"
	"path/filepath"
	"strings"
)

// Type is the detected language ecosystem of a project.
type Type string

const (
	TypeGo      Type = "go"
	TypeNode    Type = "node"
	TypePython  Type = "python"
	TypeRust    Type = "rust"
	TypeUnknown Type = "unknown"
)

var manifests = []struct {
	file string
	typ  Type
}{
	{"go.mod", TypeGo},
	{"package.json", TypeNode},
	{"pyproject.toml", TypePython},
	{"requirements.txt", TypePython},
	{"Cargo.toml", TypeRust},
}

var extensions = map[string]Type{
	".go":  TypeGo,
	".ts":  TypeNode,
	".tsx": TypeNode,
	".js":  TypeNode,
	".jsx": TypeNode,
	".py":  TypePython,
	".rs":  TypeRust,
}

// DetectType checks manifests first, then falls back to counting source
// file extensions in the project root. At least three files of one kind
// are needed for the fallback to decide.
func DetectType(root string) Type {
	for _, m := range manifests {
		if _, err := os.Stat(filepath.Join(root, m.file)); err == nil {
			return m.typ
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return TypeUnknown
	}
	counts := make(map[Type]int)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if t, ok := extensions[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			counts[t]++
		}
	}

	best, most := TypeUnknown, 0
	for _, t := range []Type{TypeGo, TypeNode, TypePython, TypeRust} {
		if counts[t] > most {
			best, most = t, counts[t]
		}
	}
	if most >= 3 {
		return best
	}
	return TypeUnknown
}

// TestCommand returns the shell command that runs a project's tests, or
// "" when the type is unknown.
func TestCommand(t Type) string {
	switch t {
	case TypeGo:
		return "go test ./..."
	case TypeNode:
		return "npm test"
	case TypePython:
		return "pytest"
	case TypeRust:
		return "cargo test"
	default:
		return ""
	}
}
