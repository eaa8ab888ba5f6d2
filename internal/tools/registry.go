// Package tools exposes the workspace operations that skills may use
// while building prompts: file access, file search and shell commands.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Avacaato/loop-orchestration/internal/tools/execution"
	"github.com/Avacaato/loop-orchestration/internal/tools/filesystem"
	"github.com/Avacaato/loop-orchestration/internal/tools/search"
)

// Tool names registered by NewRegistry.
const (
	ReadFile    = "read_file"
	WriteFile   = "write_file"
	ListDir     = "list_dir"
	SearchFiles = "search_files"
	RunCommand  = "run_command"
)

// Args are the string arguments passed to a tool.
type Args map[string]string

// Result is the uniform outcome of a tool invocation.
type Result struct {
	Success bool
	Output  string
	Error   string
}

func ok(output string) Result { return Result{Success: true, Output: output} }

func fail(err error) Result { return Result{Error: err.Error()} }

// Fn implements one tool.
type Fn func(ctx context.Context, args Args) Result

// Tool is a named workspace operation.
type Tool struct {
	Name        string
	Description string
	Fn          Fn
}

// Registry maps tool names to implementations.
type Registry struct {
	tools map[string]Tool
	root  *filesystem.Root
}

// NewRegistry registers the workspace tools rooted at root. Commands
// run through shell.
func NewRegistry(root *filesystem.Root, shell *execution.Shell) *Registry {
	r := &Registry{tools: make(map[string]Tool), root: root}

	r.Register(Tool{
		Name:        ReadFile,
		Description: "Read a text file relative to the project root (args: path)",
		Fn: func(ctx context.Context, args Args) Result {
			content, err := root.ReadFile(args["path"])
			if err != nil {
				return fail(err)
			}
			return ok(content)
		},
	})
	r.Register(Tool{
		Name:        WriteFile,
		Description: "Write a file relative to the project root, creating parent directories (args: path, content)",
		Fn: func(ctx context.Context, args Args) Result {
			n, err := root.WriteFile(args["path"], args["content"])
			if err != nil {
				return fail(err)
			}
			return ok(fmt.Sprintf("wrote %d bytes to %s", n, args["path"]))
		},
	})
	r.Register(Tool{
		Name:        ListDir,
		Description: "List a directory relative to the project root (args: path)",
		Fn: func(ctx context.Context, args Args) Result {
			entries, err := root.ListDir(args["path"])
			if err != nil {
				return fail(err)
			}
			return ok(filesystem.FormatEntries(entries))
		},
	})
	r.Register(Tool{
		Name:        SearchFiles,
		Description: "Find files matching a glob pattern such as *.go or src/**/*.ts (args: pattern, limit)",
		Fn: func(ctx context.Context, args Args) Result {
			limit := search.DefaultLimit
			if s := args["limit"]; s != "" {
				n, err := strconv.Atoi(s)
				if err != nil {
					return fail(fmt.Errorf("invalid limit %q: %w", s, err))
				}
				limit = n
			}
			res, err := search.Files(root, args["pattern"], limit)
			if err != nil {
				return fail(err)
			}
			out := strings.Join(res.Paths, "\n")
			if res.Truncated {
				out += fmt.Sprintf("\n[results truncated at %d]", limit)
			}
			return ok(out)
		},
	})
	r.Register(Tool{
		Name:        RunCommand,
		Description: "Run a shell command in the project root (args: command)",
		Fn: func(ctx context.Context, args Args) Result {
			res, err := shell.Run(ctx, args["command"])
			if err != nil {
				return fail(err)
			}
			if !res.Success() {
				return Result{Output: res.String(), Error: "command did not succeed"}
			}
			return ok(res.String())
		},
	})

	return r
}

// NewDefaultRegistry builds a registry for the project at dir using the
// host shell.
func NewDefaultRegistry(dir string, timeout time.Duration) (*Registry, error) {
	root, err := filesystem.NewRoot(dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(root, execution.NewShell(root.Dir(), timeout)), nil
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name] = t
}

// Root returns the project root the tools operate on.
func (r *Registry) Root() *filesystem.Root {
	return r.root
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named tool. Unknown tools and tool failures are
// reported in the Result rather than as Go errors.
func (r *Registry) Invoke(ctx context.Context, name string, args Args) Result {
	t, found := r.tools[name]
	if !found {
		return Result{Error: fmt.Sprintf("unknown tool %q", name)}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	return t.Fn(ctx, args)
}
