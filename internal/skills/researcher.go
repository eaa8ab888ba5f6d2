package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/Avacaato/loop-orchestration/internal/prompts"
	"github.com/Avacaato/loop-orchestration/internal/tools"
)

// manifests are checked in order; the first readable one is included.
var manifests = []string{
	"README.md",
	"go.mod",
	"package.json",
	"pyproject.toml",
	"Cargo.toml",
	"requirements.txt",
	"pom.xml",
}

const maxManifestChars = 4000

type researcher struct{ base }

// NewResearcher returns the skill that explores the workspace.
func NewResearcher(p *prompts.Registry) Skill {
	return &researcher{newBase(p, Researcher, "Explores the codebase and documents findings",
		tools.ListDir, tools.ReadFile, tools.SearchFiles)}
}

func (s *researcher) BuildPrompt(ctx context.Context, c Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	pb := s.builder(c)

	var ws strings.Builder
	if listing, ok := s.invokeTool(ctx, c, tools.ListDir, tools.Args{"path": "."}); ok {
		fmt.Fprintf(&ws, "Project root:\n%s\n", listing)
	}
	for _, name := range manifests {
		content, ok := s.invokeTool(ctx, c, tools.ReadFile, tools.Args{"path": name})
		if !ok {
			continue
		}
		if len(content) > maxManifestChars {
			content = content[:maxManifestChars] + "\n[...]"
		}
		fmt.Fprintf(&ws, "\n### %s\n%s\n", name, content)
		break
	}
	pb.AddSection(sectionWorkspace, ws.String())

	return pb.Build()
}
