package skills

import (
	"context"

	"github.com/Avacaato/loop-orchestration/internal/prompts"
	"github.com/Avacaato/loop-orchestration/internal/tools"
)

type reviewer struct{ base }

// NewReviewer returns the review skill. It is not bound to a phase.
func NewReviewer(p *prompts.Registry) Skill {
	return &reviewer{newBase(p, Reviewer, "Reviews the workspace for bugs and quality issues",
		tools.SearchFiles, tools.ReadFile)}
}

func (s *reviewer) BuildPrompt(ctx context.Context, c Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	pb := s.builder(c)
	if files, ok := s.invokeTool(ctx, c, tools.SearchFiles, tools.Args{"pattern": "*"}); ok {
		pb.AddSection(sectionWorkspace, files)
	}
	return pb.Build()
}
