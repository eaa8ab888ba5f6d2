package skills

import (
	"context"

	"github.com/Avacaato/loop-orchestration/internal/prompts"
)

type prdInterviewer struct{ base }

// NewPRDInterviewer returns the skill that interviews the user and writes
// the requirements and stories.
func NewPRDInterviewer(p *prompts.Registry) Skill {
	return &prdInterviewer{newBase(p, PRDInterviewer, "Gathers requirements and writes the PRD and stories")}
}

func (s *prdInterviewer) BuildPrompt(ctx context.Context, c Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.builder(c).Build()
}
