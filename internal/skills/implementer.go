package skills

import (
	"context"

	"github.com/Avacaato/loop-orchestration/internal/prompts"
	"github.com/Avacaato/loop-orchestration/internal/tools"
)

// verifying is shared by the skills that report the verification
// command's result back to the model.
type verifying struct{ base }

func (s *verifying) BuildPrompt(ctx context.Context, c Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	pb := s.builder(c)
	if c.VerifyCommand != "" {
		// A failing command is still useful context, so ok is ignored.
		out, _ := s.invokeTool(ctx, c, tools.RunCommand, tools.Args{"command": c.VerifyCommand})
		pb.AddSection(sectionVerification, out)
	}
	return pb.Build()
}

// NewImplementer returns the skill that implements stories.
func NewImplementer(p *prompts.Registry) Skill {
	return &verifying{newBase(p, Implementer, "Implements stories and fixes failing tests",
		tools.ReadFile, tools.WriteFile, tools.ListDir, tools.RunCommand)}
}

// NewRefactorer returns the skill that improves code without changing
// behaviour.
func NewRefactorer(p *prompts.Registry) Skill {
	return &verifying{newBase(p, Refactorer, "Improves code quality without changing behaviour",
		tools.ReadFile, tools.WriteFile, tools.SearchFiles, tools.RunCommand)}
}
