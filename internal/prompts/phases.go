package prompts

// PhaseID returns the registry id of a phase entry prompt.
func PhaseID(phase string) string {
	return "phase." + phase
}

// Phase entry prompts. Available variables: {{task}}, {{phase}}.
var phasePrompts = []*Prompt{
	{
		ID:          PhaseID("prd"),
		Version:     PromptV1,
		Description: "Requirements interview",
		Content: `Phase: PRD. Do not write code in this phase.
Interview the user to pin down what "{{task}}" should be. Ask one question at a time and end every
question with [NEEDS_USER_INPUT] so the loop pauses for the answer. Cover: project name, the problem
it solves, who uses it (A. just me, B. my team, C. customers, D. public), the three most important
features, what success looks like, and what is out of scope.
Once every answer is in, write the PRD and mark [PHASE_COMPLETE].`,
	},
	{
		ID:          PhaseID("tickets"),
		Version:     PromptV1,
		Description: "Break the PRD into stories",
		Content: `Phase: TICKETS. Read the PRD in <prior_outputs> and split it into small user stories that each fit
in one coding session. Order them by dependency: storage first, then backend, then frontend.
Give every story an id, a title and acceptance criteria. Mark [PHASE_COMPLETE] when the list is final.`,
	},
	{
		ID:          PhaseID("research"),
		Version:     PromptV1,
		Description: "Explore the codebase",
		Content: `Phase: RESEARCH. Study the workspace in <workspace> to learn its architecture, conventions and
dependencies, and the files the stories will touch. Record constraints and open risks.
Mark [PHASE_COMPLETE] when you know enough to plan the work for "{{task}}".`,
	},
	{
		ID:          PhaseID("planning"),
		Version:     PromptV1,
		Description: "Plan the implementation",
		Content: `Phase: PLANNING. Using the stories and research findings in <prior_outputs>, write an
implementation plan: files to create or modify, order of changes, tests to add, and risks.
Mark [PHASE_COMPLETE] when the plan is clear.`,
	},
	{
		ID:          PhaseID("implementation"),
		Version:     PromptV1,
		Description: "Implement the plan",
		Content: `Phase: IMPLEMENTATION. Follow the plan in <prior_outputs> story by story. Write clean, tested code,
run the tests and fix failures (latest results are in <verification>). Mark each story done as you go.
Mark [PHASE_COMPLETE] when every story is implemented and the tests pass.`,
	},
	{
		ID:          PhaseID("refactoring"),
		Version:     PromptV1,
		Description: "Improve code quality",
		Content: `Phase: REFACTORING. Review what was built for duplication, unclear names, missing error handling
and obvious performance problems. Improve it without changing behaviour and re-run the tests after
every change. Mark [TASK_COMPLETE] when the code quality is satisfactory.`,
	},
}
