package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectExplicit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Kind
	}{
		{"task marker", "All done. [TASK_COMPLETE]", KindTaskComplete},
		{"task spaced", "[task complete]", KindTaskComplete},
		{"phase marker", "Research done [PHASE_COMPLETE]", KindPhaseComplete},
		{"phase xml", "<phase_complete>", KindPhaseComplete},
		{"needs input", "Which database? [NEEDS_USER_INPUT]", KindNeedsUserInput},
		{"waiting", "[WAITING_FOR_USER]", KindNeedsUserInput},
		{"input beats phase", "[PHASE_COMPLETE] but [NEEDS_USER_INPUT]", KindNeedsUserInput},
		{"phase beats task", "[TASK_COMPLETE] [PHASE_COMPLETE]", KindPhaseComplete},
		{"input beats task", "[TASK_COMPLETE]\n[NEEDS USER INPUT]", KindNeedsUserInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := DetectExplicit(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, v.Kind)
			assert.True(t, v.Explicit)
			assert.Equal(t, 1.0, v.Confidence)
		})
	}

	_, ok := DetectExplicit("still working on it")
	assert.False(t, ok)
}

func TestDetectImplicit(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		sig        Signals
		wantOK     bool
		confidence float64
	}{
		{"tests pass", "Ran the suite, all tests pass.", Signals{}, true, 0.7},
		{"highest wins", "Tests passed and the implementation is complete.", Signals{}, true, 0.8},
		{"nothing left", "There is nothing left to do here.", Signals{}, true, 0.8},
		{"suppressed by action", "All tests pass. Next, I'll add pagination.", Signals{}, false, 0},
		{"suppressed by intent", "Tests passed but I need to fix the linter.", Signals{}, false, 0},
		{"no signal", "Here is the schema I drafted.", Signals{}, false, 0},
		{"no actions signal", "Here is the schema I drafted.", Signals{NoProposedActions: true}, true, noActionConfidence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := DetectImplicit(tt.text, tt.sig)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, KindPhaseComplete, v.Kind)
			assert.False(t, v.Explicit)
			assert.Equal(t, tt.confidence, v.Confidence)
		})
	}
}

func TestDetectorComposition(t *testing.T) {
	d := NewDetector(0.7)

	assert.Equal(t, KindTaskComplete, d.Detect("Build a todo app finished [TASK_COMPLETE]", Signals{}).Kind)
	assert.Equal(t, KindPhaseComplete, d.Detect("The implementation is complete.", Signals{}).Kind)
	assert.Equal(t, KindContinue, d.Detect("tests passed", Signals{}).Kind, "0.6 is below threshold")
	assert.Equal(t, KindContinue, d.Detect("Let me write the handler.", Signals{}).Kind)

	explicitOnly := Detector{}
	assert.Equal(t, KindContinue, explicitOnly.Detect("The implementation is complete.", Signals{}).Kind)
}

func TestDetectorIsDeterministic(t *testing.T) {
	d := NewDetector(0.5)
	inputs := []string{
		"[PHASE_COMPLETE] and [NEEDS_USER_INPUT]",
		"all tests pass",
		"I'll implement the next story",
		"",
	}
	for _, in := range inputs {
		first := d.Detect(in, Signals{})
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, d.Detect(in, Signals{}), "input %q", in)
		}
	}
}
