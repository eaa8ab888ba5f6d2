// Package completion classifies a model response into a loop verdict.
//
// Explicit markers are authoritative. Implicit detection is a best-effort
// heuristic over free-form text and only ever yields a lower-confidence
// phase_complete; callers should treat it as advisory.
package completion

import (
	"regexp"
	"strings"
)

// Kind is the classification of a single response.
type Kind string

const (
	KindContinue       Kind = "continue"
	KindPhaseComplete  Kind = "phase_complete"
	KindTaskComplete   Kind = "task_complete"
	KindNeedsUserInput Kind = "needs_user_input"
)

// Verdict is the result of one detection pass. It is consumed immediately
// and never persisted.
type Verdict struct {
	Kind       Kind
	Reason     string
	Confidence float64
	Explicit   bool
	Marker     string // matched marker or pattern
}

// Signals are side-channel hints about a response, supplied by the caller.
type Signals struct {
	// NoProposedActions is set when the caller knows the response proposes
	// no further work.
	NoProposedActions bool
}

type markerFamily struct {
	kind    Kind
	reason  string
	markers []string
}

// explicitFamilies is ordered by priority.
var explicitFamilies = []markerFamily{
	{
		kind:   KindNeedsUserInput,
		reason: "model requested user input",
		markers: []string{
			"[NEEDS_USER_INPUT]",
			"[NEEDS USER INPUT]",
			"NEEDS_USER_INPUT",
			"<NEEDS_USER_INPUT>",
			"[WAITING_FOR_USER]",
		},
	},
	{
		kind:   KindPhaseComplete,
		reason: "model marked phase complete",
		markers: []string{
			"[PHASE_COMPLETE]",
			"[PHASE COMPLETE]",
			"PHASE_COMPLETE",
			"<PHASE_COMPLETE>",
		},
	},
	{
		kind:   KindTaskComplete,
		reason: "model marked task complete",
		markers: []string{
			"[TASK_COMPLETE]",
			"[TASK COMPLETE]",
			"TASK_COMPLETE",
			"<TASK_COMPLETE>",
		},
	},
}

type implicitPattern struct {
	re         *regexp.Regexp
	confidence float64
	reason     string
}

var implicitPatterns = []implicitPattern{
	{regexp.MustCompile(`(?i)all\s+tests?\s+pass`), 0.7, "all tests pass"},
	{regexp.MustCompile(`(?i)tests?\s+passed`), 0.6, "tests passed"},
	{regexp.MustCompile(`(?i)implementation\s+is\s+complete`), 0.8, "implementation is complete"},
	{regexp.MustCompile(`(?i)feature\s+is\s+complete`), 0.8, "feature is complete"},
	{regexp.MustCompile(`(?i)successfully\s+implemented`), 0.7, "successfully implemented"},
	{regexp.MustCompile(`(?i)no\s+(more\s+)?changes?\s+(are\s+)?needed`), 0.8, "no more changes needed"},
	{regexp.MustCompile(`(?i)nothing\s+(more\s+)?(to|left\s+to)\s+do`), 0.8, "nothing left to do"},
}

// actionPatterns indicate the model is about to do more work; they suppress
// implicit completion.
var actionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(let\s+me|i('ll|\s+will)|going\s+to)\s+(create|write|implement|add|fix|update)`),
	regexp.MustCompile(`(?i)(need\s+to|should|must)\s+(create|write|implement|add|fix|update)`),
	regexp.MustCompile(`(?i)(creating|writing|implementing|adding|fixing|updating)\s+`),
	regexp.MustCompile(`(?i)next,?\s+(i('ll|\s+will)|we\s+should)`),
}

// noActionConfidence is used when only the NoProposedActions signal fires.
const noActionConfidence = 0.5

// DetectExplicit scans for explicit markers, case-insensitively, honoring
// needs_user_input > phase_complete > task_complete.
func DetectExplicit(text string) (Verdict, bool) {
	upper := strings.ToUpper(text)
	for _, fam := range explicitFamilies {
		for _, m := range fam.markers {
			if strings.Contains(upper, m) {
				return Verdict{
					Kind:       fam.kind,
					Reason:     fam.reason,
					Confidence: 1.0,
					Explicit:   true,
					Marker:     m,
				}, true
			}
		}
	}
	return Verdict{}, false
}

// ProposesAction reports whether text announces further work.
func ProposesAction(text string) bool {
	for _, re := range actionPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// DetectImplicit applies the heuristic patterns. A match yields
// phase_complete with the highest matching confidence; ties keep the
// earliest pattern.
func DetectImplicit(text string, sig Signals) (Verdict, bool) {
	if ProposesAction(text) {
		return Verdict{}, false
	}

	best := Verdict{}
	found := false
	for _, p := range implicitPatterns {
		if p.re.MatchString(text) && (!found || p.confidence > best.Confidence) {
			best = Verdict{
				Kind:       KindPhaseComplete,
				Reason:     "inferred: " + p.reason,
				Confidence: p.confidence,
				Marker:     p.re.String(),
			}
			found = true
		}
	}
	if found {
		return best, true
	}

	if sig.NoProposedActions {
		return Verdict{
			Kind:       KindPhaseComplete,
			Reason:     "inferred: no further actions proposed",
			Confidence: noActionConfidence,
		}, true
	}
	return Verdict{}, false
}

// Detector composes explicit and implicit detection. The zero value only
// honors explicit markers.
type Detector struct {
	Implicit      bool
	MinConfidence float64
}

// NewDetector returns a Detector with implicit detection enabled.
func NewDetector(minConfidence float64) Detector {
	return Detector{Implicit: true, MinConfidence: minConfidence}
}

// Detect returns the verdict for one response. It is a pure function of
// its inputs.
func (d Detector) Detect(text string, sig Signals) Verdict {
	if v, ok := DetectExplicit(text); ok {
		return v
	}
	if d.Implicit {
		if v, ok := DetectImplicit(text, sig); ok && v.Confidence >= d.MinConfidence {
			return v
		}
	}
	return Verdict{Kind: KindContinue, Reason: "no completion signal"}
}
