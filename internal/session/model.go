package session

import (
	"time"

	"github.com/Avacaato/loop-orchestration/internal/llm"
)

// SchemaVersion is written into every state file and checked on load.
const SchemaVersion = 1

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive      Status = "active"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusFailed      Status = "failed"
)

// Terminal reports whether the loop must stop on this status.
func (s Status) Terminal() bool {
	return s != StatusActive
}

// Message is one entry of the append-only conversation history.
type Message struct {
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	Phase     string    `json:"phase"`
	Skill     string    `json:"skill,omitempty"`
	Iteration int       `json:"iteration"`
	Timestamp time.Time `json:"timestamp"`
}

// PhaseOutput is the latest skill output produced while in a phase.
type PhaseOutput struct {
	Skill     string    `json:"skill"`
	Content   string    `json:"content"`
	Iteration int       `json:"iteration"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transition records a phase change, automatic or manual.
type Transition struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Reason string    `json:"reason"`
	Manual bool      `json:"manual,omitempty"`
	At     time.Time `json:"at"`
}

// Session is the durable record of one workflow instance.
type Session struct {
	SchemaVersion int                    `json:"schema_version"`
	ID            string                 `json:"id"`
	Task          string                 `json:"task"`
	ProjectRoot   string                 `json:"project_root"`
	Phase         string                 `json:"phase"`
	Iteration     int                    `json:"iteration"`
	Status        Status                 `json:"status"`
	StatusReason  string                 `json:"status_reason,omitempty"`
	PendingInput  string                 `json:"pending_input,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	History       []Message              `json:"history"`
	PhaseOutputs  map[string]PhaseOutput `json:"phase_outputs"`
	Metadata      map[string]string      `json:"metadata"`
	Transitions   []Transition           `json:"transitions"`
}

// Summary is the lightweight listing form of a session.
type Summary struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	Phase     string    `json:"phase"`
	Status    Status    `json:"status"`
	Iteration int       `json:"iteration"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns the listing form of s.
func (s *Session) Summary() Summary {
	return Summary{
		ID:        s.ID,
		Task:      s.Task,
		Phase:     s.Phase,
		Status:    s.Status,
		Iteration: s.Iteration,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Append adds a message to the history. History is never rewritten.
func (s *Session) Append(m Message) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	s.History = append(s.History, m)
}

// PhaseHistory returns the messages recorded while in the given phase, in order.
func (s *Session) PhaseHistory(phase string) []Message {
	var out []Message
	for _, m := range s.History {
		if m.Phase == phase {
			out = append(out, m)
		}
	}
	return out
}

// SetStatus changes the status and records why.
func (s *Session) SetStatus(st Status, reason string) {
	s.Status = st
	s.StatusReason = reason
}

// SetOutput records the latest output for a phase.
func (s *Session) SetOutput(phase string, out PhaseOutput) {
	if s.PhaseOutputs == nil {
		s.PhaseOutputs = make(map[string]PhaseOutput)
	}
	s.PhaseOutputs[phase] = out
}

// SetMeta stores a free-form artifact reference.
func (s *Session) SetMeta(key, value string) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]string)
	}
	s.Metadata[key] = value
}

// LastAssistant returns the most recent assistant message content, if any.
func (s *Session) LastAssistant() (string, bool) {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == llm.RoleAssistant {
			return s.History[i].Content, true
		}
	}
	return "", false
}
