package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const stateFile = "state.json"

// Store persists sessions as one directory per id under a base directory.
// Writes go through a temp file and an atomic rename, so the canonical
// state.json always holds either the old or the new value.
type Store struct {
	basePath   string
	firstPhase string
	phases     map[string]struct{}
	logger     *slog.Logger

	// swapped in tests
	now    func() time.Time
	rename func(oldpath, newpath string) error
}

// NewStore creates a store rooted at basePath. phases is the ordered set of
// known phase names; new sessions start in phases[0] and loads reject any
// other name.
func NewStore(basePath string, phases []string, logger *slog.Logger) (*Store, error) {
	if basePath == "" {
		return nil, errors.New("session directory must not be empty")
	}
	if len(phases) == 0 {
		return nil, errors.New("at least one phase is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	known := make(map[string]struct{}, len(phases))
	for _, p := range phases {
		known[p] = struct{}{}
	}

	return &Store{
		basePath:   basePath,
		firstPhase: phases[0],
		phases:     known,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		rename:     os.Rename,
	}, nil
}

// BasePath returns the directory holding all sessions.
func (s *Store) BasePath() string {
	return s.basePath
}

// Dir returns the directory of one session.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.basePath, id)
}

func (s *Store) statePath(id string) string {
	return filepath.Join(s.basePath, id, stateFile)
}

// NewID returns a time-ordered, collision-resistant session id.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return id.String(), nil
}

// Create allocates and persists a new session in the first phase.
func (s *Store) Create(task, projectRoot string) (*Session, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, errors.New("task description must not be empty")
	}

	id, err := NewID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		SchemaVersion: SchemaVersion,
		ID:            id,
		Task:          task,
		ProjectRoot:   projectRoot,
		Phase:         s.firstPhase,
		Status:        StatusActive,
		PendingInput:  task,
		CreatedAt:     now,
		UpdatedAt:     now,
		History:       []Message{},
		PhaseOutputs:  map[string]PhaseOutput{},
		Metadata:      map[string]string{},
		Transitions:   []Transition{},
	}

	if err := s.Save(sess); err != nil {
		return nil, err
	}

	s.logger.Info("session created", "id", id, "phase", sess.Phase)
	return sess, nil
}

// Save writes the full session atomically.
func (s *Store) Save(sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("cannot save session without id")
	}
	if _, ok := s.phases[sess.Phase]; !ok {
		return fmt.Errorf("cannot save session %s: unknown phase %q", sess.ID, sess.Phase)
	}

	normalize(sess)
	sess.SchemaVersion = SchemaVersion
	sess.UpdatedAt = s.now()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	dir := s.Dir(sess.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newPersistenceError("create_dir", dir, err)
	}

	return s.writeAtomic(s.statePath(sess.ID), data)
}

func (s *Store) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return newPersistenceError("create_temp", dir, err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return newPersistenceError("write", tempPath, err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return newPersistenceError("sync", tempPath, err)
	}

	if err := tempFile.Close(); err != nil {
		return newPersistenceError("close", tempPath, err)
	}

	if err := s.rename(tempPath, path); err != nil {
		return newPersistenceError("rename", path, err)
	}
	success = true

	// Persist the directory entry as well. Not every platform supports it.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// Load reads and validates a session.
func (s *Store) Load(id string) (*Session, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	path := s.statePath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, newPersistenceError("read", path, err)
		}
		// A directory without a state file is a create that never committed.
		if info, statErr := os.Stat(s.Dir(id)); statErr == nil && info.IsDir() {
			return nil, &CorruptedError{ID: id, Path: path, Reason: "state file missing", Err: err}
		}
		return nil, &NotFoundError{ID: id}
	}

	return s.decode(id, path, data)
}

func (s *Store) decode(id, path string, data []byte) (*Session, error) {
	violations, err := validateStructure(data)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, corrupted(id, path, data, strings.Join(violations, "; "), nil)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, corrupted(id, path, data, "invalid json", err)
	}

	if sess.SchemaVersion != SchemaVersion {
		return nil, corrupted(id, path, data, fmt.Sprintf("unsupported schema version %d", sess.SchemaVersion), nil)
	}
	if sess.ID != id {
		return nil, corrupted(id, path, data, fmt.Sprintf("id mismatch: file holds %s", sess.ID), nil)
	}
	if _, ok := s.phases[sess.Phase]; !ok {
		return nil, corrupted(id, path, data, fmt.Sprintf("unknown phase %q", sess.Phase), nil)
	}

	normalize(&sess)
	return &sess, nil
}

// corrupted builds a CorruptedError, salvaging the task text when the
// raw file still decodes that far.
func corrupted(id, path string, data []byte, reason string, err error) *CorruptedError {
	var v summaryView
	_ = json.Unmarshal(data, &v)
	return &CorruptedError{ID: id, Path: path, Reason: reason, Task: v.Task, Err: err}
}

// summaryView decodes only the listing fields of a state file.
type summaryView struct {
	SchemaVersion int       `json:"schema_version"`
	ID            string    `json:"id"`
	Task          string    `json:"task"`
	Phase         string    `json:"phase"`
	Status        Status    `json:"status"`
	Iteration     int       `json:"iteration"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (v summaryView) summary() Summary {
	return Summary{
		ID:        v.ID,
		Task:      v.Task,
		Phase:     v.Phase,
		Status:    v.Status,
		Iteration: v.Iteration,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// List returns all readable sessions, most recently updated first.
// Corrupted entries are logged and skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.basePath)
	if errors.Is(err, fs.ErrNotExist) {
		return []Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list session directory: %w", err)
	}

	sessions := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		sum, err := s.readSummary(entry.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable session", "id", entry.Name(), "error", err)
			continue
		}
		sessions = append(sessions, sum)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	return sessions, nil
}

func (s *Store) readSummary(id string) (Summary, error) {
	path := s.statePath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, err
	}

	var v summaryView
	if err := json.Unmarshal(data, &v); err != nil {
		return Summary{}, &CorruptedError{ID: id, Path: path, Reason: "invalid json", Err: err}
	}
	if v.ID != id || v.SchemaVersion != SchemaVersion {
		return Summary{}, &CorruptedError{ID: id, Path: path, Reason: "missing id or schema version"}
	}
	if _, ok := s.phases[v.Phase]; !ok {
		return Summary{}, &CorruptedError{ID: id, Path: path, Reason: fmt.Sprintf("unknown phase %q", v.Phase)}
	}
	return v.summary(), nil
}

// Delete removes every persisted artifact of a session.
func (s *Store) Delete(id string) error {
	if err := validID(id); err != nil {
		return err
	}

	dir := s.Dir(id)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &NotFoundError{ID: id}
		}
		return newPersistenceError("stat", dir, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return newPersistenceError("delete", dir, err)
	}

	s.logger.Info("session deleted", "id", id)
	return nil
}

func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}

func normalize(sess *Session) {
	if sess.History == nil {
		sess.History = []Message{}
	}
	if sess.PhaseOutputs == nil {
		sess.PhaseOutputs = map[string]PhaseOutput{}
	}
	if sess.Metadata == nil {
		sess.Metadata = map[string]string{}
	}
	if sess.Transitions == nil {
		sess.Transitions = []Transition{}
	}
}
