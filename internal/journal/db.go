// Package journal keeps an append-only SQLite record of committed
// iterations and phase transitions across all sessions.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// IterationRecord is one committed iteration.
type IterationRecord struct {
	SessionID  string
	Iteration  int
	Phase      string // phase the iteration ran in
	Skill      string
	Verdict    string
	Confidence float64
	Status     string
	OutputSize int
	At         time.Time
}

// TransitionRecord is one committed phase change.
type TransitionRecord struct {
	SessionID string
	Iteration int
	From      string
	To        string
	Reason    string
	Manual    bool
	At        time.Time
}

// DB provides journal reads and writes.
type DB struct {
	db *sql.DB
}

// Open opens or creates the journal at dbPath and initializes the schema.
func Open(ctx context.Context, dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal dir: %w", err)
	}

	// WAL lets `loop history` read while a loop is writing.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	d := &DB{db: db}
	if err := d.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS iterations (
		session_id  TEXT NOT NULL,
		iteration   INTEGER NOT NULL,
		phase       TEXT NOT NULL,
		skill       TEXT NOT NULL,
		verdict     TEXT NOT NULL,
		confidence  REAL NOT NULL,
		status      TEXT NOT NULL,
		output_size INTEGER NOT NULL,
		at          INTEGER NOT NULL,
		PRIMARY KEY (session_id, iteration)
	);

	CREATE TABLE IF NOT EXISTS transitions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		iteration  INTEGER NOT NULL,
		from_phase TEXT NOT NULL,
		to_phase   TEXT NOT NULL,
		reason     TEXT NOT NULL,
		manual     INTEGER NOT NULL,
		at         INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transitions_session ON transitions(session_id);
	`
	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// RecordIteration stores a committed iteration. Re-recording the same
// iteration replaces the earlier row.
func (d *DB) RecordIteration(ctx context.Context, r IterationRecord) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO iterations
			(session_id, iteration, phase, skill, verdict, confidence, status, output_size, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.Iteration, r.Phase, r.Skill, r.Verdict, r.Confidence, r.Status, r.OutputSize, r.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record iteration: %w", err)
	}
	return nil
}

// RecordTransition stores a committed phase change.
func (d *DB) RecordTransition(ctx context.Context, r TransitionRecord) error {
	manual := 0
	if r.Manual {
		manual = 1
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO transitions (session_id, iteration, from_phase, to_phase, reason, manual, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.Iteration, r.From, r.To, r.Reason, manual, r.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// Iterations returns a session's iterations in order.
func (d *DB) Iterations(ctx context.Context, sessionID string) ([]IterationRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT session_id, iteration, phase, skill, verdict, confidence, status, output_size, at
		FROM iterations WHERE session_id = ? ORDER BY iteration`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query iterations: %w", err)
	}
	defer rows.Close()

	var out []IterationRecord
	for rows.Next() {
		var r IterationRecord
		var at int64
		if err := rows.Scan(&r.SessionID, &r.Iteration, &r.Phase, &r.Skill, &r.Verdict,
			&r.Confidence, &r.Status, &r.OutputSize, &at); err != nil {
			return nil, fmt.Errorf("failed to scan iteration: %w", err)
		}
		r.At = time.UnixMilli(at).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Transitions returns a session's phase changes in order.
func (d *DB) Transitions(ctx context.Context, sessionID string) ([]TransitionRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT session_id, iteration, from_phase, to_phase, reason, manual, at
		FROM transitions WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		var r TransitionRecord
		var manual int
		var at int64
		if err := rows.Scan(&r.SessionID, &r.Iteration, &r.From, &r.To, &r.Reason, &manual, &at); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		r.Manual = manual == 1
		r.At = time.UnixMilli(at).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes every record of a session.
func (d *DB) Delete(ctx context.Context, sessionID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM iterations WHERE session_id = ?`,
		`DELETE FROM transitions WHERE session_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, sessionID); err != nil {
			return fmt.Errorf("failed to delete journal rows: %w", err)
		}
	}
	return tx.Commit()
}
