// Package trace records committed transitions to a SQLite log for
// diagnostics and replay verification. The engine only ever appends here;
// a session never reads its own trace back, so canvas state still lives
// purely in memory.
package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/viewfinder/internal/state"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added UNIQUE constraint on (session_token, seq)
const currentSchemaVersion = 1

// Record is one traced transition, ordered within its session by Seq.
type Record struct {
	Token      string    `json:"token"`
	Session    string    `json:"session"`
	Seq        int64     `json:"seq"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Movement   string    `json:"movement"`
	DurationMS float64   `json:"duration_ms"`
	Success    bool      `json:"success"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Recorder owns the SQLite trace database.
type Recorder struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens a trace database at the given path. ":memory:"
// gives an ephemeral database for tests.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to trace database: %w", err)
	}

	// SQLite only supports one writer at a time; a single connection
	// avoids SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Recorder{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (r *Recorder) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SetClock substitutes the timestamp source for deterministic traces.
func (r *Recorder) SetClock(now func() time.Time) {
	r.now = now
}

// Session registers a session token and returns its appender. Registering
// the same token twice is a no-op.
func (r *Recorder) Session(ctx context.Context, token string) (*SessionRecorder, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, started_at)
		VALUES (?, ?)
		ON CONFLICT(token) DO NOTHING
	`, token, r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}

	// Resume numbering after any rows the session already holds.
	var maxSeq sql.NullInt64
	err = r.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM transitions WHERE session_token = ?`, token,
	).Scan(&maxSeq)
	if err != nil {
		return nil, fmt.Errorf("read session seq: %w", err)
	}

	return &SessionRecorder{recorder: r, session: token, seq: maxSeq.Int64}, nil
}

// ReadSession returns a session's transitions ordered by seq.
func (r *Recorder) ReadSession(ctx context.Context, token string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_token, seq, from_section, to_section,
		       movement, duration_ms, success, recorded_at
		FROM transitions
		WHERE session_token = ?
		ORDER BY seq
	`, token)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var recordedAt string
		if err := rows.Scan(&rec.Token, &rec.Session, &rec.Seq, &rec.From, &rec.To,
			&rec.Movement, &rec.DurationMS, &rec.Success, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		rec.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Sessions lists all recorded session tokens in registration order.
func (r *Recorder) Sessions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT token FROM sessions ORDER BY started_at, token`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// SessionRecorder appends one session's transitions. It implements the
// engine's trace sink interface.
type SessionRecorder struct {
	mu       sync.Mutex
	recorder *Recorder
	session  string
	seq      int64
}

// Append writes one transition. Uses ON CONFLICT(id) DO NOTHING for
// idempotency - re-appending a movement token is silently ignored.
func (s *SessionRecorder) Append(token string, t state.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	_, err := s.recorder.db.Exec(`
		INSERT INTO transitions
		(id, session_token, seq, from_section, to_section, movement, duration_ms, success, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		token,
		s.session,
		s.seq,
		string(t.From),
		string(t.To),
		string(t.Movement),
		t.Duration,
		t.Success,
		s.recorder.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.seq--
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// The v1 constraint ships in schema.sql; pre-v1 databases only need
	// the index backfilled.
	if version < 1 {
		if _, err := db.Exec(`
			CREATE UNIQUE INDEX IF NOT EXISTS idx_transitions_session_seq_unique
			ON transitions(session_token, seq)
		`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
