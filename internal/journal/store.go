package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	difficulty   TEXT NOT NULL,
	tolerance    INTEGER NOT NULL,
	target1      INTEGER NOT NULL,
	target2      INTEGER NOT NULL,
	target3      INTEGER NOT NULL,
	started_at   TEXT NOT NULL,
	unlocked_at  TEXT
);

CREATE TABLE IF NOT EXISTS events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	kind         TEXT NOT NULL,
	channel      INTEGER,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS samples (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	ch1          INTEGER NOT NULL,
	ch2          INTEGER NOT NULL,
	ch3          INTEGER NOT NULL,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`

// #endregion schema

// #region types

// SessionRow is one recorded session.
type SessionRow struct {
	ID         string
	Difficulty string
	Tolerance  int
	Targets    [3]int
	StartedAt  time.Time
	UnlockedAt time.Time // zero when never unlocked
}

// EventRow is one recorded game event.
type EventRow struct {
	SessionID string
	Kind      string // "pin_locked" | "session_unlocked"
	Channel   int    // 1-3 for pin events, 0 otherwise
	CreatedAt time.Time
}

// SampleRow is one recorded raw frame.
type SampleRow struct {
	SessionID string
	Values    [3]int
	CreatedAt time.Time
}

// #endregion types

// #region store

// Store journals sessions, events, and raw sample frames in SQLite, for
// later inspection, fixture export, and replay.
type Store struct {
	db *sql.DB
}

// NewStore opens the database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for the inspection and export tools.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region recorder

// StartSession inserts a new session row.
func (s *Store) StartSession(id string, difficulty string, tolerance int, targets [3]int, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, difficulty, tolerance, target1, target2, target3, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, difficulty, tolerance, targets[0], targets[1], targets[2],
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// MarkUnlocked stamps the session's unlock time.
func (s *Store) MarkUnlocked(id string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET unlocked_at = ? WHERE session_id = ?`,
		at.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("mark unlocked: %w", err)
	}
	return nil
}

// RecordEvent appends a game event. channel is 0 for session-level events.
func (s *Store) RecordEvent(sessionID, kind string, channel int, at time.Time) error {
	var chPtr interface{}
	if channel != 0 {
		chPtr = channel
	}
	_, err := s.db.Exec(
		`INSERT INTO events (session_id, kind, channel, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, kind, chPtr, at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecordSample appends one raw frame.
func (s *Store) RecordSample(sessionID string, values [3]int, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO samples (session_id, ch1, ch2, ch3, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, values[0], values[1], values[2], at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// #endregion recorder

// #region queries

// ListSessions returns the most recent sessions.
func (s *Store) ListSessions(limit int) ([]SessionRow, error) {
	rows, err := s.db.Query(
		`SELECT session_id, difficulty, tolerance, target1, target2, target3, started_at, unlocked_at
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		var startedStr string
		var unlockedStr sql.NullString
		if err := rows.Scan(&r.ID, &r.Difficulty, &r.Tolerance,
			&r.Targets[0], &r.Targets[1], &r.Targets[2], &startedStr, &unlockedStr); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
		if unlockedStr.Valid {
			r.UnlockedAt, _ = time.Parse(time.RFC3339Nano, unlockedStr.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSession fetches one session by ID.
func (s *Store) GetSession(id string) (SessionRow, error) {
	var r SessionRow
	var startedStr string
	var unlockedStr sql.NullString
	err := s.db.QueryRow(
		`SELECT session_id, difficulty, tolerance, target1, target2, target3, started_at, unlocked_at
		 FROM sessions WHERE session_id = ?`, id,
	).Scan(&r.ID, &r.Difficulty, &r.Tolerance,
		&r.Targets[0], &r.Targets[1], &r.Targets[2], &startedStr, &unlockedStr)
	if err != nil {
		return SessionRow{}, fmt.Errorf("get session %s: %w", id, err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	if unlockedStr.Valid {
		r.UnlockedAt, _ = time.Parse(time.RFC3339Nano, unlockedStr.String)
	}
	return r, nil
}

// EventsForSession returns a session's events in order.
func (s *Store) EventsForSession(id string) ([]EventRow, error) {
	rows, err := s.db.Query(
		`SELECT session_id, kind, channel, created_at FROM events
		 WHERE session_id = ? ORDER BY id ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var r EventRow
		var ch sql.NullInt64
		var createdStr string
		if err := rows.Scan(&r.SessionID, &r.Kind, &ch, &createdStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ch.Valid {
			r.Channel = int(ch.Int64)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SamplesForSession returns a session's raw frames in order.
func (s *Store) SamplesForSession(id string) ([]SampleRow, error) {
	rows, err := s.db.Query(
		`SELECT session_id, ch1, ch2, ch3, created_at FROM samples
		 WHERE session_id = ? ORDER BY id ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var out []SampleRow
	for rows.Next() {
		var r SampleRow
		var createdStr string
		if err := rows.Scan(&r.SessionID, &r.Values[0], &r.Values[1], &r.Values[2], &createdStr); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion queries
