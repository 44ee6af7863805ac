package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/reportbuilder/internal/layout"
)

// JournalFileName is the SQLite database holding the command journal.
const JournalFileName = "commands.db"

// CommandRecord is one journaled CLI invocation.
type CommandRecord struct {
	ID        int64
	SessionID string
	Command   string
	Arguments string
	Timestamp time.Time
	Duration  time.Duration
	Success   bool
	Error     string
}

// CommandJournal persists command records in SQLite.
type CommandJournal struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenCommandJournal opens (creating if needed) the journal database
// under the layout's command log directory.
func OpenCommandJournal(lay layout.Layout) (*CommandJournal, error) {
	if err := os.MkdirAll(lay.CommandLogDir(), 0o750); err != nil {
		return nil, errors.AuditError("failed to create command log directory").WithCause(err).Build()
	}

	path := filepath.Join(lay.CommandLogDir(), JournalFileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.AuditError("failed to open command journal").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	journal := &CommandJournal{db: db}
	if err := journal.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, errors.AuditError("failed to initialize command journal schema").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	return journal, nil
}

func (j *CommandJournal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		command TEXT NOT NULL,
		arguments TEXT,
		timestamp INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		success INTEGER NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_commands_session_id ON commands(session_id);
	CREATE INDEX IF NOT EXISTS idx_commands_timestamp ON commands(timestamp);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends one command record. A zero Timestamp is stamped with
// the current time.
func (j *CommandJournal) Record(ctx context.Context, rec CommandRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	success := 0
	if rec.Success {
		success = 1
	}

	_, err := j.db.ExecContext(ctx,
		"INSERT INTO commands (session_id, command, arguments, timestamp, duration_ms, success, error) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.SessionID, rec.Command, rec.Arguments, rec.Timestamp.Unix(), rec.Duration.Milliseconds(), success, rec.Error,
	)
	if err != nil {
		return errors.AuditError("failed to record command").WithCause(err).Build()
	}
	return nil
}

// Recent returns the most recent records, newest first. A non-positive
// limit defaults to 50.
func (j *CommandJournal) Recent(ctx context.Context, limit int) ([]CommandRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx,
		"SELECT id, session_id, command, arguments, timestamp, duration_ms, success, error FROM commands ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, errors.AuditError("failed to query command journal").WithCause(err).Build()
	}
	defer rows.Close()

	return scanCommands(rows)
}

func scanCommands(rows *sql.Rows) ([]CommandRecord, error) {
	records := []CommandRecord{}
	for rows.Next() {
		var rec CommandRecord
		var timestampUnix, durationMS int64
		var success int

		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Command, &rec.Arguments, &timestampUnix, &durationMS, &success, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan command record: %w", err)
		}

		rec.Timestamp = time.Unix(timestampUnix, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.Success = success == 1
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (j *CommandJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}
