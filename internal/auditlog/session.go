// Package auditlog records what happened to a project: session
// transcripts as JSONL files under logs/sessions/ and a queryable
// command journal in SQLite under logs/commands/.
//
// Audit failures are classified as warnings; callers log them and keep
// going rather than failing the operation being audited.
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/reportbuilder/internal/layout"
)

// Session is an append-only JSONL transcript of one interactive session.
type Session struct {
	id   string
	path string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

type sessionEvent struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// StartSession opens a new transcript file and writes the session_start
// event. warnings carries advisory findings (typically missing core
// files) so they are on record even if the session dies early.
func StartSession(lay layout.Layout, warnings []string) (*Session, error) {
	if err := os.MkdirAll(lay.SessionLogDir(), 0o750); err != nil {
		return nil, errors.AuditError("failed to create session log directory").WithCause(err).Build()
	}

	id := uuid.New().String()
	now := time.Now()
	path := filepath.Join(lay.SessionLogDir(), fmt.Sprintf("%s_%s.jsonl", now.Format("20060102_150405"), id))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.AuditError("failed to open session log").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	s := &Session{
		id:   id,
		path: path,
		file: file,
		enc:  json.NewEncoder(file),
		now:  time.Now,
	}

	if err := s.write(sessionEvent{Event: "session_start", Warnings: warnings}); err != nil {
		_ = file.Close()
		return nil, err
	}
	return s, nil
}

// ID returns the session identifier used in every transcript line.
func (s *Session) ID() string {
	return s.id
}

// Path returns the transcript file location.
func (s *Session) Path() string {
	return s.path
}

// Event appends one event line to the transcript.
func (s *Session) Event(name, detail string) error {
	return s.write(sessionEvent{Event: name, Detail: detail})
}

// Close writes the session_end event and closes the transcript.
func (s *Session) Close() error {
	writeErr := s.write(sessionEvent{Event: "session_end"})

	s.mu.Lock()
	defer s.mu.Unlock()
	closeErr := s.file.Close()

	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return errors.AuditError("failed to close session log").WithCause(closeErr).Build()
	}
	return nil
}

func (s *Session) write(event sessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.SessionID = s.id
	event.Timestamp = s.now()
	if err := s.enc.Encode(event); err != nil {
		return errors.AuditError("failed to write session event").
			WithCause(err).
			WithContext("path", s.path).
			Build()
	}
	return nil
}
