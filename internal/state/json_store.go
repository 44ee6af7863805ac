package state

import (
	"encoding/json"
	"os"
	"time"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/reportbuilder/internal/layout"
)

// JSONStore persists a ProjectState as pretty-printed JSON at the layout's
// status.json path. Writes are atomic: the record is written to a temporary
// file in the same directory and renamed over the target, so a crash mid-save
// leaves either the old or the new state, never a torn file.
type JSONStore struct {
	layout layout.Layout
}

// NewJSONStore creates a store for the given project layout.
func NewJSONStore(l layout.Layout) *JSONStore {
	return &JSONStore{layout: l}
}

// Path returns the status.json path this store reads and writes.
func (js *JSONStore) Path() string {
	return js.layout.StatusFile()
}

// Exists reports whether a status file is present.
func (js *JSONStore) Exists() bool {
	info, err := os.Stat(js.Path())
	return err == nil && !info.IsDir()
}

// Load reads the persisted state. A missing file yields (nil, nil): absence
// is a normal condition before initProject runs. A present but undecodable
// file yields a corrupt_state error carrying the path; the file is left
// untouched for repair or restore to deal with.
func (js *JSONStore) Load() (*ProjectState, error) {
	data, err := os.ReadFile(js.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FileSystemError("failed to read status file").
			WithCause(err).
			WithContext("path", js.Path()).
			Build()
	}

	var ps ProjectState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, errors.CorruptStateError("status file is not valid JSON").
			WithCause(err).
			WithContext("path", js.Path()).
			Build()
	}

	return &ps, nil
}

// Save writes the state atomically, stamping updated_at. The state directory
// is created if needed. Saving the same logical state twice produces
// byte-identical output (modulo the updated_at stamp): the record holds no
// maps, so field order is fixed.
func (js *JSONStore) Save(ps *ProjectState) error {
	if ps == nil {
		return errors.InternalError("cannot save nil project state").Build()
	}

	ps.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return errors.InternalError("failed to marshal project state").
			WithCause(err).
			Build()
	}
	data = append(data, '\n')

	if err := os.MkdirAll(js.layout.StateDir(), 0o750); err != nil {
		return errors.FileSystemError("failed to create state directory").
			WithCause(err).
			WithContext("path", js.layout.StateDir()).
			Build()
	}

	statusPath := js.Path()
	tempPath := statusPath + ".tmp"

	// Atomic write using temporary file
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return errors.FileSystemError("failed to write temporary status file").
			WithCause(err).
			WithContext("path", tempPath).
			Build()
	}

	if err := os.Rename(tempPath, statusPath); err != nil {
		return errors.FileSystemError("failed to replace status file").
			WithCause(err).
			WithContext("path", statusPath).
			Build()
	}

	return nil
}
