// Package archive implements point-in-time snapshots of the project state
// directory plus the rollback operations built on them: listing, restore
// and reset. Archives are immutable once written and never auto-deleted.
package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/reportbuilder/internal/layout"
	"git.home.luguber.info/inful/reportbuilder/internal/logfields"
	"git.home.luguber.info/inful/reportbuilder/internal/metrics"
)

const (
	archiveNameFormat = "20060102_150405"
	metadataFileName  = "archive_metadata.json"
	reasonFileName    = "archive_reason.txt"

	// reasonAutoRestore marks the safety snapshot taken before a restore
	// overwrites live files.
	reasonAutoRestore = "auto-archived-before-restore"
	reasonManualReset = "manual-reset"
)

// Metadata is written into every archive directory alongside the copied
// files. Files holds the top-level names that were actually copied.
type Metadata struct {
	ArchivedAt time.Time `json:"archived_at"`
	Reason     string    `json:"reason,omitempty"`
	Files      []string  `json:"files"`
}

// Info describes one archive for listing. When the metadata file is
// absent or unreadable, ArchivedAt stays zero and Files falls back to a
// plain directory listing.
type Info struct {
	Name       string
	Path       string
	ArchivedAt time.Time
	Reason     string
	Files      []string
}

// RestoreResult reports what a restore brought back.
type RestoreResult struct {
	Restored      []string
	SafetyArchive string
}

// ResetResult reports where the pre-reset snapshot went.
type ResetResult struct {
	ArchivePath string
	Message     string
}

// Manager owns the archive directory of one project.
type Manager struct {
	layout   layout.Layout
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// New builds a Manager. logger and recorder may be nil.
func New(lay layout.Layout, logger *slog.Logger, recorder metrics.Recorder) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Manager{layout: lay, logger: logger, recorder: recorder, now: time.Now}
}

// Archive snapshots the current state into a new timestamped directory
// and returns its path. Core files and the spec_history/ and logs/ trees
// are each copied only when present, so archiving a sparse project is
// valid. The trigger only labels metrics.
func (m *Manager) Archive(reason string, trigger metrics.TriggerLabel) (string, error) {
	start := time.Now()

	name, path, err := m.newArchiveDir()
	if err != nil {
		return "", err
	}

	copied := []string{}
	for _, src := range m.layout.CoreFiles() {
		if _, err := os.Stat(src); err != nil {
			continue
		}
		base := filepath.Base(src)
		if err := copyFile(src, filepath.Join(path, base)); err != nil {
			return "", errors.FileSystemError("failed to copy file into archive").
				WithCause(err).
				WithContext("path", src).
				WithContext("archive", name).
				Build()
		}
		copied = append(copied, base)
	}

	for _, dir := range []string{m.layout.SpecHistoryDir(), m.layout.LogsDir()} {
		if !dirNonEmpty(dir) {
			continue
		}
		base := filepath.Base(dir)
		if err := copyDir(dir, filepath.Join(path, base)); err != nil {
			return "", errors.FileSystemError("failed to copy directory into archive").
				WithCause(err).
				WithContext("path", dir).
				WithContext("archive", name).
				Build()
		}
		copied = append(copied, base)
	}

	if reason != "" {
		if err := os.WriteFile(filepath.Join(path, reasonFileName), []byte(reason+"\n"), 0o644); err != nil {
			return "", errors.FileSystemError("failed to write archive reason").
				WithCause(err).
				WithContext("archive", name).
				Build()
		}
	}

	meta := Metadata{ArchivedAt: m.now(), Reason: reason, Files: copied}
	if err := writeMetadata(filepath.Join(path, metadataFileName), meta); err != nil {
		return "", err
	}

	m.recorder.IncArchiveCreated(trigger)
	m.recorder.ObserveArchiveDuration(time.Since(start))
	m.logger.Info("archived project state",
		logfields.Archive(name),
		logfields.Reason(reason),
		slog.Int("files", len(copied)))
	return path, nil
}

// newArchiveDir picks a free timestamped name, appending _1, _2, ... on
// same-second collisions, and creates the directory.
func (m *Manager) newArchiveDir() (name, path string, err error) {
	base := m.now().Format(archiveNameFormat)
	name = base
	for n := 1; ; n++ {
		path = filepath.Join(m.layout.ArchiveDir(), name)
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			break
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}

	if err := os.MkdirAll(path, 0o750); err != nil {
		return "", "", errors.FileSystemError("failed to create archive directory").
			WithCause(err).
			WithContext("archive", name).
			Build()
	}
	return name, path, nil
}

func writeMetadata(path string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.InternalError("failed to encode archive metadata").WithCause(err).Build()
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.FileSystemError("failed to write archive metadata").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return nil
}

// List returns all archives newest-first. The name format makes reverse
// lexicographic order chronological. Archives without readable metadata
// (e.g. from a crash mid-archive) degrade to a bare file listing instead
// of failing the whole call.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.layout.ArchiveDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, errors.FileSystemError("failed to read archive directory").
			WithCause(err).
			WithContext("path", m.layout.ArchiveDir()).
			Build()
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		infos = append(infos, m.describe(name))
	}
	return infos, nil
}

func (m *Manager) describe(name string) Info {
	path := filepath.Join(m.layout.ArchiveDir(), name)
	info := Info{Name: name, Path: path}

	data, err := os.ReadFile(filepath.Join(path, metadataFileName))
	if err == nil {
		var meta Metadata
		if json.Unmarshal(data, &meta) == nil {
			info.ArchivedAt = meta.ArchivedAt
			info.Reason = meta.Reason
			info.Files = meta.Files
			return info
		}
	}

	// Partially written archive: fall back to what is actually there.
	entries, err := os.ReadDir(path)
	if err != nil {
		return info
	}
	info.Files = make([]string, 0, len(entries))
	for _, entry := range entries {
		info.Files = append(info.Files, entry.Name())
	}
	return info
}

// Restore copies a named archive's files over the live state. Unless
// disabled, the current state is safety-archived first and any failure
// there aborts the restore before anything is overwritten. spec_history/
// is replaced wholesale when the archive carries one.
func (m *Manager) Restore(name string, archiveCurrent bool) (*RestoreResult, error) {
	archivePath := filepath.Join(m.layout.ArchiveDir(), name)
	if info, err := os.Stat(archivePath); err != nil || !info.IsDir() {
		m.recorder.IncRestoreResult(false)
		return nil, errors.ArchiveNotFoundError(name).Build()
	}

	result := &RestoreResult{Restored: []string{}}

	if archiveCurrent {
		safety, err := m.Archive(reasonAutoRestore, metrics.TriggerRestore)
		if err != nil {
			m.recorder.IncRestoreResult(false)
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "restore aborted: safety archive failed").
				WithContext("archive", name).
				Build()
		}
		result.SafetyArchive = safety
	}

	if err := os.MkdirAll(m.layout.StateDir(), 0o750); err != nil {
		m.recorder.IncRestoreResult(false)
		return nil, errors.FileSystemError("failed to create state directory").WithCause(err).Build()
	}

	for _, live := range m.layout.CoreFiles() {
		base := filepath.Base(live)
		src := filepath.Join(archivePath, base)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, live); err != nil {
			m.recorder.IncRestoreResult(false)
			return nil, errors.FileSystemError("failed to restore file").
				WithCause(err).
				WithContext("path", live).
				WithContext("archive", name).
				Build()
		}
		result.Restored = append(result.Restored, base)
	}

	archivedHistory := filepath.Join(archivePath, filepath.Base(m.layout.SpecHistoryDir()))
	if info, err := os.Stat(archivedHistory); err == nil && info.IsDir() {
		if err := os.RemoveAll(m.layout.SpecHistoryDir()); err != nil {
			m.recorder.IncRestoreResult(false)
			return nil, errors.FileSystemError("failed to clear spec history before restore").WithCause(err).Build()
		}
		if err := copyDir(archivedHistory, m.layout.SpecHistoryDir()); err != nil {
			m.recorder.IncRestoreResult(false)
			return nil, errors.FileSystemError("failed to restore spec history").
				WithCause(err).
				WithContext("archive", name).
				Build()
		}
		result.Restored = append(result.Restored, filepath.Base(m.layout.SpecHistoryDir()))
	}

	m.recorder.IncRestoreResult(true)
	m.logger.Info("restored project state from archive",
		logfields.Archive(name),
		slog.Int("files", len(result.Restored)))
	return result, nil
}

// Reset archives the current state and then clears it: the three core
// files are deleted and the spec_history/ and log directories are emptied
// but kept. A failed safety archive aborts the reset entirely.
func (m *Manager) Reset(reason string) (*ResetResult, error) {
	if reason == "" {
		reason = reasonManualReset
	}

	archivePath, err := m.Archive(reason, metrics.TriggerReset)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "reset aborted: safety archive failed").Build()
	}

	for _, file := range m.layout.CoreFiles() {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return nil, errors.FileSystemError("failed to remove state file").
				WithCause(err).
				WithContext("path", file).
				Build()
		}
	}

	for _, dir := range []string{m.layout.SpecHistoryDir(), m.layout.SessionLogDir(), m.layout.CommandLogDir()} {
		if err := clearDir(dir); err != nil {
			return nil, errors.FileSystemError("failed to clear directory").
				WithCause(err).
				WithContext("path", dir).
				Build()
		}
	}

	m.recorder.IncReset()
	m.logger.Info("reset project state", logfields.Reason(reason), logfields.Archive(filepath.Base(archivePath)))
	return &ResetResult{
		ArchivePath: archivePath,
		Message:     fmt.Sprintf("Project state reset. Previous state archived to %s", archivePath),
	}, nil
}
