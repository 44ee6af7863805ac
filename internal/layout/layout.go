// Package layout computes where a project keeps its state on disk.
//
// Every component receives a Layout value instead of consulting globals, so
// tests and tooling can point the whole engine at any directory. The layout
// is fixed:
//
//	<root>/project_state/
//	  spec.yaml
//	  status.json
//	  plan.md
//	  spec_history/
//	  logs/sessions/
//	  logs/commands/
//	  archive/<timestamp>/
package layout

import "path/filepath"

// StateDirName is the single directory the engine owns under a project root.
const StateDirName = "project_state"

// Layout resolves all engine paths relative to one project root.
// It performs no I/O.
type Layout struct {
	root string
}

// New creates a Layout for the given project root directory.
func New(root string) Layout {
	if root == "" {
		root = "."
	}
	return Layout{root: root}
}

// Root returns the project root directory.
func (l Layout) Root() string {
	return l.root
}

// StateDir returns the project_state directory.
func (l Layout) StateDir() string {
	return filepath.Join(l.root, StateDirName)
}

// SpecFile returns the path of spec.yaml.
func (l Layout) SpecFile() string {
	return filepath.Join(l.StateDir(), "spec.yaml")
}

// StatusFile returns the path of status.json.
func (l Layout) StatusFile() string {
	return filepath.Join(l.StateDir(), "status.json")
}

// PlanFile returns the path of plan.md.
func (l Layout) PlanFile() string {
	return filepath.Join(l.StateDir(), "plan.md")
}

// SpecHistoryDir returns the directory holding versioned spec snapshots.
func (l Layout) SpecHistoryDir() string {
	return filepath.Join(l.StateDir(), "spec_history")
}

// LogsDir returns the logs directory.
func (l Layout) LogsDir() string {
	return filepath.Join(l.StateDir(), "logs")
}

// SessionLogDir returns the directory for session transcripts.
func (l Layout) SessionLogDir() string {
	return filepath.Join(l.LogsDir(), "sessions")
}

// CommandLogDir returns the directory for the command journal.
func (l Layout) CommandLogDir() string {
	return filepath.Join(l.LogsDir(), "commands")
}

// ArchiveDir returns the directory holding point-in-time archives.
func (l Layout) ArchiveDir() string {
	return filepath.Join(l.StateDir(), "archive")
}

// CoreFiles returns the three files an archive snapshots, in copy order.
func (l Layout) CoreFiles() []string {
	return []string{l.SpecFile(), l.StatusFile(), l.PlanFile()}
}

// RequiredDirs returns the subdirectories that must exist under the state dir.
func (l Layout) RequiredDirs() []string {
	return []string{
		l.SpecHistoryDir(),
		l.SessionLogDir(),
		l.CommandLogDir(),
	}
}
