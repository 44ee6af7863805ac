package archive

import (
	"fmt"
	"os"
	"strings"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation"
	"git.home.luguber.info/inful/reportbuilder/internal/specfile"
	"git.home.luguber.info/inful/reportbuilder/internal/state"
)

// StateSummary is a read-only aggregate for display and telemetry. Each
// field degrades independently: a missing or corrupt file blanks its own
// fields and never fails the summary as a whole.
type StateSummary struct {
	SpecPresent   bool
	StatusPresent bool
	PlanPresent   bool
	SpecVersion   foundation.Option[int]
	ProjectName   foundation.Option[string]
	TasksDone     foundation.Option[int]
	TasksTotal    foundation.Option[int]
	ArchiveCount  int
}

// StateSummary inspects the project tree without mutating anything.
func (m *Manager) StateSummary() *StateSummary {
	s := &StateSummary{
		SpecVersion: foundation.None[int](),
		ProjectName: foundation.None[string](),
		TasksDone:   foundation.None[int](),
		TasksTotal:  foundation.None[int](),
	}

	s.SpecPresent = fileExists(m.layout.SpecFile())
	s.StatusPresent = fileExists(m.layout.StatusFile())
	s.PlanPresent = fileExists(m.layout.PlanFile())

	if spec, err := specfile.Load(m.layout.SpecFile()); err == nil {
		s.SpecVersion = foundation.Some(spec.Version)
		s.ProjectName = foundation.Some(spec.Meta.ProjectName)
	}

	if ps, err := state.NewJSONStore(m.layout).Load(); err == nil && ps != nil {
		s.TasksTotal = foundation.Some(len(ps.Tasks))
		s.TasksDone = foundation.Some(ps.CountByStatus()[state.TaskStatusDone])
	}

	if infos, err := m.List(); err == nil {
		s.ArchiveCount = len(infos)
	}

	return s
}

// Render formats the summary for terminal display.
func (s *StateSummary) Render() string {
	var b strings.Builder

	spec := presence(s.SpecPresent)
	if s.SpecVersion.IsSome() {
		spec += fmt.Sprintf(" (version %d", s.SpecVersion.Unwrap())
		if s.ProjectName.IsSome() && s.ProjectName.Unwrap() != "" {
			spec += fmt.Sprintf(", project %s", s.ProjectName.Unwrap())
		}
		spec += ")"
	}
	fmt.Fprintf(&b, "Spec:     %s\n", spec)

	status := presence(s.StatusPresent)
	if s.TasksTotal.IsSome() {
		status += fmt.Sprintf(" (%d/%d tasks done)", s.TasksDone.UnwrapOr(0), s.TasksTotal.Unwrap())
	}
	fmt.Fprintf(&b, "Status:   %s\n", status)

	fmt.Fprintf(&b, "Plan:     %s\n", presence(s.PlanPresent))
	fmt.Fprintf(&b, "Archives: %d\n", s.ArchiveCount)
	return b.String()
}

func presence(present bool) string {
	if present {
		return "present"
	}
	return "absent"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
