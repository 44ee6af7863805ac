// Package lifecycle implements task and phase progression over the
// persisted project state: plan parsing into tasks, status transitions,
// cursor advancement and read-side progress queries.
package lifecycle

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation"
	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/reportbuilder/internal/layout"
	"git.home.luguber.info/inful/reportbuilder/internal/logfields"
	"git.home.luguber.info/inful/reportbuilder/internal/metrics"
	"git.home.luguber.info/inful/reportbuilder/internal/planfile"
	"git.home.luguber.info/inful/reportbuilder/internal/state"
)

// Manager coordinates all mutating and read-side task operations. One
// Manager owns one project directory; callers are expected to run
// operations sequentially.
type Manager struct {
	store    state.Store
	layout   layout.Layout
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// New builds a Manager. logger and recorder may be nil, in which case the
// default logger and a no-op recorder are used.
func New(store state.Store, lay layout.Layout, logger *slog.Logger, recorder metrics.Recorder) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Manager{
		store:    store,
		layout:   lay,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// InitProject creates and persists a fresh state record. An existing
// record is overwritten; only I/O failures are errors.
func (m *Manager) InitProject(name, template string) (*state.ProjectState, error) {
	now := m.now()
	ps := state.NewProjectState(name, template, now)
	ps.AppendHistory(state.HistoryEntry{Action: "init", Timestamp: now})

	if err := m.store.Save(ps); err != nil {
		return nil, err
	}

	m.logger.Info("initialized project state", logfields.Project(name))
	return ps, nil
}

// InitFromPlan loads the existing state (or creates one) and re-derives
// the task list from the plan document. Parsing replaces the task list
// wholesale, so re-running against an edited plan is idempotent per plan
// content. A missing plan is a warning, not an error: the task list is
// emptied and the record saved.
func (m *Manager) InitFromPlan(name, template string) (*state.ProjectState, error) {
	now := m.now()

	ps, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = state.NewProjectState(name, template, now)
	}

	items, err := planfile.ParseFile(m.layout.PlanFile())
	if err != nil {
		if !errors.HasCategory(err, errors.CategoryMissingFile) {
			return nil, err
		}
		m.logger.Warn("plan document not found, task list will be empty", logfields.Path(m.layout.PlanFile()))
		items = nil
	}

	ps.Tasks = tasksFromItems(items, now)
	advanceCursor(ps)
	ps.AppendHistory(state.HistoryEntry{Action: "plan_parsed", Timestamp: now, TaskCount: len(ps.Tasks)})

	if err := m.store.Save(ps); err != nil {
		return nil, err
	}

	m.recorder.IncPlanReparse()
	m.recorder.SetTaskCount(len(ps.Tasks))
	m.logger.Info("parsed plan into tasks",
		logfields.Project(ps.ProjectName),
		logfields.TaskCount(len(ps.Tasks)),
		logfields.Phase(ps.CurrentPhase))
	return ps, nil
}

// UpdateTaskStatus transitions one task and persists the result. A
// transition to done re-derives the cursor: first pending task, else
// first blocked, else no cursor with the phase marked complete.
func (m *Manager) UpdateTaskStatus(id string, status state.TaskStatus, blockedReason string) (*state.ProjectState, error) {
	if !status.IsValid() {
		return nil, errors.SchemaError(fmt.Sprintf("unknown task status %q", status)).Build()
	}

	ps, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, errors.NoProjectStateError().Build()
	}

	task, ok := ps.TaskByID(id)
	if !ok {
		return nil, errors.TaskNotFoundError(id).Build()
	}

	now := m.now()
	task.Transition(status, blockedReason, now)
	if status == state.TaskStatusDone {
		advanceCursor(ps)
	}
	ps.AppendHistory(state.HistoryEntry{Action: fmt.Sprintf("task_%s_%s", id, status), Timestamp: now})

	if err := m.store.Save(ps); err != nil {
		return nil, err
	}

	m.recorder.IncTaskTransition(string(status))
	m.logger.Info("task status updated",
		logfields.TaskID(id),
		logfields.TaskStatus(string(status)),
		logfields.Phase(ps.CurrentPhase))
	return ps, nil
}

// NextTask returns the task to work on: any in_progress task first, else
// the cursor task, else the first pending one. Absent state yields None
// without error so advisory callers never fail.
func (m *Manager) NextTask() (foundation.Option[state.Task], error) {
	ps, err := m.store.Load()
	if err != nil {
		return foundation.None[state.Task](), err
	}
	if ps == nil {
		return foundation.None[state.Task](), nil
	}
	return nextTask(ps), nil
}

// AddArtifact records a produced artifact path. Adding an already known
// path is a no-op and leaves history untouched.
func (m *Manager) AddArtifact(path string) (*state.ProjectState, error) {
	ps, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, errors.NoProjectStateError().Build()
	}

	if slices.Contains(ps.Artifacts, path) {
		return ps, nil
	}

	ps.Artifacts = append(ps.Artifacts, path)
	ps.AppendHistory(state.HistoryEntry{Action: "artifact_added", Timestamp: m.now(), Artifact: path})

	if err := m.store.Save(ps); err != nil {
		return nil, err
	}

	m.logger.Info("artifact recorded", logfields.Project(ps.ProjectName), logfields.Path(path))
	return ps, nil
}

// Summary is the read-side aggregate behind the status command.
type Summary struct {
	ProjectName string
	Phase       string
	Counts      map[state.TaskStatus]int
	Total       int
	Percent     float64
	Next        foundation.Option[state.Task]
}

// StatusSummary aggregates counts, completion and the next task.
func (m *Manager) StatusSummary() (*Summary, error) {
	ps, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, errors.NoProjectStateError().Build()
	}

	return &Summary{
		ProjectName: ps.ProjectName,
		Phase:       ps.CurrentPhase,
		Counts:      ps.CountByStatus(),
		Total:       len(ps.Tasks),
		Percent:     ps.CompletionPercent(),
		Next:        nextTask(ps),
	}, nil
}

// Render formats the summary for terminal display.
func (s *Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", s.ProjectName)
	fmt.Fprintf(&b, "Phase:   %s\n", s.Phase)
	fmt.Fprintf(&b, "Tasks:   %d/%d done (%.0f%%)\n", s.Counts[state.TaskStatusDone], s.Total, s.Percent)
	for _, st := range state.TaskStatuses() {
		fmt.Fprintf(&b, "  %-12s %d\n", string(st)+":", s.Counts[st])
	}
	if s.Next.IsSome() {
		next := s.Next.Unwrap()
		fmt.Fprintf(&b, "Next:    [%s] %s\n", next.ID, next.Description)
	} else {
		b.WriteString("Next:    (none)\n")
	}
	return b.String()
}

// CompletionPercentage returns done/total as a percentage. Absent state
// counts as zero progress rather than an error.
func (m *Manager) CompletionPercentage() (float64, error) {
	ps, err := m.store.Load()
	if err != nil {
		return 0, err
	}
	if ps == nil {
		return 0, nil
	}
	return ps.CompletionPercent(), nil
}

// WarnIfMissingCoreFiles reports (and logs) which externally authored
// core files are absent. Advisory only: callers proceed regardless.
func (m *Manager) WarnIfMissingCoreFiles() []string {
	warnings := []string{}
	for _, path := range []string{m.layout.SpecFile(), m.layout.PlanFile()} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			warnings = append(warnings, fmt.Sprintf("core file missing: %s", path))
			m.logger.Warn("core file missing", logfields.Path(path))
		}
	}
	return warnings
}

func tasksFromItems(items []planfile.Item, now time.Time) []state.Task {
	tasks := make([]state.Task, 0, len(items))
	lastPhase := -1
	seq := 0
	for _, it := range items {
		if it.PhaseNumber != lastPhase {
			lastPhase = it.PhaseNumber
			seq = 0
		}
		seq++

		task := state.Task{
			ID:          fmt.Sprintf("%d.%d", it.PhaseNumber, seq),
			Phase:       it.Phase,
			Description: it.Description,
			Status:      state.TaskStatusPending,
		}
		if it.Checked {
			task.Status = state.TaskStatusDone
			ts := now
			task.CompletedAt = &ts
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// advanceCursor points current_task at the first pending task, else the
// first blocked one, else clears it and marks the phase complete.
func advanceCursor(ps *state.ProjectState) {
	for i := range ps.Tasks {
		if ps.Tasks[i].Status == state.TaskStatusPending {
			setCursor(ps, &ps.Tasks[i])
			return
		}
	}
	for i := range ps.Tasks {
		if ps.Tasks[i].Status == state.TaskStatusBlocked {
			setCursor(ps, &ps.Tasks[i])
			return
		}
	}
	ps.CurrentTask = nil
	ps.CurrentPhase = state.PhaseComplete
}

func setCursor(ps *state.ProjectState, t *state.Task) {
	id := t.ID
	ps.CurrentTask = &id
	ps.CurrentPhase = t.Phase
}

func nextTask(ps *state.ProjectState) foundation.Option[state.Task] {
	for i := range ps.Tasks {
		if ps.Tasks[i].Status == state.TaskStatusInProgress {
			return foundation.Some(ps.Tasks[i])
		}
	}
	if ps.CurrentTask != nil {
		if task, ok := ps.TaskByID(*ps.CurrentTask); ok && task.Status != state.TaskStatusDone {
			return foundation.Some(*task)
		}
	}
	for i := range ps.Tasks {
		if ps.Tasks[i].Status == state.TaskStatusPending {
			return foundation.Some(ps.Tasks[i])
		}
	}
	return foundation.None[state.Task]()
}
