package lifecycle

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/reportbuilder/internal/layout"
	"git.home.luguber.info/inful/reportbuilder/internal/state"
)

const phasedPlan = `## Phase 1: Setup
- [x] Create repo
- [ ] Install deps
## Phase 2: Build
- [ ] Compile
`

func newTestManager(t *testing.T) (*Manager, layout.Layout) {
	t.Helper()
	lay := layout.New(t.TempDir())
	store := state.NewJSONStore(lay)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, lay, logger, nil), lay
}

func writePlan(t *testing.T, lay layout.Layout, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(lay.StateDir(), 0o750))
	require.NoError(t, os.WriteFile(lay.PlanFile(), []byte(content), 0o644))
}

func TestInitProject_CreatesRecordWithInitHistory(t *testing.T) {
	m, _ := newTestManager(t)

	ps, err := m.InitProject("quarterly-report", "report")
	require.NoError(t, err)

	assert.Equal(t, "quarterly-report", ps.ProjectName)
	assert.Equal(t, "report", ps.Template)
	require.Len(t, ps.History, 1)
	assert.Equal(t, "init", ps.History[0].Action)

	loaded, err := m.store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "quarterly-report", loaded.ProjectName)
}

func TestInitFromPlan_PhasedPlan_DerivesTasksAndCursor(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, phasedPlan)

	ps, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	require.Len(t, ps.Tasks, 3)
	assert.Equal(t, "1.1", ps.Tasks[0].ID)
	assert.Equal(t, state.TaskStatusDone, ps.Tasks[0].Status)
	assert.NotNil(t, ps.Tasks[0].CompletedAt)
	assert.Equal(t, "1.2", ps.Tasks[1].ID)
	assert.Equal(t, state.TaskStatusPending, ps.Tasks[1].Status)
	assert.Nil(t, ps.Tasks[1].CompletedAt)
	assert.Equal(t, "2.1", ps.Tasks[2].ID)
	assert.Equal(t, state.TaskStatusPending, ps.Tasks[2].Status)

	require.NotNil(t, ps.CurrentTask)
	assert.Equal(t, "1.2", *ps.CurrentTask)
	assert.Equal(t, "Phase 1: Setup", ps.CurrentPhase)

	last := ps.History[len(ps.History)-1]
	assert.Equal(t, "plan_parsed", last.Action)
	assert.Equal(t, 3, last.TaskCount)
}

func TestInitFromPlan_MissingPlan_EmptiesTaskListWithoutError(t *testing.T) {
	m, _ := newTestManager(t)

	ps, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	assert.Empty(t, ps.Tasks)
	assert.Nil(t, ps.CurrentTask)
	assert.Equal(t, state.PhaseComplete, ps.CurrentPhase)
	assert.True(t, m.store.Exists())
}

func TestInitFromPlan_Reparse_ReplacesTaskList(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, phasedPlan)

	_, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)
	_, err = m.UpdateTaskStatus("1.2", state.TaskStatusInProgress, "")
	require.NoError(t, err)

	writePlan(t, lay, "## Phase 1: Setup\n- [x] Create repo\n")
	ps, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	require.Len(t, ps.Tasks, 1)
	assert.Equal(t, "1.1", ps.Tasks[0].ID)
	assert.Nil(t, ps.CurrentTask)
	assert.Equal(t, state.PhaseComplete, ps.CurrentPhase)
}

func TestInitFromPlan_KeepsExistingProjectIdentity(t *testing.T) {
	m, lay := newTestManager(t)
	_, err := m.InitProject("original", "report")
	require.NoError(t, err)
	writePlan(t, lay, phasedPlan)

	ps, err := m.InitFromPlan("ignored", "ignored")
	require.NoError(t, err)

	assert.Equal(t, "original", ps.ProjectName)
	assert.Equal(t, "report", ps.Template)
}

func TestUpdateTaskStatus_NoState_ReturnsNoProjectState(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.UpdateTaskStatus("1.1", state.TaskStatusDone, "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNoProjectState))
}

func TestUpdateTaskStatus_UnknownID_ReturnsTaskNotFound(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, phasedPlan)
	_, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	_, err = m.UpdateTaskStatus("9.9", state.TaskStatusDone, "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTaskNotFound))

	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	id, _ := classified.Context().GetString("task_id")
	assert.Equal(t, "9.9", id)
}

func TestUpdateTaskStatus_InvalidStatus_ReturnsSchemaError(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, phasedPlan)
	_, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	_, err = m.UpdateTaskStatus("1.2", state.TaskStatus("cancelled"), "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategorySchema))
}

func TestUpdateTaskStatus_DoneAdvancesCursorAcrossPhases(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, phasedPlan)
	_, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	ps, err := m.UpdateTaskStatus("1.2", state.TaskStatusDone, "")
	require.NoError(t, err)
	require.NotNil(t, ps.CurrentTask)
	assert.Equal(t, "2.1", *ps.CurrentTask)
	assert.Equal(t, "Phase 2: Build", ps.CurrentPhase)

	ps, err = m.UpdateTaskStatus("2.1", state.TaskStatusDone, "")
	require.NoError(t, err)
	assert.Nil(t, ps.CurrentTask)
	assert.Equal(t, state.PhaseComplete, ps.CurrentPhase)

	last := ps.History[len(ps.History)-1]
	assert.Equal(t, "task_2.1_done", last.Action)
}

func TestUpdateTaskStatus_DoneWithOnlyBlockedLeft_PointsCursorAtBlocked(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, phasedPlan)
	_, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	_, err = m.UpdateTaskStatus("2.1", state.TaskStatusBlocked, "waiting on toolchain")
	require.NoError(t, err)

	ps, err := m.UpdateTaskStatus("1.2", state.TaskStatusDone, "")
	require.NoError(t, err)
	require.NotNil(t, ps.CurrentTask)
	assert.Equal(t, "2.1", *ps.CurrentTask)
	assert.Equal(t, "Phase 2: Build", ps.CurrentPhase)
}

func TestUpdateTaskStatus_Blocked_StoresReason(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, phasedPlan)
	_, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	ps, err := m.UpdateTaskStatus("1.2", state.TaskStatusBlocked, "missing credentials")
	require.NoError(t, err)

	task, ok := ps.TaskByID("1.2")
	require.True(t, ok)
	assert.Equal(t, state.TaskStatusBlocked, task.Status)
	assert.Equal(t, "missing credentials", task.BlockedReason)
}

func TestUpdateTaskStatus_InProgress_StampsStartedOnce(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, phasedPlan)
	_, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return first }
	ps, err := m.UpdateTaskStatus("1.2", state.TaskStatusInProgress, "")
	require.NoError(t, err)
	task, _ := ps.TaskByID("1.2")
	require.NotNil(t, task.StartedAt)
	assert.Equal(t, first, *task.StartedAt)

	m.now = func() time.Time { return first.Add(time.Hour) }
	_, err = m.UpdateTaskStatus("1.2", state.TaskStatusBlocked, "review")
	require.NoError(t, err)
	ps, err = m.UpdateTaskStatus("1.2", state.TaskStatusInProgress, "")
	require.NoError(t, err)
	task, _ = ps.TaskByID("1.2")
	assert.Equal(t, first, *task.StartedAt)
}

func TestNextTask_PrefersInProgressOverCursor(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, phasedPlan)
	_, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	_, err = m.UpdateTaskStatus("2.1", state.TaskStatusInProgress, "")
	require.NoError(t, err)

	next, err := m.NextTask()
	require.NoError(t, err)
	require.True(t, next.IsSome())
	assert.Equal(t, "2.1", next.Unwrap().ID)
}

func TestNextTask_FallsBackToCursor(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, phasedPlan)
	_, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	next, err := m.NextTask()
	require.NoError(t, err)
	require.True(t, next.IsSome())
	assert.Equal(t, "1.2", next.Unwrap().ID)
}

func TestNextTask_NoState_ReturnsNone(t *testing.T) {
	m, _ := newTestManager(t)

	next, err := m.NextTask()
	require.NoError(t, err)
	assert.True(t, next.IsNone())
}

func TestNextTask_AllDone_ReturnsNone(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, "## Phase 1\n- [x] Only task\n")
	_, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	next, err := m.NextTask()
	require.NoError(t, err)
	assert.True(t, next.IsNone())
}

func TestAddArtifact_IsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.InitProject("p", "t")
	require.NoError(t, err)

	_, err = m.AddArtifact("reports/q1.pdf")
	require.NoError(t, err)
	ps, err := m.AddArtifact("reports/q1.pdf")
	require.NoError(t, err)

	assert.Equal(t, []string{"reports/q1.pdf"}, ps.Artifacts)

	count := 0
	for _, h := range ps.History {
		if h.Action == "artifact_added" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAddArtifact_NoState_Fails(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.AddArtifact("reports/q1.pdf")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNoProjectState))
}

func TestStatusSummary_AggregatesCountsAndNextTask(t *testing.T) {
	m, lay := newTestManager(t)
	writePlan(t, lay, phasedPlan)
	_, err := m.InitFromPlan("p", "t")
	require.NoError(t, err)

	summary, err := m.StatusSummary()
	require.NoError(t, err)

	assert.Equal(t, "p", summary.ProjectName)
	assert.Equal(t, "Phase 1: Setup", summary.Phase)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Counts[state.TaskStatusDone])
	assert.Equal(t, 2, summary.Counts[state.TaskStatusPending])
	assert.InDelta(t, 33.3, summary.Percent, 0.1)
	require.True(t, summary.Next.IsSome())
	assert.Equal(t, "1.2", summary.Next.Unwrap().ID)

	rendered := summary.Render()
	assert.Contains(t, rendered, "Project: p")
	assert.Contains(t, rendered, "1/3 done")
	assert.Contains(t, rendered, "[1.2] Install deps")
}

func TestStatusSummary_NoState_Fails(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.StatusSummary()
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNoProjectState))
}

func TestCompletionPercentage_NoState_IsZero(t *testing.T) {
	m, _ := newTestManager(t)

	pct, err := m.CompletionPercentage()
	require.NoError(t, err)
	assert.Zero(t, pct)
}

func TestWarnIfMissingCoreFiles_ReportsAbsentFiles(t *testing.T) {
	m, lay := newTestManager(t)

	warnings := m.WarnIfMissingCoreFiles()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], lay.SpecFile())
	assert.Contains(t, warnings[1], lay.PlanFile())

	require.NoError(t, os.MkdirAll(lay.StateDir(), 0o750))
	require.NoError(t, os.WriteFile(lay.SpecFile(), []byte("version: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(lay.PlanFile(), []byte("## Phase 1\n"), 0o644))

	assert.Empty(t, m.WarnIfMissingCoreFiles())
}

func TestWarnIfMissingCoreFiles_DoesNotCreateAnything(t *testing.T) {
	m, lay := newTestManager(t)

	_ = m.WarnIfMissingCoreFiles()

	_, err := os.Stat(filepath.Join(lay.Root(), "project_state"))
	assert.True(t, os.IsNotExist(err))
}
