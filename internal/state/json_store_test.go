package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/reportbuilder/internal/layout"
)

func testStore(t *testing.T) (*JSONStore, layout.Layout) {
	t.Helper()
	l := layout.New(t.TempDir())
	return NewJSONStore(l), l
}

func TestJSONStore_Load_MissingFile_ReturnsNilState(t *testing.T) {
	store, _ := testStore(t)

	ps, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, ps)
	require.False(t, store.Exists())
}

func TestJSONStore_SaveLoad_RoundTripPreservesRecord(t *testing.T) {
	store, _ := testStore(t)

	created := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	started := time.Date(2025, 8, 2, 10, 30, 0, 0, time.UTC)
	completed := time.Date(2025, 8, 3, 16, 45, 0, 0, time.UTC)
	cursor := "1.2"

	ps := NewProjectState("q3-report", "quarterly", created)
	ps.CurrentPhase = "Phase 1: Setup"
	ps.CurrentTask = &cursor
	ps.Tasks = []Task{
		{ID: "1.1", Phase: "Phase 1: Setup", Description: "Create repo", Status: TaskStatusDone, StartedAt: &started, CompletedAt: &completed},
		{ID: "1.2", Phase: "Phase 1: Setup", Description: "Install deps", Status: TaskStatusPending},
		{ID: "2.1", Phase: "Phase 2: Build", Description: "Compile", Status: TaskStatusBlocked, BlockedReason: "deps missing"},
	}
	ps.Artifacts = []string{"out/report.pdf"}
	ps.AppendHistory(HistoryEntry{Action: "init", Timestamp: created})

	require.NoError(t, store.Save(ps))
	require.True(t, store.Exists())

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	require.Equal(t, ps.ProjectName, loaded.ProjectName)
	require.Equal(t, ps.Template, loaded.Template)
	require.Equal(t, ps.CreatedAt, loaded.CreatedAt)
	require.Equal(t, ps.CurrentPhase, loaded.CurrentPhase)
	require.Equal(t, ps.CurrentTask, loaded.CurrentTask)
	require.Equal(t, ps.Tasks, loaded.Tasks)
	require.Equal(t, ps.Artifacts, loaded.Artifacts)
	require.Equal(t, ps.History, loaded.History)
}

func TestJSONStore_Load_CorruptJSON_ReturnsCorruptStateError(t *testing.T) {
	store, l := testStore(t)
	require.NoError(t, os.MkdirAll(l.StateDir(), 0o750))
	require.NoError(t, os.WriteFile(l.StatusFile(), []byte("{not json"), 0o644))

	_, err := store.Load()
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryCorruptState))

	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	path, _ := classified.Context().GetString("path")
	require.Equal(t, l.StatusFile(), path)

	// The damaged file must survive for repair/restore to inspect.
	data, readErr := os.ReadFile(l.StatusFile())
	require.NoError(t, readErr)
	require.Equal(t, "{not json", string(data))
}

func TestJSONStore_Load_EmptyFile_ReturnsCorruptStateError(t *testing.T) {
	store, l := testStore(t)
	require.NoError(t, os.MkdirAll(l.StateDir(), 0o750))
	require.NoError(t, os.WriteFile(l.StatusFile(), nil, 0o644))

	_, err := store.Load()
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryCorruptState))
}

func TestJSONStore_Save_CreatesStateDirAndStampsUpdatedAt(t *testing.T) {
	store, l := testStore(t)

	before := time.Now()
	ps := NewProjectState("q3-report", "quarterly", before.Add(-time.Hour))
	require.NoError(t, store.Save(ps))

	require.DirExists(t, l.StateDir())
	require.False(t, ps.UpdatedAt.Before(before), "save must stamp updated_at")
}

func TestJSONStore_Save_LeavesNoTempFile(t *testing.T) {
	store, l := testStore(t)

	ps := NewProjectState("q3-report", "quarterly", time.Now())
	require.NoError(t, store.Save(ps))
	require.NoError(t, store.Save(ps))

	entries, err := os.ReadDir(l.StateDir())
	require.NoError(t, err)
	for _, e := range entries {
		require.NotEqual(t, ".tmp", filepath.Ext(e.Name()), "temp file left behind: %s", e.Name())
	}
}

func TestJSONStore_Save_EmptyCollectionsSerializeAsArrays(t *testing.T) {
	store, l := testStore(t)

	require.NoError(t, store.Save(NewProjectState("q3-report", "quarterly", time.Now())))

	data, err := os.ReadFile(l.StatusFile())
	require.NoError(t, err)
	require.Contains(t, string(data), `"tasks": []`)
	require.Contains(t, string(data), `"artifacts": []`)
	require.NotContains(t, string(data), `"current_task"`)
}
