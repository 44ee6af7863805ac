package auditlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/reportbuilder/internal/layout"
)

func readEvents(t *testing.T, path string) []sessionEvent {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []sessionEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev sessionEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev), "line: %s", scanner.Text())
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestStartSession_WritesStartEventWithWarnings(t *testing.T) {
	lay := layout.New(t.TempDir())

	session, err := StartSession(lay, []string{"core file missing: spec.yaml"})
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	assert.NotEmpty(t, session.ID())
	assert.Equal(t, lay.SessionLogDir(), filepath.Dir(session.Path()))
	assert.True(t, strings.HasSuffix(session.Path(), ".jsonl"))

	events := readEvents(t, session.Path())
	require.Len(t, events, 1)
	assert.Equal(t, "session_start", events[0].Event)
	assert.Equal(t, session.ID(), events[0].SessionID)
	assert.Equal(t, []string{"core file missing: spec.yaml"}, events[0].Warnings)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestSession_EventsAppendInOrder(t *testing.T) {
	lay := layout.New(t.TempDir())

	session, err := StartSession(lay, nil)
	require.NoError(t, err)

	require.NoError(t, session.Event("task_updated", "1.2 -> done"))
	require.NoError(t, session.Event("archive_created", "20260101_080000"))
	require.NoError(t, session.Close())

	events := readEvents(t, session.Path())
	require.Len(t, events, 4)
	assert.Equal(t, "session_start", events[0].Event)
	assert.Equal(t, "task_updated", events[1].Event)
	assert.Equal(t, "1.2 -> done", events[1].Detail)
	assert.Equal(t, "archive_created", events[2].Event)
	assert.Equal(t, "session_end", events[3].Event)

	for _, ev := range events {
		assert.Equal(t, session.ID(), ev.SessionID)
	}
}

func TestStartSession_DistinctSessionsGetDistinctFiles(t *testing.T) {
	lay := layout.New(t.TempDir())

	first, err := StartSession(lay, nil)
	require.NoError(t, err)
	second, err := StartSession(lay, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID(), second.ID())
	assert.NotEqual(t, first.Path(), second.Path())

	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
}

func TestCommandJournal_RecordAndRecent(t *testing.T) {
	lay := layout.New(t.TempDir())
	ctx := context.Background()

	journal, err := OpenCommandJournal(lay)
	require.NoError(t, err)
	defer func() { _ = journal.Close() }()

	records := []CommandRecord{
		{SessionID: "s1", Command: "init", Arguments: "--name p", Duration: 12 * time.Millisecond, Success: true},
		{SessionID: "s1", Command: "task update", Arguments: "1.2 done", Duration: 7 * time.Millisecond, Success: true},
		{SessionID: "s2", Command: "restore", Arguments: "20260101_080000", Duration: 90 * time.Millisecond, Success: false, Error: "archive not found"},
	}
	for _, rec := range records {
		require.NoError(t, journal.Record(ctx, rec))
	}

	recent, err := journal.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, "restore", recent[0].Command)
	assert.Equal(t, "s2", recent[0].SessionID)
	assert.False(t, recent[0].Success)
	assert.Equal(t, "archive not found", recent[0].Error)
	assert.Equal(t, 90*time.Millisecond, recent[0].Duration)
	assert.False(t, recent[0].Timestamp.IsZero())

	assert.Equal(t, "task update", recent[1].Command)
	assert.True(t, recent[1].Success)
}

func TestCommandJournal_RecentOnEmptyJournal(t *testing.T) {
	lay := layout.New(t.TempDir())
	ctx := context.Background()

	journal, err := OpenCommandJournal(lay)
	require.NoError(t, err)
	defer func() { _ = journal.Close() }()

	recent, err := journal.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestCommandJournal_PersistsAcrossReopen(t *testing.T) {
	lay := layout.New(t.TempDir())
	ctx := context.Background()

	journal, err := OpenCommandJournal(lay)
	require.NoError(t, err)
	require.NoError(t, journal.Record(ctx, CommandRecord{SessionID: "s1", Command: "status", Success: true}))
	require.NoError(t, journal.Close())

	reopened, err := OpenCommandJournal(lay)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	recent, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "status", recent[0].Command)

	_, err = os.Stat(filepath.Join(lay.CommandLogDir(), JournalFileName))
	assert.NoError(t, err)
}
