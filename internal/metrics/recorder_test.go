package metrics

import (
	"testing"
	"time"
)

type testRecorder struct {
	transitions map[string]int
	reparses    int
	taskCount   int
	validations map[string]map[bool]int
	repairs     int
	archives    map[TriggerLabel]int
	durations   int
	restores    map[bool]int
	resets      int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{
		transitions: map[string]int{},
		validations: map[string]map[bool]int{},
		archives:    map[TriggerLabel]int{},
		restores:    map[bool]int{},
	}
}

func (t *testRecorder) IncTaskTransition(status string) { t.transitions[status]++ }
func (t *testRecorder) IncPlanReparse()                 { t.reparses++ }
func (t *testRecorder) SetTaskCount(n int)              { t.taskCount = n }
func (t *testRecorder) IncValidationResult(component string, valid bool) {
	m, ok := t.validations[component]
	if !ok {
		m = map[bool]int{}
		t.validations[component] = m
	}
	m[valid]++
}
func (t *testRecorder) IncRepairAction()                     { t.repairs++ }
func (t *testRecorder) IncArchiveCreated(tr TriggerLabel)    { t.archives[tr]++ }
func (t *testRecorder) ObserveArchiveDuration(time.Duration) { t.durations++ }
func (t *testRecorder) IncRestoreResult(success bool)        { t.restores[success]++ }
func (t *testRecorder) IncReset()                            { t.resets++ }

var (
	_ Recorder = (*testRecorder)(nil)
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestTestRecorder_CapturesCalls(t *testing.T) {
	rec := newTestRecorder()
	rec.IncTaskTransition("done")
	rec.IncTaskTransition("done")
	rec.IncPlanReparse()
	rec.SetTaskCount(7)
	rec.IncValidationResult("spec", true)
	rec.IncValidationResult("spec", false)
	rec.IncArchiveCreated(TriggerManual)
	rec.IncRestoreResult(true)
	rec.IncReset()

	if rec.transitions["done"] != 2 {
		t.Fatalf("expected 2 done transitions, got %d", rec.transitions["done"])
	}
	if rec.reparses != 1 || rec.taskCount != 7 {
		t.Fatalf("unexpected reparse/taskCount: %d/%d", rec.reparses, rec.taskCount)
	}
	if rec.validations["spec"][true] != 1 || rec.validations["spec"][false] != 1 {
		t.Fatalf("unexpected validation counts: %+v", rec.validations)
	}
	if rec.archives[TriggerManual] != 1 || rec.restores[true] != 1 || rec.resets != 1 {
		t.Fatalf("unexpected archive/restore/reset counts")
	}
}
