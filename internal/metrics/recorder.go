package metrics

import "time"

// TriggerLabel enumerates what initiated an archive.
type TriggerLabel string

const (
	TriggerManual    TriggerLabel = "manual"
	TriggerScheduled TriggerLabel = "scheduled"
	TriggerRestore   TriggerLabel = "restore"
	TriggerReset     TriggerLabel = "reset"
)

// Recorder defines observability hooks for state-engine metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for nil receivers
// when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	IncTaskTransition(status string)
	IncPlanReparse()
	SetTaskCount(n int)
	IncValidationResult(component string, valid bool)
	IncRepairAction()
	IncArchiveCreated(trigger TriggerLabel)
	ObserveArchiveDuration(d time.Duration)
	IncRestoreResult(success bool)
	IncReset()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncTaskTransition(string)             {}
func (NoopRecorder) IncPlanReparse()                      {}
func (NoopRecorder) SetTaskCount(int)                     {}
func (NoopRecorder) IncValidationResult(string, bool)     {}
func (NoopRecorder) IncRepairAction()                     {}
func (NoopRecorder) IncArchiveCreated(TriggerLabel)       {}
func (NoopRecorder) ObserveArchiveDuration(time.Duration) {}
func (NoopRecorder) IncRestoreResult(bool)                {}
func (NoopRecorder) IncReset()                            {}
