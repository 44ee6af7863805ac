package state

import (
	"time"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation"
	"git.home.luguber.info/inful/reportbuilder/internal/foundation/normalization"
)

// TaskStatus represents the status of a single task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// TaskStatuses returns all valid statuses in their canonical order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusBlocked}
}

// IsValid reports whether the status is one of the four known values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusBlocked:
		return true
	default:
		return false
	}
}

var statusNormalizer = normalization.NewEnumNormalizer("task status", map[string]TaskStatus{
	"pending":     TaskStatusPending,
	"in_progress": TaskStatusInProgress,
	"in-progress": TaskStatusInProgress,
	"in progress": TaskStatusInProgress,
	"done":        TaskStatusDone,
	"blocked":     TaskStatusBlocked,
}, TaskStatusPending)

// ParseTaskStatus converts free-form user input into a TaskStatus.
// Accepts hyphen/space variants of in_progress; anything else is an error.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	return statusNormalizer.NormalizeWithValidation(raw)
}

// Task is one unit of work derived from the plan document.
// IDs follow the "{phase}.{sequence}" convention, e.g. "1.2".
type Task struct {
	ID            string     `json:"id"`
	Phase         string     `json:"phase"`
	Description   string     `json:"description"`
	Status        TaskStatus `json:"status"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	BlockedReason string     `json:"blocked_reason,omitempty"`
}

// Transition moves the task to a new status at the given instant, keeping
// the timestamp invariants: started_at is stamped on the first move to
// in_progress, completed_at is set iff status is done, and blocked_reason
// survives only while blocked.
func (t *Task) Transition(status TaskStatus, reason string, now time.Time) {
	t.Status = status

	switch status {
	case TaskStatusInProgress:
		if t.StartedAt == nil {
			ts := now
			t.StartedAt = &ts
		}
	case TaskStatusDone:
		ts := now
		t.CompletedAt = &ts
	}

	if status != TaskStatusDone {
		t.CompletedAt = nil
	}
	if status == TaskStatusBlocked {
		t.BlockedReason = reason
	} else {
		t.BlockedReason = ""
	}
}

// HistoryEntry records one state-changing operation, newest last.
type HistoryEntry struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	TaskCount int       `json:"task_count,omitempty"`
	Artifact  string    `json:"artifact,omitempty"`
	Note      string    `json:"note,omitempty"`
}

// PhaseComplete is the current_phase value once no pending or blocked
// tasks remain.
const PhaseComplete = "Complete"

// ProjectState is the full persisted record behind status.json.
type ProjectState struct {
	ProjectName  string         `json:"project_name"`
	Template     string         `json:"template"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CurrentPhase string         `json:"current_phase"`
	CurrentTask  *string        `json:"current_task,omitempty"`
	Tasks        []Task         `json:"tasks"`
	Artifacts    []string       `json:"artifacts"`
	History      []HistoryEntry `json:"history"`
}

// NewProjectState creates a fresh record with empty collections.
// Collections are non-nil so the serialized form always carries [] rather
// than null, keeping round trips byte-stable.
func NewProjectState(name, template string, now time.Time) *ProjectState {
	return &ProjectState{
		ProjectName:  name,
		Template:     template,
		CreatedAt:    now,
		UpdatedAt:    now,
		CurrentPhase: "",
		Tasks:        []Task{},
		Artifacts:    []string{},
		History:      []HistoryEntry{},
	}
}

// TaskByID returns a pointer into Tasks for in-place mutation.
func (ps *ProjectState) TaskByID(id string) (*Task, bool) {
	for i := range ps.Tasks {
		if ps.Tasks[i].ID == id {
			return &ps.Tasks[i], true
		}
	}
	return nil, false
}

// CountByStatus tallies tasks per status. Every valid status is present in
// the result, zero included.
func (ps *ProjectState) CountByStatus() map[TaskStatus]int {
	counts := make(map[TaskStatus]int, 4)
	for _, s := range TaskStatuses() {
		counts[s] = 0
	}
	for _, t := range ps.Tasks {
		counts[t.Status]++
	}
	return counts
}

// CompletionPercent returns done/total as a percentage, 0 when no tasks exist.
func (ps *ProjectState) CompletionPercent() float64 {
	if len(ps.Tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range ps.Tasks {
		if t.Status == TaskStatusDone {
			done++
		}
	}
	return float64(done) / float64(len(ps.Tasks)) * 100
}

// AppendHistory appends an entry, stamping the timestamp when unset.
func (ps *ProjectState) AppendHistory(entry HistoryEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	ps.History = append(ps.History, entry)
}

var taskStatusValidator = foundation.OneOf("status", TaskStatuses())

// Validate checks the record's structural invariants: unique task ids,
// valid statuses, completed_at set iff done, and a cursor that references
// an existing, not-yet-done task.
func (ps *ProjectState) Validate() foundation.ValidationResult {
	var errs []foundation.FieldError

	if ps.ProjectName == "" {
		errs = append(errs, foundation.NewValidationError("project_name", "required", "project name is required"))
	}

	seen := make(map[string]bool, len(ps.Tasks))
	for _, t := range ps.Tasks {
		if t.ID == "" {
			errs = append(errs, foundation.NewValidationError("tasks.id", "required", "task id must not be empty"))
			continue
		}
		if seen[t.ID] {
			errs = append(errs, foundation.NewValidationError("tasks.id", "unique", "duplicate task id "+t.ID))
		}
		seen[t.ID] = true

		if res := taskStatusValidator(t.Status); !res.Valid {
			errs = append(errs, res.Errors...)
		}

		hasCompleted := t.CompletedAt != nil
		if hasCompleted != (t.Status == TaskStatusDone) {
			errs = append(errs, foundation.NewValidationError("tasks.completed_at", "invariant", "completed_at must be set exactly when status is done (task "+t.ID+")"))
		}
	}

	if ps.CurrentTask != nil {
		task, ok := ps.TaskByID(*ps.CurrentTask)
		if !ok {
			errs = append(errs, foundation.NewValidationError("current_task", "dangling", "current_task references unknown task "+*ps.CurrentTask))
		} else if task.Status == TaskStatusDone {
			errs = append(errs, foundation.NewValidationError("current_task", "invariant", "current_task must reference a pending, in_progress or blocked task"))
		}
	}

	if len(errs) > 0 {
		return foundation.Invalid(errs...)
	}
	return foundation.Valid()
}
