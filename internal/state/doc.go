// Package state provides the domain models and persistence layer for
// project task state.
//
// The single owned artifact is status.json under the project_state
// directory: one ProjectState record holding the task list, the cursor
// (current task/phase), produced artifacts, and an append-only history.
//
// Key components:
//   - Task, TaskStatus and ProjectState models with invariant validation
//   - Store, the narrow persistence interface consumed by the lifecycle layer
//   - JSONStore, atomic single-file JSON persistence (write temp, rename)
//
// Spec and plan documents are read by their own packages (specfile,
// planfile); this package never parses them.
package state
