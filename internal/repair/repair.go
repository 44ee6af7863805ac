// Package repair performs best-effort, strictly additive fix-up of the
// project state directory. It creates what is missing and synthesizes
// what can be derived, but never modifies or deletes an existing file.
package repair

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/reportbuilder/internal/layout"
	"git.home.luguber.info/inful/reportbuilder/internal/logfields"
	"git.home.luguber.info/inful/reportbuilder/internal/metrics"
	"git.home.luguber.info/inful/reportbuilder/internal/specfile"
	"git.home.luguber.info/inful/reportbuilder/internal/state"
)

// Attempt repairs the project tree under the given layout and returns the
// actions it performed, one string per action. Failures are reported as
// action strings rather than errors so one stuck item never blocks the
// remaining repairs. logger and recorder may be nil.
func Attempt(lay layout.Layout, logger *slog.Logger, recorder metrics.Recorder) []string {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	actions := []string{}
	record := func(action string) {
		actions = append(actions, action)
		recorder.IncRepairAction()
		logger.Info("repair action", logfields.Reason(action))
	}

	dirs := append([]string{lay.StateDir()}, lay.RequiredDirs()...)
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			record(fmt.Sprintf("failed to create directory %s: %v", dir, err))
			continue
		}
		record(fmt.Sprintf("created directory: %s", dir))
	}

	if action, performed := synthesizeStatus(lay); performed {
		record(action)
	}

	return actions
}

// synthesizeStatus writes a minimal status record from the spec's meta
// fields, only when a spec exists and no status file does.
func synthesizeStatus(lay layout.Layout) (string, bool) {
	if _, err := os.Stat(lay.SpecFile()); err != nil {
		return "", false
	}
	if _, err := os.Stat(lay.StatusFile()); err == nil {
		return "", false
	}

	spec, err := specfile.Load(lay.SpecFile())
	if err != nil {
		return fmt.Sprintf("failed to synthesize status from spec: %v", err), true
	}

	now := time.Now()
	ps := state.NewProjectState(spec.Meta.ProjectName, spec.Meta.ProjectType, now)
	ps.AppendHistory(state.HistoryEntry{Action: "status_repaired", Timestamp: now})

	if err := state.NewJSONStore(lay).Save(ps); err != nil {
		return fmt.Sprintf("failed to write synthesized status: %v", err), true
	}
	return fmt.Sprintf("synthesized status file from spec meta: %s", lay.StatusFile()), true
}
