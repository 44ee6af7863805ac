// Package watch keeps the project state in step with human edits: it
// monitors the state directory and re-derives tasks when plan.md changes,
// re-validates (with advisory repair) when spec.yaml changes, and can
// take periodic safety archives.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/reportbuilder/internal/archive"
	"git.home.luguber.info/inful/reportbuilder/internal/layout"
	"git.home.luguber.info/inful/reportbuilder/internal/lifecycle"
	"git.home.luguber.info/inful/reportbuilder/internal/logfields"
	"git.home.luguber.info/inful/reportbuilder/internal/metrics"
	"git.home.luguber.info/inful/reportbuilder/internal/repair"
	"git.home.luguber.info/inful/reportbuilder/internal/state"
	"git.home.luguber.info/inful/reportbuilder/internal/validation"
)

type action int

const (
	actionReparse action = iota
	actionValidate
	actionArchive
)

// Config controls watcher behavior.
type Config struct {
	// Debounce collapses rapid successive edits into one reaction.
	Debounce time.Duration
	// ArchiveEvery enables a periodic safety archive when positive.
	ArchiveEvery time.Duration
	// MetricsAddr serves Prometheus metrics on this address when set.
	// Builds without the prometheus tag log a warning and skip it.
	MetricsAddr string
}

// Watcher monitors one project's state directory. All engine mutations
// run on a single goroutine so the one-writer discipline holds even when
// file events and the archive schedule coincide.
type Watcher struct {
	layout    layout.Layout
	store     state.Store
	lifecycle *lifecycle.Manager
	archiver  *archive.Manager
	logger    *slog.Logger
	recorder  metrics.Recorder

	watcher    *fsnotify.Watcher
	scheduler  gocron.Scheduler
	metricsSrv *http.Server

	mu           sync.Mutex
	stopChan     chan struct{}
	planChan     chan struct{}
	specChan     chan struct{}
	applyChan    chan action
	debounceTime time.Duration
	archiveEvery time.Duration
	metricsAddr  string
}

// New creates a Watcher. logger and recorder may be nil.
func New(lay layout.Layout, store state.Store, lc *lifecycle.Manager, arch *archive.Manager, cfg Config, logger *slog.Logger, recorder metrics.Recorder) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Watcher{
		layout:       lay,
		store:        store,
		lifecycle:    lc,
		archiver:     arch,
		logger:       logger,
		recorder:     recorder,
		watcher:      fsWatcher,
		scheduler:    scheduler,
		stopChan:     make(chan struct{}),
		planChan:     make(chan struct{}, 1),
		specChan:     make(chan struct{}, 1),
		applyChan:    make(chan action, 4),
		debounceTime: cfg.Debounce,
		archiveEvery: cfg.ArchiveEvery,
		metricsAddr:  cfg.MetricsAddr,
	}, nil
}

// Start begins monitoring. The state directory is created if absent so
// the watch can be armed before the first init.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	actions := repair.Attempt(w.layout, w.logger, w.recorder)
	if len(actions) > 0 {
		w.logger.Info("prepared state directory for watching", slog.Int("actions", len(actions)))
	}

	if err := w.watcher.Add(w.layout.StateDir()); err != nil {
		return fmt.Errorf("failed to watch state directory %s: %w", w.layout.StateDir(), err)
	}

	if w.archiveEvery > 0 {
		_, err := w.scheduler.NewJob(
			gocron.DurationJob(w.archiveEvery),
			gocron.NewTask(w.triggerArchive),
			gocron.WithName("safety-archive"),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule safety archive: %w", err)
		}
		w.scheduler.Start()
	}

	w.startMetricsServer()

	w.logger.Info("watching project state", logfields.Path(w.layout.StateDir()))

	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)
	go w.applyLoop(ctx)

	return nil
}

// startMetricsServer exposes the scrape endpoint when an address is configured
// and the build carries prometheus support.
func (w *Watcher) startMetricsServer() {
	if w.metricsAddr == "" {
		return
	}
	handler := prometheusOptionalHandler()
	if handler == nil {
		w.logger.Warn("metrics address configured but this build has no prometheus support", slog.String("addr", w.metricsAddr))
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	w.metricsSrv = &http.Server{Addr: w.metricsAddr, Handler: mux, ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}
	go func() {
		if err := w.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			w.logger.Error("metrics endpoint error", logfields.Error(err))
		}
	}()
	w.logger.Info("serving metrics", slog.String("addr", w.metricsAddr))
}

// Stop shuts down the watcher, scheduler, and metrics endpoint.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Info("stopping state watcher")
	close(w.stopChan)

	if w.metricsSrv != nil {
		if err := w.metricsSrv.Shutdown(ctx); err != nil {
			w.logger.Error("error stopping metrics endpoint", logfields.Error(err))
		}
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("error closing file watcher", logfields.Error(err))
	}
	return w.scheduler.Shutdown()
}

// watchLoop routes raw file events to the per-file trigger channels.
func (w *Watcher) watchLoop(ctx context.Context) {
	planFile := filepath.Base(w.layout.PlanFile())
	specFile := filepath.Base(w.layout.SpecFile())

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			relevant := event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
			switch filepath.Base(event.Name) {
			case planFile:
				if event.Op&fsnotify.Remove != 0 {
					w.logger.Warn("plan file removed", logfields.Path(event.Name))
					continue
				}
				if relevant {
					trigger(w.planChan)
				}
			case specFile:
				if event.Op&fsnotify.Remove != 0 {
					w.logger.Warn("spec file removed", logfields.Path(event.Name))
					continue
				}
				if relevant {
					trigger(w.specChan)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("state watcher error", logfields.Error(err))
		}
	}
}

// debounceLoop collapses bursts of triggers into single queued actions.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var planTimer, specTimer *time.Timer
	stopTimers := func() {
		if planTimer != nil {
			planTimer.Stop()
		}
		if specTimer != nil {
			specTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimers()
			return
		case <-w.stopChan:
			stopTimers()
			return
		case <-w.planChan:
			if planTimer != nil {
				planTimer.Stop()
			}
			planTimer = time.AfterFunc(w.debounceTime, func() { w.enqueue(actionReparse) })
		case <-w.specChan:
			if specTimer != nil {
				specTimer.Stop()
			}
			specTimer = time.AfterFunc(w.debounceTime, func() { w.enqueue(actionValidate) })
		}
	}
}

// applyLoop is the single goroutine allowed to mutate state.
func (w *Watcher) applyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case act := <-w.applyChan:
			switch act {
			case actionReparse:
				w.performReparse()
			case actionValidate:
				w.performValidate()
			case actionArchive:
				w.performArchive()
			}
		}
	}
}

func (w *Watcher) enqueue(act action) {
	select {
	case w.applyChan <- act:
	default:
		// Action of this kind already pending.
	}
}

func trigger(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (w *Watcher) triggerArchive() {
	w.enqueue(actionArchive)
}

// performReparse re-derives the task list from the edited plan. Watching
// never initializes a project: without existing state the edit is noted
// and skipped.
func (w *Watcher) performReparse() {
	if !w.store.Exists() {
		w.logger.Warn("plan changed but no project state exists, skipping reparse",
			logfields.Path(w.layout.PlanFile()))
		return
	}

	ps, err := w.lifecycle.InitFromPlan("", "")
	if err != nil {
		w.logger.Error("failed to reparse plan", logfields.Error(err))
		return
	}
	w.logger.Info("plan reparsed", logfields.TaskCount(len(ps.Tasks)), logfields.Phase(ps.CurrentPhase))
}

// performValidate re-checks the project after a spec edit and repairs
// additively when something is off.
func (w *Watcher) performValidate() {
	report := validation.Project(w.layout)
	w.recorder.IncValidationResult("spec", report.Spec.Valid)
	w.recorder.IncValidationResult("status", report.Status.Valid)
	w.recorder.IncValidationResult("plan", report.Plan.Valid)
	w.recorder.IncValidationResult("structure", report.Structure.Valid)

	if report.Overall {
		w.logger.Info("spec change validated")
		return
	}

	issues := append(append(append(append([]string{},
		report.Spec.Issues...),
		report.Status.Issues...),
		report.Plan.Issues...),
		report.Structure.Issues...)
	for _, issue := range issues {
		w.logger.Warn("validation issue", logfields.Reason(issue))
	}

	actions := repair.Attempt(w.layout, w.logger, w.recorder)
	w.logger.Info("attempted repair after spec change", slog.Int("actions", len(actions)))
}

func (w *Watcher) performArchive() {
	path, err := w.archiver.Archive("scheduled", metrics.TriggerScheduled)
	if err != nil {
		w.logger.Error("scheduled archive failed", logfields.Error(err))
		return
	}
	w.logger.Info("scheduled archive created", logfields.Archive(filepath.Base(path)))
}
