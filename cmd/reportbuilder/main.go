package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"git.home.luguber.info/inful/reportbuilder/internal/archive"
	"git.home.luguber.info/inful/reportbuilder/internal/auditlog"
	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/reportbuilder/internal/layout"
	"git.home.luguber.info/inful/reportbuilder/internal/lifecycle"
	"git.home.luguber.info/inful/reportbuilder/internal/metrics"
	"git.home.luguber.info/inful/reportbuilder/internal/repair"
	"git.home.luguber.info/inful/reportbuilder/internal/state"
	"git.home.luguber.info/inful/reportbuilder/internal/validation"
	"git.home.luguber.info/inful/reportbuilder/internal/version"
	"git.home.luguber.info/inful/reportbuilder/internal/watch"
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

var CLI struct {
	Root    string `short:"r" help:"Project root directory" default:"." env:"REPORTBUILDER_ROOT"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Init struct {
		Name     string `arg:"" help:"Project name"`
		Template string `help:"Project template" default:"report"`
	} `cmd:"" help:"Create a fresh status record for a project"`

	Plan struct {
		Sync struct {
			Name     string `help:"Project name used when no status record exists yet (default: root directory name)"`
			Template string `help:"Project template used when no status record exists yet" default:"report"`
		} `cmd:"" help:"Re-derive the task list from plan.md"`
	} `cmd:"" help:"Plan document operations"`

	Task struct {
		Update struct {
			ID     string `arg:"" help:"Task id, e.g. 1.2"`
			Status string `arg:"" help:"New status: pending, in_progress, done or blocked"`
			Reason string `help:"Why the task is blocked (used with status blocked)"`
		} `cmd:"" help:"Transition a task to a new status"`

		Next struct{} `cmd:"" help:"Show the next task to work on"`
	} `cmd:"" help:"Task operations"`

	Artifact struct {
		Add struct {
			Path string `arg:"" help:"Artifact path to record"`
		} `cmd:"" help:"Record a produced artifact"`
	} `cmd:"" help:"Artifact operations"`

	Status   struct{} `cmd:"" help:"Show file presence and task progress"`
	Validate struct{} `cmd:"" help:"Check spec, status, plan and directory structure"`
	Repair   struct{} `cmd:"" help:"Create missing directories and synthesize a missing status"`

	Archive struct {
		Reason string `help:"Why this snapshot is being taken"`
	} `cmd:"" help:"Snapshot the current project state"`

	Archives struct{} `cmd:"" help:"List archives, newest first"`

	Restore struct {
		Name      string `arg:"" help:"Archive name, e.g. 20260115_103000"`
		NoArchive bool   `help:"Skip archiving the current state first"`
	} `cmd:"" help:"Restore project state from an archive"`

	Reset struct {
		Reason string `help:"Why the state is being reset"`
	} `cmd:"" help:"Archive the current state, then clear it"`

	Audit struct {
		Limit int `help:"Number of journal entries to show" default:"20"`
	} `cmd:"" help:"Show recent commands from the journal"`

	Watch struct {
		Debounce     time.Duration `help:"Delay before reacting to a burst of edits" default:"2s"`
		ArchiveEvery time.Duration `help:"Interval between periodic safety archives (0 disables them)"`
		MetricsAddr  string        `help:"Serve Prometheus metrics on this address (builds with the prometheus tag only)" placeholder:"HOST:PORT"`
	} `cmd:"" help:"Watch the state directory and react to plan and spec edits"`

	Version struct{} `cmd:"" help:"Print version and build information"`
}

func main() {
	// .env values feed the kong env tags, so load before parsing.
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI)

	// Set up logging
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	lay := layout.New(CLI.Root)
	store := state.NewJSONStore(lay)
	lc := lifecycle.New(store, lay, logger, metrics.NoopRecorder{})
	arch := archive.New(lay, logger, metrics.NoopRecorder{})

	// Execute command
	start := time.Now()
	var err error
	switch ctx.Command() {
	case "init <name>":
		err = runInit(lc)
	case "plan sync":
		err = runPlanSync(lc)
	case "task update <id> <status>":
		err = runTaskUpdate(lc)
	case "task next":
		err = runTaskNext(lc)
	case "artifact add <path>":
		err = runArtifactAdd(lc)
	case "status":
		err = runStatus(lc, arch)
	case "validate":
		err = runValidate(lay)
	case "repair":
		err = runRepair(lay, logger)
	case "archive":
		err = runArchive(arch)
	case "archives":
		err = runArchives(arch)
	case "restore <name>":
		err = runRestore(arch)
	case "reset":
		err = runReset(arch)
	case "audit":
		err = runAudit(lay)
	case "watch":
		err = runWatch(lay, store, logger)
	case "version":
		fmt.Printf("reportbuilder %s (built %s, commit %s)\n", version.Version, version.BuildTime, version.GitCommit)
		return
	}

	journalCommand(lay, ctx.Command(), time.Since(start), err, logger)

	errors.NewCLIErrorAdapter(CLI.Verbose, logger).HandleError(err)
}

func runInit(lc *lifecycle.Manager) error {
	ps, err := lc.InitProject(CLI.Init.Name, CLI.Init.Template)
	if err != nil {
		return err
	}
	fmt.Printf("Initialized project %q (template %s)\n", ps.ProjectName, ps.Template)
	return nil
}

func runPlanSync(lc *lifecycle.Manager) error {
	// Only used when no record exists yet; an existing record keeps its name.
	name := CLI.Plan.Sync.Name
	if name == "" {
		if abs, err := filepath.Abs(CLI.Root); err == nil {
			name = filepath.Base(abs)
		}
	}

	ps, err := lc.InitFromPlan(name, CLI.Plan.Sync.Template)
	if err != nil {
		return err
	}
	fmt.Printf("Parsed plan: %d tasks, phase %q\n", len(ps.Tasks), ps.CurrentPhase)
	return nil
}

func runTaskUpdate(lc *lifecycle.Manager) error {
	status, err := state.ParseTaskStatus(CLI.Task.Update.Status)
	if err != nil {
		return err
	}

	ps, err := lc.UpdateTaskStatus(CLI.Task.Update.ID, status, CLI.Task.Update.Reason)
	if err != nil {
		return err
	}

	fmt.Printf("Task %s is now %s\n", CLI.Task.Update.ID, status)
	if status == state.TaskStatusDone {
		if ps.CurrentTask != nil {
			fmt.Printf("Next task: %s\n", *ps.CurrentTask)
		} else {
			fmt.Printf("Phase: %s\n", ps.CurrentPhase)
		}
	}
	return nil
}

func runTaskNext(lc *lifecycle.Manager) error {
	next, err := lc.NextTask()
	if err != nil {
		return err
	}
	if next.IsNone() {
		fmt.Println("No tasks remaining.")
		return nil
	}

	t := next.Unwrap()
	fmt.Printf("[%s] %s (%s)\n", t.ID, t.Description, t.Status)
	if t.Phase != "" {
		fmt.Printf("Phase: %s\n", t.Phase)
	}
	if t.BlockedReason != "" {
		fmt.Printf("Blocked: %s\n", t.BlockedReason)
	}
	return nil
}

func runArtifactAdd(lc *lifecycle.Manager) error {
	ps, err := lc.AddArtifact(CLI.Artifact.Add.Path)
	if err != nil {
		return err
	}
	fmt.Printf("Artifact recorded: %s (%d total)\n", CLI.Artifact.Add.Path, len(ps.Artifacts))
	return nil
}

func runStatus(lc *lifecycle.Manager, arch *archive.Manager) error {
	for _, warning := range lc.WarnIfMissingCoreFiles() {
		slog.Warn(warning)
	}

	fmt.Print(arch.StateSummary().Render())

	summary, err := lc.StatusSummary()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(summary.Render())
	return nil
}

func runValidate(lay layout.Layout) error {
	report := validation.Project(lay)
	printCheck("spec", report.Spec)
	printCheck("status", report.Status)
	printCheck("plan", report.Plan)
	printCheck("structure", report.Structure)

	if !report.Overall {
		return errors.ValidationError("one or more validation checks failed").
			WithContext("root", CLI.Root).
			Build()
	}
	fmt.Println("All checks passed.")
	return nil
}

func printCheck(name string, result validation.CheckResult) {
	outcome := "ok"
	if !result.Valid {
		outcome = "FAIL"
	}
	fmt.Printf("%-10s %s\n", name, outcome)
	for _, issue := range result.Issues {
		fmt.Printf("           - %s\n", issue)
	}
}

func runRepair(lay layout.Layout, logger *slog.Logger) error {
	actions := repair.Attempt(lay, logger, metrics.NoopRecorder{})
	if len(actions) == 0 {
		fmt.Println("Nothing to repair.")
		return nil
	}
	for _, action := range actions {
		fmt.Println(action)
	}
	return nil
}

func runArchive(arch *archive.Manager) error {
	path, err := arch.Archive(CLI.Archive.Reason, metrics.TriggerManual)
	if err != nil {
		return err
	}
	fmt.Printf("Archived project state to %s\n", path)
	return nil
}

func runArchives(arch *archive.Manager) error {
	infos, err := arch.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No archives.")
		return nil
	}

	for _, info := range infos {
		line := info.Name
		if !info.ArchivedAt.IsZero() {
			line += "  " + info.ArchivedAt.Format("2006-01-02 15:04:05")
		}
		if info.Reason != "" {
			line += "  (" + info.Reason + ")"
		}
		fmt.Println(line)
		if CLI.Verbose {
			for _, f := range info.Files {
				fmt.Printf("    %s\n", f)
			}
		}
	}
	return nil
}

func runRestore(arch *archive.Manager) error {
	result, err := arch.Restore(CLI.Restore.Name, !CLI.Restore.NoArchive)
	if err != nil {
		return err
	}
	if result.SafetyArchive != "" {
		fmt.Printf("Current state archived to %s\n", result.SafetyArchive)
	}
	fmt.Printf("Restored %d entries from %s\n", len(result.Restored), CLI.Restore.Name)
	return nil
}

func runReset(arch *archive.Manager) error {
	result, err := arch.Reset(CLI.Reset.Reason)
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

func runAudit(lay layout.Layout) error {
	journal, err := auditlog.OpenCommandJournal(lay)
	if err != nil {
		return err
	}
	defer func() {
		if err := journal.Close(); err != nil {
			slog.Warn("Failed to close command journal", "error", err)
		}
	}()

	records, err := journal.Recent(context.Background(), CLI.Audit.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No commands recorded.")
		return nil
	}

	for _, rec := range records {
		outcome := "ok"
		if !rec.Success {
			outcome = "failed: " + rec.Error
		}
		fmt.Printf("%s  %-28s %8s  %s\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.Command,
			rec.Duration.Round(time.Millisecond),
			outcome)
	}
	return nil
}

func runWatch(lay layout.Layout, store *state.JSONStore, logger *slog.Logger) error {
	slog.Info("Starting watch mode", "root", CLI.Root)

	recorder := watch.ResolveRecorder()
	lc := lifecycle.New(store, lay, logger, recorder)
	arch := archive.New(lay, logger, recorder)

	// Create main context for the watch session
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	session, err := auditlog.StartSession(lay, lc.WarnIfMissingCoreFiles())
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("Failed to close session log", "error", err)
		}
	}()

	watcher, err := watch.New(lay, store, lc, arch, watch.Config{
		Debounce:     CLI.Watch.Debounce,
		ArchiveEvery: CLI.Watch.ArchiveEvery,
		MetricsAddr:  CLI.Watch.MetricsAddr,
	}, logger, recorder)
	if err != nil {
		return err
	}

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	if err := session.Event("watch_started", lay.StateDir()); err != nil {
		slog.Warn("Failed to record session event", "error", err)
	}

	slog.Info("Watcher started, waiting for shutdown signal...", "session_id", session.ID())
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping watcher...")

	// Stop watcher gracefully
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := watcher.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}

	if err := session.Event("watch_stopped", ""); err != nil {
		slog.Warn("Failed to record session event", "error", err)
	}
	slog.Info("Watcher stopped successfully")
	return nil
}

// journalCommand appends the invocation to the command journal. Journal
// failures must never mask the command's own outcome.
func journalCommand(lay layout.Layout, command string, elapsed time.Duration, cmdErr error, logger *slog.Logger) {
	journal, err := auditlog.OpenCommandJournal(lay)
	if err != nil {
		logger.Warn("Failed to open command journal", "error", err)
		return
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Warn("Failed to close command journal", "error", err)
		}
	}()

	rec := auditlog.CommandRecord{
		Command:   command,
		Arguments: strings.Join(os.Args[1:], " "),
		Duration:  elapsed,
		Success:   cmdErr == nil,
	}
	if cmdErr != nil {
		rec.Error = cmdErr.Error()
	}
	if err := journal.Record(context.Background(), rec); err != nil {
		logger.Warn("Failed to record command", "error", err)
	}
}
