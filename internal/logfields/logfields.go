package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyProject    = "project"
	KeyTaskID     = "task_id"
	KeyTaskStatus = "task_status"
	KeyPhase      = "phase"
	KeyTaskCount  = "task_count"
	KeyPath       = "path"
	KeyArchive    = "archive"
	KeyReason     = "reason"
	KeySessionID  = "session_id"
	KeyCommand    = "command"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Project(name string) slog.Attr   { return slog.String(KeyProject, name) }
func TaskID(id string) slog.Attr      { return slog.String(KeyTaskID, id) }
func TaskStatus(s string) slog.Attr   { return slog.String(KeyTaskStatus, s) }
func Phase(p string) slog.Attr        { return slog.String(KeyPhase, p) }
func TaskCount(n int) slog.Attr       { return slog.Int(KeyTaskCount, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Archive(name string) slog.Attr   { return slog.String(KeyArchive, name) }
func Reason(r string) slog.Attr       { return slog.String(KeyReason, r) }
func SessionID(id string) slog.Attr   { return slog.String(KeySessionID, id) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
