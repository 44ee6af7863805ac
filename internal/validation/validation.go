// Package validation runs structural checks over the on-disk project
// artifacts. Checks never fail hard: each returns a CheckResult so
// callers can decide whether to repair, surface issues, or proceed.
package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/reportbuilder/internal/layout"
	"git.home.luguber.info/inful/reportbuilder/internal/specfile"
	"git.home.luguber.info/inful/reportbuilder/internal/state"
)

// CheckResult is the outcome of one structural check.
type CheckResult struct {
	Valid  bool
	Issues []string
}

func pass() CheckResult {
	return CheckResult{Valid: true, Issues: []string{}}
}

func fail(issues ...string) CheckResult {
	return CheckResult{Valid: false, Issues: issues}
}

// Report aggregates the per-component checks. Overall is the conjunction
// of all four so callers can gate on it while still targeting repair at
// the component that failed.
type Report struct {
	Spec      CheckResult
	Status    CheckResult
	Plan      CheckResult
	Structure CheckResult
	Overall   bool
}

// Spec checks the spec document: present, non-empty, well-formed YAML,
// version >= 1 and both meta fields set.
func Spec(lay layout.Layout) CheckResult {
	spec, err := specfile.Load(lay.SpecFile())
	if err != nil {
		switch {
		case errors.HasCategory(err, errors.CategoryMissingFile):
			return fail(fmt.Sprintf("spec file missing: %s", lay.SpecFile()))
		case errors.HasCategory(err, errors.CategoryEmptyFile):
			return fail(fmt.Sprintf("spec file is empty: %s", lay.SpecFile()))
		default:
			return fail(fmt.Sprintf("spec file is not valid YAML: %v", err))
		}
	}

	if result := spec.Validate(); !result.Valid {
		issues := make([]string, 0, len(result.Errors))
		for _, fe := range result.Errors {
			issues = append(issues, fe.Message)
		}
		return fail(issues...)
	}
	return pass()
}

// statusProbe mirrors the status.json schema with pointer fields so a
// missing key is distinguishable from a zero value.
type statusProbe struct {
	ProjectName *string `json:"project_name"`
	Tasks       []struct {
		ID     *string `json:"id"`
		Status *string `json:"status"`
	} `json:"tasks"`
}

// Status checks the status document: present, non-empty, well-formed
// JSON, project_name set, and every task carrying an id and a known
// status value.
func Status(lay layout.Layout) CheckResult {
	data, err := os.ReadFile(lay.StatusFile())
	if err != nil {
		if os.IsNotExist(err) {
			return fail(fmt.Sprintf("status file missing: %s", lay.StatusFile()))
		}
		return fail(fmt.Sprintf("status file unreadable: %v", err))
	}
	if strings.TrimSpace(string(data)) == "" {
		return fail(fmt.Sprintf("status file is empty: %s", lay.StatusFile()))
	}

	var probe statusProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return fail(fmt.Sprintf("status file is not valid JSON: %v", err))
	}

	var issues []string
	if probe.ProjectName == nil || *probe.ProjectName == "" {
		issues = append(issues, "status file is missing project_name")
	}
	for i, task := range probe.Tasks {
		if task.ID == nil || *task.ID == "" {
			issues = append(issues, fmt.Sprintf("task %d is missing an id", i))
		}
		switch {
		case task.Status == nil:
			issues = append(issues, fmt.Sprintf("task %d is missing a status", i))
		case !state.TaskStatus(*task.Status).IsValid():
			issues = append(issues, fmt.Sprintf("task %d has invalid status %q", i, *task.Status))
		}
	}

	if len(issues) > 0 {
		return fail(issues...)
	}
	return pass()
}

// Plan checks the plan document. The plan is optional: absence is valid,
// presence with only whitespace is not.
func Plan(lay layout.Layout) CheckResult {
	data, err := os.ReadFile(lay.PlanFile())
	if err != nil {
		if os.IsNotExist(err) {
			return pass()
		}
		return fail(fmt.Sprintf("plan file unreadable: %v", err))
	}
	if strings.TrimSpace(string(data)) == "" {
		return fail(fmt.Sprintf("plan file is empty: %s", lay.PlanFile()))
	}
	return pass()
}

// structure checks the required subdirectories once a state directory
// exists. With no state directory at all the check passes vacuously;
// the spec and status checks already report that situation.
func structure(lay layout.Layout) CheckResult {
	if _, err := os.Stat(lay.StateDir()); os.IsNotExist(err) {
		return pass()
	}

	var issues []string
	for _, dir := range []string{lay.SpecHistoryDir(), lay.LogsDir()} {
		info, err := os.Stat(dir)
		switch {
		case os.IsNotExist(err):
			issues = append(issues, fmt.Sprintf("required directory missing: %s", dir))
		case err != nil:
			issues = append(issues, fmt.Sprintf("required directory unreadable: %v", err))
		case !info.IsDir():
			issues = append(issues, fmt.Sprintf("required directory is a file: %s", dir))
		}
	}

	if len(issues) > 0 {
		return fail(issues...)
	}
	return pass()
}

// Project runs all four checks and reports them individually plus the
// combined verdict.
func Project(lay layout.Layout) Report {
	report := Report{
		Spec:      Spec(lay),
		Status:    Status(lay),
		Plan:      Plan(lay),
		Structure: structure(lay),
	}
	report.Overall = report.Spec.Valid && report.Status.Valid && report.Plan.Valid && report.Structure.Valid
	return report
}
