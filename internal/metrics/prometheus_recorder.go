package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	taskTransitions   *prom.CounterVec
	planReparses      prom.Counter
	taskCount         prom.Gauge
	validationResults *prom.CounterVec
	repairActions     prom.Counter
	archivesCreated   *prom.CounterVec
	archiveDuration   prom.Histogram
	restoreResults    *prom.CounterVec
	resets            prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.taskTransitions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "reportbuilder",
			Name:      "task_transitions_total",
			Help:      "Task status transitions by target status",
		}, []string{"status"})
		pr.planReparses = prom.NewCounter(prom.CounterOpts{
			Namespace: "reportbuilder",
			Name:      "plan_reparses_total",
			Help:      "Times the plan document was re-parsed into tasks",
		})
		pr.taskCount = prom.NewGauge(prom.GaugeOpts{
			Namespace: "reportbuilder",
			Name:      "task_count",
			Help:      "Task count after the most recent plan parse",
		})
		pr.validationResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "reportbuilder",
			Name:      "validation_results_total",
			Help:      "Validation outcomes by component",
		}, []string{"component", "result"})
		pr.repairActions = prom.NewCounter(prom.CounterOpts{
			Namespace: "reportbuilder",
			Name:      "repair_actions_total",
			Help:      "Repair actions performed",
		})
		pr.archivesCreated = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "reportbuilder",
			Name:      "archives_created_total",
			Help:      "Archives created by trigger",
		}, []string{"trigger"})
		pr.archiveDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "reportbuilder",
			Name:      "archive_duration_seconds",
			Help:      "Duration of archive snapshot operations",
			Buckets:   prom.DefBuckets,
		})
		pr.restoreResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "reportbuilder",
			Name:      "restore_results_total",
			Help:      "Restore results by success/failure",
		}, []string{"result"})
		pr.resets = prom.NewCounter(prom.CounterOpts{
			Namespace: "reportbuilder",
			Name:      "resets_total",
			Help:      "State resets performed",
		})
		reg.MustRegister(pr.taskTransitions, pr.planReparses, pr.taskCount, pr.validationResults, pr.repairActions, pr.archivesCreated, pr.archiveDuration, pr.restoreResults, pr.resets)
	})
	return pr
}

func (p *PrometheusRecorder) IncTaskTransition(status string) {
	if p == nil || p.taskTransitions == nil {
		return
	}
	p.taskTransitions.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncPlanReparse() {
	if p == nil || p.planReparses == nil {
		return
	}
	p.planReparses.Inc()
}

func (p *PrometheusRecorder) SetTaskCount(n int) {
	if p == nil || p.taskCount == nil {
		return
	}
	p.taskCount.Set(float64(n))
}

func (p *PrometheusRecorder) IncValidationResult(component string, valid bool) {
	if p == nil || p.validationResults == nil {
		return
	}
	res := "invalid"
	if valid {
		res = "valid"
	}
	p.validationResults.WithLabelValues(component, res).Inc()
}

func (p *PrometheusRecorder) IncRepairAction() {
	if p == nil || p.repairActions == nil {
		return
	}
	p.repairActions.Inc()
}

func (p *PrometheusRecorder) IncArchiveCreated(trigger TriggerLabel) {
	if p == nil || p.archivesCreated == nil {
		return
	}
	p.archivesCreated.WithLabelValues(string(trigger)).Inc()
}

func (p *PrometheusRecorder) ObserveArchiveDuration(d time.Duration) {
	if p == nil || p.archiveDuration == nil {
		return
	}
	p.archiveDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRestoreResult(success bool) {
	if p == nil || p.restoreResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.restoreResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) IncReset() {
	if p == nil || p.resets == nil {
		return
	}
	p.resets.Inc()
}
