//go:build prometheus

package watch

import (
	"net/http"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	m "git.home.luguber.info/inful/reportbuilder/internal/metrics"
)

// watchRegistry backs both the recorder and the scrape endpoint, so every
// counter the engine records in watch mode is visible to one scrape.
var watchRegistry = prom.NewRegistry()

var registerCollectorsOnce sync.Once

// ResolveRecorder returns a Prometheus-backed metrics recorder registered on
// the watch registry.
func ResolveRecorder() m.Recorder { return m.NewPrometheusRecorder(watchRegistry) }

// prometheusOptionalHandler returns the scrape handler for the watch registry.
func prometheusOptionalHandler() http.Handler {
	registerCollectorsOnce.Do(func() {
		watchRegistry.MustRegister(
			promcollect.NewGoCollector(),
			promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}),
		)
	})
	return m.HTTPHandler(watchRegistry)
}
