//go:build !prometheus

package watch

import (
	"net/http"

	m "git.home.luguber.info/inful/reportbuilder/internal/metrics"
)

// ResolveRecorder returns a recorder on a private registry when the
// prometheus build tag is not set.
func ResolveRecorder() m.Recorder { return m.NewPrometheusRecorder(nil) }

// prometheusOptionalHandler fallback when prometheus build tag not set.
func prometheusOptionalHandler() http.Handler { return nil }
