package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nao1215/devscan/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace prefixes every metric name.
const namespace = "devscan"

// Recorder holds the scan metrics on its own registry.
//
// Design decision: We use a custom registry instead of the global default
// so that tests and multiple servers in one process do not collide on
// metric registration.
type Recorder struct {
	registry *prometheus.Registry

	scansTotal    *prometheus.CounterVec
	pagesTotal    *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec
	probeErrors   *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	fetchDuration prometheus.Histogram
}

// New creates a Recorder with all collectors registered.
func New() (*Recorder, error) {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total number of scans by outcome",
		},
		[]string{"outcome"},
	)
	r.pagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of page fetch attempts by result",
		},
		[]string{"result"},
	)
	r.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Total number of findings by kind and severity",
		},
		[]string{"kind", "severity"},
	)
	r.probeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_errors_total",
			Help:      "Total number of probe failures by probe name",
		},
		[]string{"probe"},
	)
	r.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Wall-clock duration of completed scans",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})
	r.fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Response time distribution of successful page fetches",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	})

	collectors := []prometheus.Collector{
		r.scansTotal,
		r.pagesTotal,
		r.findingsTotal,
		r.probeErrors,
		r.scanDuration,
		r.fetchDuration,
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return r, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// PageFetched counts one fetch attempt. A nil err counts as "ok".
func (r *Recorder) PageFetched(elapsed time.Duration, err error) {
	if err != nil {
		r.pagesTotal.WithLabelValues(fetchResult(err)).Inc()
		return
	}
	r.pagesTotal.WithLabelValues("ok").Inc()
	r.fetchDuration.Observe(elapsed.Seconds())
}

// ProbeFailed counts a probe that returned an error.
func (r *Recorder) ProbeFailed(name string, _ error) {
	r.probeErrors.WithLabelValues(name).Inc()
}

// ScanFinished records a finished scan. A nil report with a non-nil err
// counts as a failed scan.
func (r *Recorder) ScanFinished(report *model.Report, err error) {
	if err != nil {
		if model.IsInputError(err) {
			r.scansTotal.WithLabelValues("rejected").Inc()
		} else {
			r.scansTotal.WithLabelValues("failed").Inc()
		}
		return
	}
	if report == nil {
		return
	}

	r.scansTotal.WithLabelValues(report.Outcome.String()).Inc()
	r.scanDuration.Observe(report.Duration.Seconds())
	for _, findings := range report.Vulnerabilities {
		for _, f := range findings {
			r.findingsTotal.WithLabelValues(f.Kind.String(), f.Severity.String()).Inc()
		}
	}
}

// fetchResult maps a fetch error to a low-cardinality label.
func fetchResult(err error) string {
	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind.String()
	}
	return "error"
}
