// Package metrics exposes prometheus collectors for the recovery service and
// a standalone metrics server bound to the service registry.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ruteri/share-recovery-backend/common"
)

// Outcome label values for RecoveryRequests.
const (
	OutcomeRecovered          = "recovered"
	OutcomeNoConsistentSecret = "no_consistent_secret"
	OutcomeResourceExceeded   = "resource_exceeded"
	OutcomeTimeout            = "timeout"
	OutcomeInvalid            = "invalid"
	OutcomeError              = "error"
)

var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(registry)

	// RecoveryRequests counts recovery evaluations by outcome.
	RecoveryRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "recovery_requests_total",
		Help: "Recovery evaluations by outcome.",
	}, []string{"outcome"})

	// CombinationsEvaluated counts subsets interpolated across all requests.
	CombinationsEvaluated = factory.NewCounter(prometheus.CounterOpts{
		Name: "recovery_combinations_evaluated_total",
		Help: "Share subsets interpolated across all recovery evaluations.",
	})

	// RecoveryDuration observes wall-clock time of recovery evaluations.
	RecoveryDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "recovery_duration_seconds",
		Help:    "Wall-clock duration of recovery evaluations.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	})

	// WrongShares observes how many shares each successful recovery rejected.
	WrongShares = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "recovery_wrong_shares",
		Help:    "Shares classified wrong per successful recovery.",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})

	// ActiveSessions tracks collection sessions not yet complete or failed.
	ActiveSessions = factory.NewGauge(prometheus.GaugeOpts{
		Name: "sessions_active",
		Help: "Collection sessions currently accepting or detecting.",
	})

	buildInfo = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Service name and version of the running binary.",
	}, []string{"service", "version"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler returns an HTTP handler serving the service registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// MetricsServer serves the prometheus registry on its own listener so metric
// scrapes never contend with API traffic.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given service name and listen address.
// The name and build version are exported via the build_info gauge.
func New(name, listenAddr string) (*MetricsServer, error) {
	buildInfo.WithLabelValues(name, common.Version).Set(1)

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:    listenAddr,
			Handler: mux,
		},
	}, nil
}

// ListenAndServe blocks serving metrics until Shutdown or failure.
func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
