package echobench

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session outcomes, used as the "outcome" label of sessions_ended_total.
const (
	OutcomeCompleted = "completed"
	OutcomeClosed    = "closed"
	OutcomeError     = "error"
)

type Metrics struct {
	SessionsAccepted prometheus.Counter
	SessionsActive   prometheus.Gauge
	SessionsEnded    *prometheus.CounterVec
	AcceptErrors     prometheus.Counter

	BytesReceived prometheus.Counter
	BytesSent     prometheus.Counter
	Iterations    prometheus.Counter

	IterationSeconds prometheus.Histogram
	SessionBandwidth prometheus.Gauge

	UploadRequests prometheus.Counter
	UploadBytes    prometheus.Counter
}

// NewMetrics registers the benchmark collectors with reg. Pass
// prometheus.DefaultRegisterer to expose them through promhttp.Handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "echobench_sessions_accepted_total",
			Help: "Connections accepted by the echo server.",
		}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "echobench_sessions_active",
			Help: "Echo sessions currently running.",
		}),
		SessionsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "echobench_sessions_ended_total",
			Help: "Echo sessions ended, by outcome.",
		}, []string{"outcome"}),
		AcceptErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "echobench_accept_errors_total",
			Help: "Temporary accept errors which were retried.",
		}),
		BytesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "echobench_received_bytes_total",
			Help: "Bytes read from echo clients.",
		}),
		BytesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "echobench_sent_bytes_total",
			Help: "Bytes echoed back to clients.",
		}),
		Iterations: f.NewCounter(prometheus.CounterOpts{
			Name: "echobench_iterations_total",
			Help: "Completed receive and echo rounds.",
		}),
		IterationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "echobench_iteration_seconds",
			Help:    "Time to receive and echo one chunk.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		}),
		SessionBandwidth: f.NewGauge(prometheus.GaugeOpts{
			Name: "echobench_last_session_bandwidth_mb_per_second",
			Help: "Bandwidth of the most recently completed session in MB/s.",
		}),
		UploadRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "echobench_upload_requests_total",
			Help: "POST /upload requests handled.",
		}),
		UploadBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "echobench_upload_bytes_total",
			Help: "Body bytes received through POST /upload.",
		}),
	}
}
