package echobench

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/bytebufferpool"
)

var _ http.Handler = &UploadHandler{}

// UploadHandler counts POSTed bodies across all connections. Once expected
// requests were seen, every further request logs a summary of all bytes
// received so far. Traffic is one-directional, so bytes are not doubled.
type UploadHandler struct {
	rec      *SharedRecorder
	expected int64
	rep      *Reporter
	metrics  *Metrics

	pool bytebufferpool.Pool
}

// NewUploadHandler returns a handler reporting through rep once expected
// requests were counted by rec. A nil metrics gets a private registry.
func NewUploadHandler(
	rec *SharedRecorder,
	expected int,
	rep *Reporter,
	metrics *Metrics,
) *UploadHandler {
	if rep == nil {
		rep = NewReporter(nil)
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &UploadHandler{
		rec:      rec,
		expected: int64(expected),
		rep:      rep,
		metrics:  metrics,
	}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bb := h.pool.Get()
	defer h.pool.Put(bb)

	if _, err := bb.ReadFrom(r.Body); err != nil {
		http.Error(w, "could not read body", http.StatusBadRequest)
		return
	}
	n := bb.Len()

	obs := h.rec.Observe(n)
	h.metrics.UploadRequests.Inc()
	h.metrics.UploadBytes.Add(float64(n))

	if obs.First {
		h.rep.FirstEvent()
	}
	h.rep.Received(obs.Count, n)

	if obs.Count >= h.expected {
		h.rep.Summary(h.rec.Summary())
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewUploadMux routes POST /upload to h and GET /metrics to the collectors
// gathered by g. Other methods on /upload get 405.
func NewUploadMux(h http.Handler, g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /upload", h)
	if g != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	return mux
}
