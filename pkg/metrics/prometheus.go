// Package metrics provides Prometheus instrumentation for the sync worker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DocumentsLoaded counts documents confirmed by the index, per stream.
	DocumentsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moviesync_documents_loaded_total",
		Help: "Total number of documents upserted into the index",
	}, []string{"stream"})

	// SinkRetries counts failed index writes that were retried.
	SinkRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moviesync_sink_retries_total",
		Help: "Total number of retried index writes",
	}, []string{"stream"})

	// StreamErrors counts sweeps of a stream aborted by an error, by stage.
	StreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moviesync_stream_errors_total",
		Help: "Total number of stream sweeps aborted by an error",
	}, []string{"stream", "stage"})

	// Watermark exposes the last committed watermark as unix seconds.
	Watermark = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "moviesync_watermark_timestamp_seconds",
		Help: "Last committed modification watermark per stream",
	}, []string{"stream"})

	// SweepDuration tracks the time of one pass over all streams.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "moviesync_sweep_duration_seconds",
		Help:    "Duration of a full sweep over all streams",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

// Handler returns the HTTP handler serving /metrics.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// NewServer builds (but does not start) the metrics HTTP server.
func NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: Handler(),
	}
}
