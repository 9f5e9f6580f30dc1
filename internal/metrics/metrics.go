package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels aggregation runs that produced a dataset.
	OutcomeSuccess = "success"
	// OutcomeError labels runs that failed to load or aggregate.
	OutcomeError = "error"

	PipelineSpatial  = "spatial"
	PipelineTemporal = "temporal"
)

var (
	aggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseheat",
			Name:      "aggregations_total",
			Help:      "Total number of dataset aggregations, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	aggregationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "caseheat",
			Name:      "aggregation_seconds",
			Help:      "Time spent loading and aggregating a dataset.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	recordsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseheat",
			Name:      "records_skipped_total",
			Help:      "Malformed records skipped during aggregation, partitioned by pipeline and reason.",
		},
		[]string{"pipeline", "reason"},
	)

	outputPoints = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "caseheat",
			Name:      "output_points",
			Help:      "Number of points in the current dataset, partitioned by pipeline.",
		},
		[]string{"pipeline"},
	)

	filterUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseheat",
			Name:      "filter_updates_total",
			Help:      "Time filter replacements, partitioned by action.",
		},
		[]string{"action"},
	)

	httpRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caseheat",
			Name:      "http_request_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Register attaches caseheat collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		aggregationsTotal,
		aggregationDurationSeconds,
		recordsSkippedTotal,
		outputPoints,
		filterUpdatesTotal,
		httpRequestSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAggregation records an aggregation duration and outcome label.
func ObserveAggregation(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	aggregationsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	aggregationDurationSeconds.Observe(duration.Seconds())
}

// AddSkipped counts malformed records of one reason.
func AddSkipped(pipeline, reason string, n int) {
	if n <= 0 {
		return
	}
	recordsSkippedTotal.WithLabelValues(pipeline, reason).Add(float64(n))
}

// SetOutputPoints records the size of the current output.
func SetOutputPoints(pipeline string, n int) {
	outputPoints.WithLabelValues(pipeline).Set(float64(n))
}

// IncFilterUpdate counts a filter set or clear.
func IncFilterUpdate(action string) {
	filterUpdatesTotal.WithLabelValues(action).Inc()
}

// ObserveRequest records the latency of one HTTP request.
func ObserveRequest(method, route, status string, duration time.Duration) {
	httpRequestSeconds.WithLabelValues(method, route, status).Observe(duration.Seconds())
}
