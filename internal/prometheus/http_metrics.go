package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "total_requests",
		Namespace: Namespace,
		Subsystem: HTTPSubsystem,
		Help:      "total number of http requests made to ami-publisher",
	})
)

var (
	// counts responses with a 5xx status
	RequestFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "total_failed_requests",
		Namespace: Namespace,
		Subsystem: HTTPSubsystem,
		Help:      "total number of http requests answered with a server error",
	})
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "http_duration_seconds",
		Namespace: Namespace,
		Subsystem: HTTPSubsystem,
		Help:      "Duration of HTTP requests.",
		Buckets:   []float64{.025, .05, .1, .5, 1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
	}, []string{"path"})
)
