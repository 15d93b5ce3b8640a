package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace     = "ami_publisher"
	AWSSubsystem  = "aws"
	HTTPSubsystem = "http"
)

var (
	PublishRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "total_publish_requests",
		Namespace: Namespace,
		Help:      "total number of authenticated publish requests",
	})
)

var (
	// result is one of "created", "updated" or "failed"
	PublishResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "publish_results",
		Namespace: Namespace,
		Help:      "Outcome of publish runs",
	}, []string{"result"})
)

func PublishCreated() {
	PublishResults.WithLabelValues("created").Inc()
}

func PublishUpdated() {
	PublishResults.WithLabelValues("updated").Inc()
}

func PublishFailed() {
	PublishResults.WithLabelValues("failed").Inc()
}
