package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CreateImage = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:      "create_image_duration_seconds",
		Namespace: Namespace,
		Subsystem: AWSSubsystem,
		Help:      "Duration of the create image call",
	})

	WaitImage = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:      "wait_image_available_duration_seconds",
		Namespace: Namespace,
		Subsystem: AWSSubsystem,
		Help:      "Duration of waiting for an image to become available",
		Buckets:   []float64{15, 30, 60, 120, 180, 240, 300, 420, 600, 900, 1200, 1800, 2700, 3600},
	})

	PublishTemplate = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:      "publish_launch_template_duration_seconds",
		Namespace: Namespace,
		Subsystem: AWSSubsystem,
		Help:      "Duration of creating or updating the launch template",
	})

	TerminateInstance = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:      "terminate_instance_duration_seconds",
		Namespace: Namespace,
		Subsystem: AWSSubsystem,
		Help:      "Duration of terminating the source instance",
	})

	TerminatedInstances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "terminated_instances",
		Namespace: Namespace,
		Subsystem: AWSSubsystem,
		Help:      "Number of source instances terminated after a template update",
	}, []string{"result"})

	InstanceRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "instance_refreshes",
		Namespace: Namespace,
		Subsystem: AWSSubsystem,
		Help:      "Number of auto scaling group instance refreshes started",
	}, []string{"result"})
)

func CreateImageObserver() ObserveFunc {
	pt := prometheus.NewTimer(CreateImage)
	return pt.ObserveDuration
}

func WaitImageObserver() ObserveFunc {
	pt := prometheus.NewTimer(WaitImage)
	return pt.ObserveDuration
}

func PublishTemplateObserver() ObserveFunc {
	pt := prometheus.NewTimer(PublishTemplate)
	return pt.ObserveDuration
}

func TerminateInstanceObserver() ObserveFunc {
	pt := prometheus.NewTimer(TerminateInstance)
	return pt.ObserveDuration
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func InstanceTerminated(err error) {
	TerminatedInstances.WithLabelValues(resultLabel(err)).Inc()
}

func InstanceRefreshStarted(err error) {
	InstanceRefreshes.WithLabelValues(resultLabel(err)).Inc()
}
