package prometheus

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

func MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		TotalRequests.Inc()
		if strings.HasSuffix(ctx.Path(), "/publish") {
			PublishRequests.Inc()
		}
		timer := prometheus.NewTimer(httpDuration.WithLabelValues(pathLabel(ctx.Path())))
		defer timer.ObserveDuration()

		err := next(ctx)
		if statusCode(ctx, err) >= 500 {
			RequestFailures.Inc()
		}
		return err
	}
}
