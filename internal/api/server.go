package api

import (
	"context"
	"net/http"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/transcription-server/ami-publisher/internal/auth"
	"github.com/transcription-server/ami-publisher/internal/common"
	"github.com/transcription-server/ami-publisher/internal/prometheus"
	"github.com/transcription-server/ami-publisher/internal/publisher"
)

type Publisher interface {
	Publish(ctx context.Context, instanceID string) (*publisher.Result, error)
}

// Server exposes a Publisher over HTTP
type Server struct {
	publisher Publisher
	secret    auth.SecretLoader
	sentry    bool
}

func NewServer(p Publisher, secret auth.SecretLoader) *Server {
	return &Server{
		publisher: p,
		secret:    secret,
	}
}

// EnableSentry reports panics and server errors to the hub sentry.Init set up.
func (s *Server) EnableSentry() {
	s.sentry = true
}

// Handler serves the publisher API below path and the prometheus metrics
// at /metrics.
func (s *Server) Handler(path string) http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.HTTPErrorHandler
	e.Pre(common.OperationIDMiddleware)
	e.Use(common.LoggerMiddleware)
	e.Use(middleware.Recover())
	e.Use(requestLogger())
	if s.sentry {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Logger = common.Logger()

	g := e.Group(path, prometheus.MetricsMiddleware)
	g.GET("/status", s.status)
	publish := auth.Middleware(s.secret)
	g.GET("/publish", s.publish, publish)
	g.POST("/publish", s.publish, publish)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logrus.WithFields(logrus.Fields{
				"method":       v.Method,
				"path":         v.URIPath,
				"status":       v.Status,
				"latency":      v.Latency,
				"operation_id": c.Get(common.OperationIDKey),
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("Request handled")
			return nil
		},
	})
}
