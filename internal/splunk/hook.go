package splunk

import (
	"github.com/sirupsen/logrus"
)

// Hook forwards logrus entries, rendered as JSON, to a Logger.
type Hook struct {
	logger    *Logger
	formatter logrus.Formatter
}

func NewHook(l *Logger) *Hook {
	return &Hook{
		logger:    l,
		formatter: &logrus.JSONFormatter{},
	}
}

func (h *Hook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.DebugLevel,
		logrus.InfoLevel,
		logrus.WarnLevel,
		logrus.ErrorLevel,
		logrus.FatalLevel,
		logrus.PanicLevel,
	}
}

func (h *Hook) Fire(e *logrus.Entry) error {
	msg, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	return h.logger.LogWithTime(e.Time, string(msg))
}
