package common

import (
	"github.com/sirupsen/logrus"
)

// BuildHook stamps log entries with the commit the binary was built from.
type BuildHook struct {
}

func (h *BuildHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.WarnLevel,
		logrus.ErrorLevel,
		logrus.FatalLevel,
		logrus.PanicLevel,
	}
}

func (h *BuildHook) Fire(e *logrus.Entry) error {
	e.Data["build_commit"] = BuildCommit
	e.Data["build_time"] = BuildTime

	return nil
}
