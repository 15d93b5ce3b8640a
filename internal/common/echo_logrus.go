package common

import (
	"context"
	"encoding/json"
	"io"

	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"
)

// EchoLogrusLogger adapts a logrus.Logger to the echo.Logger interface and
// carries the request context so entries are tagged with its operation id.
type EchoLogrusLogger struct {
	*logrus.Logger
	Ctx context.Context
}

var commonLogger = &EchoLogrusLogger{
	Logger: logrus.StandardLogger(),
	Ctx:    context.Background(),
}

func Logger() *EchoLogrusLogger {
	return commonLogger
}

func NewEchoLogrusLogger(logger *logrus.Logger, ctx context.Context) *EchoLogrusLogger {
	return &EchoLogrusLogger{
		Logger: logger,
		Ctx:    ctx,
	}
}

func toEchoLevel(level logrus.Level) log.Lvl {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return log.DEBUG
	case logrus.InfoLevel:
		return log.INFO
	case logrus.WarnLevel:
		return log.WARN
	case logrus.ErrorLevel:
		return log.ERROR
	}

	return log.OFF
}

func (l *EchoLogrusLogger) entry() *logrus.Entry {
	e := l.Logger.WithContext(l.Ctx)
	if oid := OperationIDFromContext(l.Ctx); oid != "" {
		e = e.WithField("operation_id", oid)
	}
	return e
}

func (l *EchoLogrusLogger) Output() io.Writer {
	return l.Out
}

func (l *EchoLogrusLogger) SetOutput(w io.Writer) {
	// disable operations that would change behavior of global logrus logger.
}

func (l *EchoLogrusLogger) Level() log.Lvl {
	return toEchoLevel(l.Logger.Level)
}

func (l *EchoLogrusLogger) SetLevel(v log.Lvl) {
	// disable operations that would change behavior of global logrus logger.
}

func (l *EchoLogrusLogger) SetHeader(h string) {
}

func (l *EchoLogrusLogger) Prefix() string {
	return ""
}

func (l *EchoLogrusLogger) SetPrefix(p string) {
}

func jsonString(j log.JSON) string {
	b, err := json.Marshal(j)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func (l *EchoLogrusLogger) Print(i ...interface{}) {
	l.entry().Print(i...)
}

func (l *EchoLogrusLogger) Printf(format string, args ...interface{}) {
	l.entry().Printf(format, args...)
}

func (l *EchoLogrusLogger) Printj(j log.JSON) {
	l.entry().Println(jsonString(j))
}

func (l *EchoLogrusLogger) Debug(i ...interface{}) {
	l.entry().Debug(i...)
}

func (l *EchoLogrusLogger) Debugf(format string, args ...interface{}) {
	l.entry().Debugf(format, args...)
}

func (l *EchoLogrusLogger) Debugj(j log.JSON) {
	l.entry().Debugln(jsonString(j))
}

func (l *EchoLogrusLogger) Info(i ...interface{}) {
	l.entry().Info(i...)
}

func (l *EchoLogrusLogger) Infof(format string, args ...interface{}) {
	l.entry().Infof(format, args...)
}

func (l *EchoLogrusLogger) Infoj(j log.JSON) {
	l.entry().Infoln(jsonString(j))
}

func (l *EchoLogrusLogger) Warn(i ...interface{}) {
	l.entry().Warn(i...)
}

func (l *EchoLogrusLogger) Warnf(format string, args ...interface{}) {
	l.entry().Warnf(format, args...)
}

func (l *EchoLogrusLogger) Warnj(j log.JSON) {
	l.entry().Warnln(jsonString(j))
}

func (l *EchoLogrusLogger) Error(i ...interface{}) {
	l.entry().Error(i...)
}

func (l *EchoLogrusLogger) Errorf(format string, args ...interface{}) {
	l.entry().Errorf(format, args...)
}

func (l *EchoLogrusLogger) Errorj(j log.JSON) {
	l.entry().Errorln(jsonString(j))
}

func (l *EchoLogrusLogger) Fatal(i ...interface{}) {
	l.entry().Fatal(i...)
}

func (l *EchoLogrusLogger) Fatalf(format string, args ...interface{}) {
	l.entry().Fatalf(format, args...)
}

func (l *EchoLogrusLogger) Fatalj(j log.JSON) {
	l.entry().Fatalln(jsonString(j))
}

func (l *EchoLogrusLogger) Panic(i ...interface{}) {
	l.entry().Panic(i...)
}

func (l *EchoLogrusLogger) Panicf(format string, args ...interface{}) {
	l.entry().Panicf(format, args...)
}

func (l *EchoLogrusLogger) Panicj(j log.JSON) {
	l.entry().Panicln(jsonString(j))
}
