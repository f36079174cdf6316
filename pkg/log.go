package pkg

import (
	"fmt"
	"log/slog"
	"os"
)

type Logger interface {
	Debugf(format string, a ...any)
	Infof(format string, a ...any)
	Warnf(format string, a ...any)
	Errorf(format string, a ...any)
}

// LevelVar controls the level of DefaultLogger. Setting it to slog.LevelDebug
// turns on verbose output for every component derived from DefaultLogger.
var LevelVar = new(slog.LevelVar)

var DefaultLogger Logger = NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: LevelVar})))

var DebugLogger Logger = NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

type slogLogger struct {
	log *slog.Logger
}

func NewSlogLogger(l *slog.Logger) Logger {
	return &slogLogger{log: l}
}

func (l *slogLogger) Debugf(format string, a ...any) {
	l.log.Debug(fmt.Sprintf(format, a...))
}

func (l *slogLogger) Infof(format string, a ...any) {
	l.log.Info(fmt.Sprintf(format, a...))
}

func (l *slogLogger) Warnf(format string, a ...any) {
	l.log.Warn(fmt.Sprintf(format, a...))
}

func (l *slogLogger) Errorf(format string, a ...any) {
	l.log.Error(fmt.Sprintf(format, a...))
}

func (l *slogLogger) withComponent(name string) Logger {
	return &slogLogger{log: l.log.With("component", name)}
}

// Component returns a logger whose entries are tagged with the given component name.
func Component(logger Logger, name string) Logger {
	if l, ok := logger.(*slogLogger); ok {
		return l.withComponent(name)
	}
	return &prefixLogger{prefix: "[" + name + "] ", inner: logger}
}

type prefixLogger struct {
	prefix string
	inner  Logger
}

func (l *prefixLogger) Debugf(format string, a ...any) { l.inner.Debugf(l.prefix+format, a...) }
func (l *prefixLogger) Infof(format string, a ...any)  { l.inner.Infof(l.prefix+format, a...) }
func (l *prefixLogger) Warnf(format string, a ...any)  { l.inner.Warnf(l.prefix+format, a...) }
func (l *prefixLogger) Errorf(format string, a ...any) { l.inner.Errorf(l.prefix+format, a...) }
