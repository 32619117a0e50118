package main

import (
	"fmt"
	"io"
	"os"
)

// LogLevel - log level type
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogError
)

var logLevelPrefix = map[LogLevel]string{
	LogDebug: "DEBUG",
	LogInfo:  "INFO",
	LogError: "ERROR",
}

// Logger - leveled logger used by the command
type Logger interface {
	Debugf(format string, a ...interface{})
	Infof(format string, a ...interface{})
	Errorf(format string, a ...interface{})
}

// writerLogger prints messages at or above logLevel to out.
type writerLogger struct {
	out      io.Writer
	logLevel LogLevel
}

func newLogger(verbose bool) Logger {
	level := LogInfo
	if verbose {
		level = LogDebug
	}
	return &writerLogger{out: os.Stdout, logLevel: level}
}

func (l *writerLogger) printf(level LogLevel, format string, a ...interface{}) {
	if level < l.logLevel {
		return
	}
	fmt.Fprintf(l.out, "%s: %s\n", logLevelPrefix[level], fmt.Sprintf(format, a...))
}

func (l *writerLogger) Debugf(format string, a ...interface{}) { l.printf(LogDebug, format, a...) }
func (l *writerLogger) Infof(format string, a ...interface{})  { l.printf(LogInfo, format, a...) }
func (l *writerLogger) Errorf(format string, a ...interface{}) { l.printf(LogError, format, a...) }

// nullLogger - for tests
type nullLogger struct{}

func (nullLogger) Debugf(format string, a ...interface{}) {}
func (nullLogger) Infof(format string, a ...interface{})  {}
func (nullLogger) Errorf(format string, a ...interface{}) {}
