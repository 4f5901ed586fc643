package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var defaultLog *logrus.Logger

func newLogger(w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	return log
}

func init() {
	defaultLog = newLogger(os.Stdout)
}

// SetDebug - Switch to DEBUG level
func SetDebug() {
	defaultLog.SetLevel(logrus.DebugLevel)
}

// SetError - Only errors reach the console. Used when stdout carries JSON.
func SetError() {
	defaultLog.SetLevel(logrus.ErrorLevel)
}

// SetOutput - Redirect every message to w
func SetOutput(w io.Writer) {
	defaultLog.SetOutput(w)
}

// Scenario returns an entry tagged with the scenario and phase being run,
// phase may be empty.
func Scenario(name, phase string) *logrus.Entry {
	fields := logrus.Fields{"scenario": name}
	if phase != "" {
		fields["phase"] = phase
	}
	return defaultLog.WithFields(fields)
}

// Debug - Debug message
func Debug(args ...interface{}) {
	defaultLog.Debug(args...)
}

// Debugf - Debug message
func Debugf(format string, args ...interface{}) {
	defaultLog.Debugf(format, args...)
}

// Error - Error message
func Error(args ...interface{}) {
	defaultLog.Error(args...)
}

// Errorf - Error message
func Errorf(format string, args ...interface{}) {
	defaultLog.Errorf(format, args...)
}

// Info - Info Message
func Info(args ...interface{}) {
	defaultLog.Info(args...)
}

// Infof - Info Message
func Infof(format string, args ...interface{}) {
	defaultLog.Infof(format, args...)
}
