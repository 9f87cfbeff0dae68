package rist

import (
	"fmt"
	"strings"

	"github.com/opd-ai/rist/native"
	"github.com/sirupsen/logrus"
)

// LogLevel is the verbosity of the engine's own log output.
type LogLevel int

const (
	LogDisable LogLevel = iota
	LogError
	LogWarn
	LogNotice
	LogInfo
	LogDebug
	LogSimulate
)

// DefaultLogLevel is the level librist applications conventionally use.
const DefaultLogLevel = LogWarn

var logLevelNames = [...]string{"disable", "error", "warn", "notice", "info", "debug", "simulate"}

func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(logLevelNames) {
		return logLevelNames[l]
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// ParseLogLevel accepts the names returned by String.
func ParseLogLevel(s string) (LogLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range logLevelNames {
		if s == name {
			return LogLevel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) native() (native.LogLevel, bool) {
	switch l {
	case LogDisable:
		return native.LogDisable, true
	case LogError:
		return native.LogError, true
	case LogWarn:
		return native.LogWarn, true
	case LogNotice:
		return native.LogNotice, true
	case LogInfo:
		return native.LogInfo, true
	case LogDebug:
		return native.LogDebug, true
	case LogSimulate:
		return native.LogSimulate, true
	}
	return 0, false
}

// SetLogging routes the default library's log output into logrus at the
// given verbosity. It affects sessions created afterwards.
func SetLogging(level LogLevel) error {
	return SetLibraryLogging(DefaultLibrary(), level)
}

// SetLibraryLogging is SetLogging for a specific library.
func SetLibraryLogging(lib native.Library, level LogLevel) error {
	nl, ok := level.native()
	if !ok {
		return newError(KindLoggingSetup, 0)
	}
	if rc := lib.LoggingSet(nl, forwardLog, 0); rc != 0 {
		logrus.WithFields(logrus.Fields{
			"function": "SetLibraryLogging",
			"level":    level.String(),
			"code":     rc,
		}).Error("Failed to install librist log callback")
		return newError(KindLoggingSetup, rc)
	}

	logrus.WithFields(logrus.Fields{
		"function": "SetLibraryLogging",
		"level":    level.String(),
	}).Debug("librist log callback installed")
	return nil
}

// forwardLog runs on engine threads.
func forwardLog(_ uintptr, level native.LogLevel, msg string) int {
	entry := logrus.WithFields(logrus.Fields{
		"function": "librist",
	})
	msg = strings.TrimRight(msg, "\n")

	switch {
	case level <= native.LogError:
		entry.Error(msg)
	case level == native.LogWarn:
		entry.Warn(msg)
	case level == native.LogNotice, level == native.LogInfo:
		entry.Info(msg)
	case level == native.LogDebug:
		entry.Debug(msg)
	default:
		entry.Trace(msg)
	}
	return 0
}
