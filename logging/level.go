package logging

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is this package's own leveled-logging enum, mapped onto zapcore's
// levels so the impl type can sit on top of either a zap core or a plain
// Appender.
type Level int8

const (
	// DEBUG is the most verbose level.
	DEBUG Level = iota - 1
	// INFO is the default level.
	INFO
	// WARN flags a recoverable but noteworthy condition.
	WARN
	// ERROR flags a failure.
	ERROR
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// AsZap converts Level to the equivalent zapcore.Level.
func (l Level) AsZap() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LevelFromString parses a level name written in lower case, upper case, or
// with only the first letter capitalized (e.g. "debug", "DEBUG", "Debug").
func LevelFromString(s string) (Level, error) {
	switch s {
	case "Debug", "debug", "DEBUG":
		return DEBUG, nil
	case "Info", "info", "INFO":
		return INFO, nil
	case "Warn", "warn", "WARN":
		return WARN, nil
	case "Error", "error", "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %q", s)
	}
}

// AtomicLevel is an atomically-updatable Level, allowing a running logger's
// level to be changed concurrently with logging calls.
type AtomicLevel struct {
	v atomic.Int32
}

// NewAtomicLevelAt constructs an AtomicLevel initialized to level.
func NewAtomicLevelAt(level Level) AtomicLevel {
	var a AtomicLevel
	a.Set(level)
	return a
}

// Set updates the level.
func (a *AtomicLevel) Set(level Level) {
	a.v.Store(int32(level))
}

// Get returns the current level.
func (a *AtomicLevel) Get() Level {
	return Level(a.v.Load())
}

// GlobalLogLevel is consulted by impl.AsZap so zap-backed output (used only
// when an appender implements zapcore.Core) observes runtime level changes.
// Setting it to zapcore.DebugLevel also makes every impl logger emit all
// levels regardless of its own level. It is a zap.AtomicLevel rather than
// this package's own AtomicLevel because it is assigned straight into a
// zap.Config.
var GlobalLogLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
