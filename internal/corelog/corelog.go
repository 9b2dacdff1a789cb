// Package corelog is the core's process-wide logger: four severities
// (debug, info, err, abort), level selected once at startup from
// CPU_LOG_LEVEL, backed by logrus. Abort logs and then terminates the
// process, mirroring the original design's log-then-abort discipline.
package corelog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Level is one of the four severities the core logs at, in increasing
// order of severity.
type Level uint8

// The four log levels, ordered least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelErr
	LevelAbort

	numLevels = 4
)

var levelNames = [numLevels]string{
	LevelDebug: "debug", LevelInfo: "info", LevelErr: "err", LevelAbort: "abort",
}

// String returns the canonical name of a level.
func (l Level) String() string {
	if int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLevel converts a level name to its Level value. Unknown names
// report false, matching the original design's fallback to info.
func ParseLevel(name string) (Level, bool) {
	for i, n := range levelNames {
		if n == name {
			return Level(i), true
		}
	}
	return 0, false
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelErr:
		return logrus.ErrorLevel
	case LevelAbort:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	level, ok := ParseLevel(os.Getenv("CPU_LOG_LEVEL"))
	if !ok {
		level = LevelInfo
	}
	l.SetLevel(toLogrusLevel(level))
	return l
}

// Debug logs at the lowest severity.
func Debug(format string, args ...any) {
	logger.Debugf(format, args...)
}

// Info logs at the default severity.
func Info(format string, args ...any) {
	logger.Infof(format, args...)
}

// Err logs a non-fatal error.
func Err(format string, args ...any) {
	logger.Errorf(format, args...)
}

// Abort logs at the highest severity and terminates the process.
func Abort(format string, args ...any) {
	logger.Fatalf(format, args...)
}
