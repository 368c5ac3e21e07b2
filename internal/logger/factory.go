package logger

import (
	"github.com/charmbracelet/log"
)

// Setup applies level to the global logger. debug wins over level and
// turns on timestamps.
func Setup(level log.Level, debug bool) log.Level {
	if debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.SetReportTimestamp(level == log.DebugLevel)
	return level
}
