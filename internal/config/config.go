// Package config handles logger setup and layout configuration files.
package config

import (
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger creates a logger for the verbosity flags. Quiet mode only
// reports errors.
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	switch {
	case debug:
		cfg.Level = log.DebugLevel
	case quiet:
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}
