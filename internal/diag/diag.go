// Package diag is the internal diagnostics logger, gated by BLOSC2_WARN the
// way distri's tools read their own environment at startup. It never runs
// on the filter/codec hot path.
package diag

import (
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/mattn/go-isatty"
)

// Level mirrors spec.md §6.6: WARN raises the internal diagnostics level.
type Level int

const (
	LevelSilent Level = iota
	LevelWarn
	LevelVerbose
)

var (
	mu       sync.Mutex
	level    = levelFromEnv()
	logger   = newLogger()
)

func levelFromEnv() Level {
	v := os.Getenv("BLOSC2_WARN")
	if v == "" {
		return LevelSilent
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return LevelWarn
	}
	if n <= 0 {
		return LevelSilent
	}
	if n >= 2 {
		return LevelVerbose
	}
	return LevelWarn
}

func newLogger() *log.Logger {
	flags := 0
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		// Interactive terminal: keep lines short, no timestamp clutter.
		flags = 0
	} else {
		// Piped/redirected: timestamps help correlate with other log output.
		flags = log.LstdFlags
	}
	return log.New(os.Stderr, "b2core: ", flags)
}

// SetLevel overrides the level derived from BLOSC2_WARN, mainly for tests.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// Warnf logs msg if the diagnostics level is at least LevelWarn.
func Warnf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if level >= LevelWarn {
		logger.Printf(format, args...)
	}
}

// Verbosef logs msg if the diagnostics level is LevelVerbose.
func Verbosef(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if level >= LevelVerbose {
		logger.Printf(format, args...)
	}
}
