// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error or disabled.
	// Empty means info.
	Level string

	// Format is json or console. Empty means json.
	Format string

	// Caller adds file:line to every entry.
	Caller bool

	// Output defaults to os.Stderr so that stdout carries only results.
	Output io.Writer
}

var (
	mu     sync.RWMutex
	global = New(Config{})
)

// New builds a logger from cfg without touching the global logger.
// An unknown level falls back to info; use ParseLevel to reject it instead.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	lc := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.Caller {
		lc = lc.Caller()
	}
	return lc.Logger()
}

// ParseLevel parses a level name. Empty means info; "warning" is
// accepted as warn.
func ParseLevel(level string) (zerolog.Level, error) {
	switch s := strings.ToLower(strings.TrimSpace(level)); s {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	default:
		l, err := zerolog.ParseLevel(s)
		if err != nil || l == zerolog.NoLevel {
			return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
		}
		return l, nil
	}
}

// Init replaces the global logger. The CLI calls it once flags and
// configuration are merged.
func Init(cfg Config) {
	// zerolog filters below its global level before any logger sees the entry.
	if level, err := ParseLevel(cfg.Level); err == nil && level < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(level)
	}

	l := New(cfg)
	mu.Lock()
	global = l
	mu.Unlock()
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Info starts an info entry on the global logger.
func Info() *zerolog.Event {
	l := Logger()
	return l.Info()
}

// Warn starts a warning entry on the global logger.
func Warn() *zerolog.Event {
	l := Logger()
	return l.Warn()
}

// WithComponent returns a child of the global logger tagged with component.
//
//	vkLogger := logging.WithComponent("vk")
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}
