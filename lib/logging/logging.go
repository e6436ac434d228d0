// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the process *slog.Logger. Libraries never log
// through the global logger; the binaries build one here and inject it.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the handler.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Config mirrors the logging section of the gateway config.
type Config struct {
	Level  string
	Format Format
	// Color enables ANSI colours in console output.
	Color bool
}

// New returns a logger writing to w.
func New(w io.Writer, config Config) (*slog.Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	switch config.Format {
	case FormatJSON, "":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	case FormatConsole:
		return slog.New(NewConsoleHandler(w, level, config.Color)), nil
	}
	return nil, fmt.Errorf("unknown log format %q (want json or console)", config.Format)
}

// ParseLevel accepts debug, info, warn, and error in any case. Empty
// means info.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
