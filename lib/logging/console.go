// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ConsoleHandler writes one human-readable line per record:
//
//	2026-01-15T12:00:00 | INFO  | connection admitted connection_id=... user_id=alice
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	prefix string // group prefix for attribute keys
	attrs  string // pre-rendered WithAttrs attributes

	timestamp, message, attr *color.Color
	levels                   map[slog.Level]*color.Color
}

// NewConsoleHandler returns a handler for records at or above level.
func NewConsoleHandler(w io.Writer, level slog.Leveler, colored bool) *ConsoleHandler {
	h := &ConsoleHandler{
		mu:        &sync.Mutex{},
		w:         w,
		level:     level,
		timestamp: color.New(color.FgGreen),
		message:   color.New(color.FgCyan),
		attr:      color.New(color.FgHiBlack),
		levels: map[slog.Level]*color.Color{
			slog.LevelDebug: color.New(color.FgMagenta),
			slog.LevelInfo:  color.New(color.FgBlue),
			slog.LevelWarn:  color.New(color.FgYellow),
			slog.LevelError: color.New(color.FgRed),
		},
	}
	for _, c := range h.colors() {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return h
}

func (h *ConsoleHandler) colors() []*color.Color {
	all := []*color.Color{h.timestamp, h.message, h.attr}
	for _, c := range h.levels {
		all = append(all, c)
	}
	return all
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ConsoleHandler) Handle(_ context.Context, record slog.Record) error {
	var line strings.Builder
	line.WriteString(h.timestamp.Sprint(record.Time.Format("2006-01-02T15:04:05")))
	line.WriteString(" | ")
	line.WriteString(h.levelColor(record.Level).Sprintf("%-5s", record.Level.String()))
	line.WriteString(" | ")
	line.WriteString(h.message.Sprint(record.Message))
	line.WriteString(h.attrs)
	record.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&line, h.prefix, a)
		return true
	})
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var rendered strings.Builder
	for _, a := range attrs {
		h.appendAttr(&rendered, h.prefix, a)
	}
	clone := *h
	clone.attrs = h.attrs + rendered.String()
	return &clone
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *ConsoleHandler) levelColor(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return h.levels[slog.LevelError]
	case level >= slog.LevelWarn:
		return h.levels[slog.LevelWarn]
	case level >= slog.LevelInfo:
		return h.levels[slog.LevelInfo]
	}
	return h.levels[slog.LevelDebug]
}

func (h *ConsoleHandler) appendAttr(line *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix += a.Key + "."
		}
		for _, member := range a.Value.Group() {
			h.appendAttr(line, groupPrefix, member)
		}
		return
	}
	line.WriteByte(' ')
	line.WriteString(h.attr.Sprint(prefix + a.Key + "="))
	line.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	s := v.String()
	if v.Kind() == slog.KindString && (s == "" || strings.ContainsAny(s, " \t\n\"=")) {
		return fmt.Sprintf("%q", s)
	}
	return s
}
