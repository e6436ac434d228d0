// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := New(&buffer, Config{Level: "warn", Format: FormatJSON})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("queue full", "connection_id", "c1", "dropped", 3)

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buffer.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decoding %q: %v", lines[0], err)
	}
	if record["msg"] != "queue full" || record["connection_id"] != "c1" || record["dropped"] != float64(3) {
		t.Errorf("record = %v", record)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, Config{Level: "loud"}); err == nil {
		t.Error("New accepted level \"loud\"")
	}
	if _, err := New(&bytes.Buffer{}, Config{Format: "xml"}); err == nil {
		t.Error("New accepted format \"xml\"")
	}
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(input)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
}

func TestConsoleHandler(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := New(&buffer, Config{Level: "debug", Format: FormatConsole})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.With("component", "gateway").
		WithGroup("conn").
		Info("connection closed", "id", "c1", "reason", "send failed", slog.Group("stats", "dropped", 2))

	line := buffer.String()
	for _, want := range []string{
		"| INFO  | connection closed",
		" component=gateway",
		" conn.id=c1",
		` conn.reason="send failed"`,
		" conn.stats.dropped=2",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Errorf("uncoloured handler wrote escape codes: %q", line)
	}
}

func TestConsoleHandlerColor(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buffer, slog.LevelInfo, true))
	logger.Debug("hidden")
	logger.Error("boom")

	line := buffer.String()
	if strings.Contains(line, "hidden") {
		t.Errorf("debug record written at info level: %q", line)
	}
	if !strings.Contains(line, "\x1b[") || !strings.Contains(line, "boom") {
		t.Errorf("coloured line = %q", line)
	}
}
