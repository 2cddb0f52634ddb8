// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerJSONWhenNotTerminal(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, false, slog.LevelInfo)
	logger.Info("served manifest", "bytes", 11)

	var record map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %q (%v)", buffer.String(), err)
	}
	if record["msg"] != "served manifest" || record["bytes"] != float64(11) {
		t.Errorf("record = %v", record)
	}
}

func TestNewLoggerTextOnTerminal(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, true, slog.LevelInfo)
	logger.Info("served manifest", "bytes", 11)

	output := buffer.String()
	if !strings.Contains(output, "msg=\"served manifest\"") || !strings.Contains(output, "bytes=11") {
		t.Errorf("unexpected text output: %q", output)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, false, slog.LevelWarn)
	logger.Info("dropped")
	logger.Debug("dropped")
	if buffer.Len() != 0 {
		t.Errorf("records below the level were written: %q", buffer.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buffer.String(), "kept") {
		t.Error("warn record missing")
	}
}
