// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/ckg/lib/config"
	"github.com/bureau-foundation/ckg/lib/testutil"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(config.EnvConfig, "")

	cfg, exit, err := loadConfig(nil, &bytes.Buffer{})
	if err != nil || exit {
		t.Fatalf("loadConfig: exit=%v err=%v", exit, err)
	}
	if cfg.Server.Address() != "0.0.0.0:9000" {
		t.Errorf("address = %s", cfg.Server.Address())
	}
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("server:\n  host: 10.0.0.1\n  port: 9100\n  root: /srv/file-root\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := loadConfig([]string{
		"--config", path,
		"--port", "9200",
		"--stall-timeout", "5s",
		"--drain-timeout", "0",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Address() != "10.0.0.1:9200" {
		t.Errorf("address = %s, want host from file and port from flag", cfg.Server.Address())
	}
	if cfg.Server.Root != "/srv/file-root" {
		t.Errorf("root = %s", cfg.Server.Root)
	}
	if cfg.Server.StallTimeoutDuration() != 5*time.Second {
		t.Errorf("stall timeout = %v", cfg.Server.StallTimeoutDuration())
	}
	if cfg.Server.DrainTimeoutDuration() != 0 {
		t.Errorf("drain timeout = %v", cfg.Server.DrainTimeoutDuration())
	}
}

func TestLoadConfigHelpAndVersion(t *testing.T) {
	for _, flag := range []string{"--help", "-h", "--version"} {
		var stdout bytes.Buffer
		cfg, exit, err := loadConfig([]string{flag}, &stdout)
		if err != nil || !exit || cfg != nil {
			t.Errorf("%s: cfg=%v exit=%v err=%v", flag, cfg, exit, err)
		}
		if !strings.Contains(stdout.String(), "ckg-server") {
			t.Errorf("%s output = %q", flag, stdout.String())
		}
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	tests := [][]string{
		{"--port", "99999"},
		{"--log-level", "chatty"},
		{"--no-such-flag"},
		{"extra-argument"},
		{"--config", "/nonexistent/ckg.yaml"},
	}
	for _, args := range tests {
		if _, _, err := loadConfig(args, &bytes.Buffer{}); err == nil {
			t.Errorf("loadConfig(%q) should fail", args)
		}
	}
}

func TestRunCreatesRootAndStops(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	root := filepath.Join(t.TempDir(), "nested", "root")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{
			"--host", "127.0.0.1",
			"--port", "0",
			"--root", root,
			"--log-level", "error",
		}, &bytes.Buffer{})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("root directory was not created")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "run to return after cancel"); err != nil {
		t.Errorf("run returned %v", err)
	}
}

func TestRunRootIsAFile(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	root := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(root, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), []string{"--root", root, "--port", "0", "--log-level", "error"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("run should fail when the root is a regular file")
	}
}
