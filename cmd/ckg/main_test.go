// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/ckg/lib/config"
	"github.com/bureau-foundation/ckg/lib/pkgproto"
	"github.com/bureau-foundation/ckg/lib/pkgserver"
	"github.com/bureau-foundation/ckg/lib/pkgstore"
	"github.com/bureau-foundation/ckg/lib/testutil"
	"github.com/bureau-foundation/ckg/lib/toolsdir"
)

type fixture struct {
	address  string
	toolsDir string
	dataDir  string
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvServer, "")
	t.Setenv(config.EnvToolsDir, "")
	t.Setenv(config.EnvDataDir, "")

	root := t.TempDir()
	testutil.WriteTree(t, root, files)
	store, err := pkgstore.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	server, err := pkgserver.NewServer(pkgserver.Config{
		Address: "127.0.0.1:0",
		Store:   store,
		Logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "server ready")
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, done, 10*time.Second, "server shutdown")
	})

	local := t.TempDir()
	return &fixture{
		address:  server.Addr().String(),
		toolsDir: filepath.Join(local, "tools"),
		dataDir:  filepath.Join(local, "data"),
	}
}

// ckg runs the client with the fixture's directories and returns
// stdout.
func (f *fixture) ckg(t *testing.T, args ...string) (string, error) {
	t.Helper()
	full := append([]string{
		"--server", f.address,
		"--tools-dir", f.toolsDir,
		"--data-dir", f.dataDir,
		"--log-level", "error",
	}, args...)
	var stdout bytes.Buffer
	err := run(context.Background(), full, &stdout)
	return stdout.String(), err
}

var demoTree = map[string]string{
	"manifest.txt":       "pkgA: demo\n\npkgB: other\n",
	"pkgA/readme.txt":    "hi\n",
	"pkgA/bin/tool":      "#!/bin/sh\necho tool\n",
	"pkgB/data/blob.bin": "\x00\x01\x02\n\x03",
}

func TestUpdateAndList(t *testing.T) {
	f := newFixture(t, demoTree)

	if _, err := f.ckg(t, "list"); !errors.Is(err, toolsdir.ErrNoManifest) {
		t.Fatalf("list before update: %v, want ErrNoManifest", err)
	}

	output, err := f.ckg(t, "update")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if output != "manifest updated (24 B)\n" {
		t.Errorf("update output = %q", output)
	}
	cached, err := os.ReadFile(filepath.Join(f.dataDir, "manifest.txt"))
	if err != nil || string(cached) != demoTree["manifest.txt"] {
		t.Errorf("cached manifest = %q, %v", cached, err)
	}

	output, err = f.ckg(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if output != "Available packages:\n  pkgA: demo\n  pkgB: other\n" {
		t.Errorf("list output = %q", output)
	}
}

func TestInstallVerifyUninstall(t *testing.T) {
	f := newFixture(t, demoTree)

	if _, err := f.ckg(t, "install", "pkgA"); !errors.Is(err, toolsdir.ErrNoManifest) {
		t.Fatalf("install before update: %v, want ErrNoManifest", err)
	}
	if _, err := f.ckg(t, "update"); err != nil {
		t.Fatal(err)
	}

	output, err := f.ckg(t, "install", "pkgA")
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !strings.Contains(output, "installed pkgA: 2 files, 23 B") {
		t.Errorf("install output = %q", output)
	}
	tool, err := os.ReadFile(filepath.Join(f.toolsDir, "pkgA", "bin", "tool"))
	if err != nil || string(tool) != demoTree["pkgA/bin/tool"] {
		t.Errorf("installed bin/tool = %q, %v", tool, err)
	}

	if output, err := f.ckg(t, "verify", "pkgA"); err != nil || output != "pkgA: ok\n" {
		t.Errorf("verify intact install: %q, %v", output, err)
	}

	readme := filepath.Join(f.toolsDir, "pkgA", "readme.txt")
	if err := os.WriteFile(readme, []byte("HI\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	output, err = f.ckg(t, "verify", "pkgA")
	if err == nil {
		t.Error("verify should fail after tampering")
	}
	if !strings.Contains(output, "readme.txt: content differs") {
		t.Errorf("verify output = %q", output)
	}

	if output, err := f.ckg(t, "uninstall", "pkgA"); err != nil || output != "uninstalled pkgA\n" {
		t.Errorf("uninstall: %q, %v", output, err)
	}
	if _, err := os.Stat(filepath.Join(f.toolsDir, "pkgA")); !errors.Is(err, os.ErrNotExist) {
		t.Error("package directory remains after uninstall")
	}
	if _, err := f.ckg(t, "uninstall", "pkgA"); !errors.Is(err, toolsdir.ErrNotInstalled) {
		t.Errorf("second uninstall: %v, want ErrNotInstalled", err)
	}
}

func TestInstallServerErrors(t *testing.T) {
	f := newFixture(t, demoTree)
	if _, err := f.ckg(t, "update"); err != nil {
		t.Fatal(err)
	}

	_, err := f.ckg(t, "install", "pkgZ")
	var remote *pkgproto.RemoteError
	if !errors.As(err, &remote) || remote.Message != pkgproto.MessagePackageNotFound {
		t.Errorf("install pkgZ: %v, want package not found", err)
	}
}

func TestServerUnavailable(t *testing.T) {
	f := newFixture(t, demoTree)

	// Grab a free port and release it so nothing listens there.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	f.address = listener.Addr().String()
	listener.Close()

	_, err = f.ckg(t, "update")
	if err == nil || !strings.Contains(err.Error(), "unavailable") {
		t.Errorf("update against a closed port: %v", err)
	}
}

func TestEnvironmentSelectsServer(t *testing.T) {
	f := newFixture(t, demoTree)
	t.Setenv(config.EnvServer, f.address)
	t.Setenv(config.EnvToolsDir, f.toolsDir)
	t.Setenv(config.EnvDataDir, f.dataDir)

	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"update"}, &stdout); err != nil {
		t.Fatalf("update via environment: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.dataDir, "manifest.txt")); err != nil {
		t.Errorf("manifest not cached in CKG_DATA_DIR: %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	f := newFixture(t, demoTree)

	tests := [][]string{
		{},
		{"frobnicate"},
		{"install"},
		{"install", "a", "b"},
		{"list", "extra"},
		{"--server", "no-port", "list"},
	}
	for _, args := range tests {
		if _, err := f.ckg(t, args...); err == nil {
			t.Errorf("ckg %q should fail", args)
		}
	}
}

func TestHelpAndVersion(t *testing.T) {
	for _, flag := range []string{"--help", "--version"} {
		var stdout bytes.Buffer
		if err := run(context.Background(), []string{flag}, &stdout); err != nil {
			t.Errorf("%s: %v", flag, err)
		}
		if !strings.Contains(stdout.String(), "ckg") {
			t.Errorf("%s output = %q", flag, stdout.String())
		}
	}
}
