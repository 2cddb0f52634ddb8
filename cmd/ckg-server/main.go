// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ckg/lib/config"
	"github.com/bureau-foundation/ckg/lib/pkgserver"
	"github.com/bureau-foundation/ckg/lib/pkgstore"
	"github.com/bureau-foundation/ckg/lib/process"
	"github.com/bureau-foundation/ckg/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, exit, err := loadConfig(args, stdout)
	if err != nil || exit {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := process.NewLogger(level)

	root, err := pkgstore.EnsureRoot(cfg.Server.Root)
	if err != nil {
		return err
	}
	store, err := pkgstore.Open(root)
	if err != nil {
		return err
	}
	defer store.Close()

	server, err := pkgserver.NewServer(pkgserver.Config{
		Address:      cfg.Server.Address(),
		Store:        store,
		Logger:       logger,
		StallTimeout: cfg.Server.StallTimeoutDuration(),
		DrainTimeout: cfg.Server.DrainTimeoutDuration(),
		ChunkSize:    cfg.Server.ChunkSize,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info("starting ckg-server",
		"version", version.Info(),
		"environment", cfg.Environment,
		"stall_timeout", cfg.Server.StallTimeoutDuration(),
		"drain_timeout", cfg.Server.DrainTimeoutDuration(),
	)
	if err := server.Serve(ctx); err != nil {
		return err
	}
	logger.Info("ckg-server stopped")
	return nil
}

// loadConfig parses flags and layers them over the config file. exit
// is true when --help or --version has already been handled.
func loadConfig(args []string, stdout io.Writer) (*config.Config, bool, error) {
	flagSet := pflag.NewFlagSet("ckg-server", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	configPath := flagSet.String("config", "", "path to a YAML or JSONC config file (default: $CKG_CONFIG)")
	host := flagSet.String("host", "", "listen host (default 0.0.0.0)")
	port := flagSet.Int("port", 0, "listen port (default 9000)")
	root := flagSet.String("root", "", "package root directory (default ./serverside-files)")
	stallTimeout := flagSet.Duration("stall-timeout", 0, "disconnect clients idle for this long mid-request; 0 disables (default 2m)")
	drainTimeout := flagSet.Duration("drain-timeout", 0, "on shutdown, wait this long for in-flight transfers; 0 waits forever (default 30s)")
	logLevel := flagSet.String("log-level", "", "debug, info, warn or error (default info)")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return nil, true, nil
		}
		return nil, false, err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout, flagSet)
		return nil, true, nil
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.Banner("ckg-server"))
		return nil, true, nil
	}
	if flagSet.NArg() > 0 {
		return nil, false, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, false, err
	}

	if flagSet.Changed("host") {
		cfg.Server.Host = *host
	}
	if flagSet.Changed("port") {
		cfg.Server.Port = *port
	}
	if flagSet.Changed("root") {
		cfg.Server.Root = *root
	}
	if flagSet.Changed("stall-timeout") {
		cfg.Server.StallTimeout = stallTimeout.String()
	}
	if flagSet.Changed("drain-timeout") {
		cfg.Server.DrainTimeout = drainTimeout.String()
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, false, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `ckg-server serves a package root to ckg clients.

The root contains manifest.txt and one directory per package.

Usage:
  ckg-server [flags]

Flags:
%s`, flagSet.FlagUsages())
}
