// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ckg/lib/config"
	"github.com/bureau-foundation/ckg/lib/pkgclient"
	"github.com/bureau-foundation/ckg/lib/process"
	"github.com/bureau-foundation/ckg/lib/toolsdir"
	"github.com/bureau-foundation/ckg/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

// app carries what every subcommand needs.
type app struct {
	stdout io.Writer
	logger *slog.Logger
	client *pkgclient.Client
	dir    *toolsdir.Dir
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flagSet := pflag.NewFlagSet("ckg", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	configPath := flagSet.String("config", "", "path to a YAML or JSONC config file (default: $CKG_CONFIG)")
	server := flagSet.String("server", "", "package server host:port (default: $CKG_SERVER or 127.0.0.1:9000)")
	toolsDir := flagSet.String("tools-dir", "", "install directory (default: $CKG_TOOLS_DIR or ./tools)")
	dataDir := flagSet.String("data-dir", "", "manifest and receipt directory (default: $CKG_DATA_DIR or ./data)")
	logLevel := flagSet.String("log-level", "warn", "debug, info, warn or error")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout, flagSet)
		return nil
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.Banner("ckg"))
		return nil
	}
	if flagSet.NArg() == 0 {
		printHelp(stdout, flagSet)
		return errors.New("no command given")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.ApplyClientEnvironment()
	if flagSet.Changed("server") {
		cfg.Client.Server = *server
	}
	if flagSet.Changed("tools-dir") {
		cfg.Client.ToolsDir = *toolsDir
	}
	if flagSet.Changed("data-dir") {
		cfg.Client.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// The config file's log_level is the server's; the client stays
	// quiet unless asked.
	level, err := config.ParseLogLevel(*logLevel)
	if err != nil {
		return err
	}

	dir, err := toolsdir.Open(cfg.Client.ToolsDir, cfg.Client.DataDir)
	if err != nil {
		return err
	}
	a := &app{
		stdout: stdout,
		logger: process.NewLogger(level).With("server", cfg.Client.Server),
		client: &pkgclient.Client{
			Address:     cfg.Client.Server,
			DialTimeout: cfg.Client.DialTimeoutDuration(),
			ReadTimeout: cfg.Client.ReadTimeoutDuration(),
		},
		dir: dir,
	}

	command, commandArgs := flagSet.Arg(0), flagSet.Args()[1:]
	switch command {
	case "update":
		if err := expectArgs(command, commandArgs, 0); err != nil {
			return err
		}
		return a.update(ctx)
	case "list":
		if err := expectArgs(command, commandArgs, 0); err != nil {
			return err
		}
		return a.list()
	case "install":
		if err := expectArgs(command, commandArgs, 1); err != nil {
			return err
		}
		return a.install(ctx, commandArgs[0])
	case "uninstall":
		if err := expectArgs(command, commandArgs, 1); err != nil {
			return err
		}
		return a.uninstall(commandArgs[0])
	case "verify":
		if err := expectArgs(command, commandArgs, 1); err != nil {
			return err
		}
		return a.verify(commandArgs[0])
	default:
		return fmt.Errorf("unknown command %q (run \"ckg --help\" for usage)", command)
	}
}

func expectArgs(command string, args []string, want int) error {
	if len(args) == want {
		return nil
	}
	if want == 0 {
		return fmt.Errorf("%s takes no arguments", command)
	}
	return fmt.Errorf("usage: ckg %s <package>", command)
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `ckg installs packages from a ckg package server.

Usage:
  ckg [flags] update            fetch and cache the server's manifest
  ckg [flags] list              show the cached manifest
  ckg [flags] install <pkg>     install a package
  ckg [flags] uninstall <pkg>   remove an installed package
  ckg [flags] verify <pkg>      check an installed package for changes

Flags:
%s`, flagSet.FlagUsages())
}
