// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads configuration for the ckg server and client.
//
// A configuration file is optional. When the --config flag or the
// CKG_CONFIG environment variable names one, it is loaded on top of
// [Default]; otherwise the defaults are used as is. There is no
// automatic discovery of config files.
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas; anything else is read as YAML. Both go through the
// same strict decoder, so an unknown key is an error rather than a
// silently ignored typo.
//
// The file may contain development and production sections that
// override base values when [Config].Environment matches. After
// overrides, ${VAR} and ${VAR:-default} patterns are expanded in path
// fields (${HOME} being the usual one).
//
// The client honours three environment variables on top of the file,
// matching what scripts around the original tool already set:
// CKG_SERVER, CKG_TOOLS_DIR and CKG_DATA_DIR. Command-line flags are
// applied last by the binaries themselves.
//
// Durations are strings in [time.ParseDuration] form ("30s", "2m").
// [Config.Validate] reports every problem at once via errors.Join.
//
// This package depends on no other ckg packages.
package config
