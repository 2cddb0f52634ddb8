// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Ckg is the command-line client for a ckg package server.
//
//	ckg update            fetch the manifest and cache it locally
//	ckg list              print the cached manifest
//	ckg install <pkg>     install a package into the tools directory
//	ckg uninstall <pkg>   remove an installed package
//	ckg verify <pkg>      check an installed package against its receipt
//
// The server address, tools directory and data directory come from
// the config file's client section, then CKG_SERVER, CKG_TOOLS_DIR and
// CKG_DATA_DIR, then --server, --tools-dir and --data-dir.
package main
