// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolsdir manages the client side of ckg: a cached copy of
// the server's manifest and a directory of installed packages.
//
// Two directories are involved:
//
//	<data>/manifest.txt          cached manifest, replaced atomically on update
//	<data>/receipts/<pkg>.cbor   one install receipt per installed package
//	<tools>/<pkg>/...            installed package contents
//
// An install streams the server's entries into a staging directory
// inside <tools> and renames it into place only after every entry has
// been written, so a failed transfer never leaves a half-installed
// package behind and never damages a previous install of the same
// package. Entry paths come from the network and are written through
// an [os.Root] opened on the staging directory; a path that would
// escape it fails the install.
//
// Every installed file is digested with [binhash] as it is written.
// The receipt records path, size and digest for each file plus the
// install time, and [Dir.Verify] later compares the tree on disk
// against it.
package toolsdir
