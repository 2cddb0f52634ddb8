// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pkgstore is the read-only view of a package root directory.
//
// A package root holds one manifest file (manifest.txt, opaque bytes
// served verbatim) and one subdirectory per package:
//
//	<root>/manifest.txt
//	<root>/<package>/<arbitrary file tree>
//
// Package names arrive from the network and are untrusted. [ValidateName]
// rejects any name containing a path separator or a ".." sequence before
// the filesystem is consulted. Everything that passes validation is still
// resolved through an [os.Root], so the kernel-level lookup itself cannot
// leave the root directory, including through symlinks planted inside it.
//
// [Store.Enumerate] walks a package tree and returns one [Entry] per
// regular file, with the path relative to the package directory
// (forward-slash separated) and the size observed during the walk.
// Symlinks, devices, sockets and other special files are skipped. The
// walk is lexical, so repeated enumerations of an unchanged tree return
// entries in the same order.
//
// A Store is immutable after [Open] and safe for concurrent use by any
// number of connection handlers.
package pkgstore
