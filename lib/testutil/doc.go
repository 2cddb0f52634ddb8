// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for ckg packages.
//
// [WriteTree] materializes a map of slash-separated relative paths to
// file contents under a directory, creating intermediate directories.
// Package-root tests use it to build a manifest plus package trees in
// one call instead of a wall of os.MkdirAll/os.WriteFile pairs.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls when waiting on a server
// goroutine or a readiness channel.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, e.g. distinct package names in concurrency tests.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no dependencies on other ckg packages.
package testutil
