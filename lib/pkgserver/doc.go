// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pkgserver serves a package root over TCP using the ckg wire
// protocol (see lib/pkgproto).
//
// [Server.Serve] runs a single accept loop and hands every connection
// to its own goroutine, so a slow or stalled client only ever occupies
// its own goroutine. Each connection carries exactly one request:
//
//	AwaitCommandLine → Dispatch → Responding → Closed
//
// The handler reads the command line one byte at a time, parses it into
// a [pkgproto.Command], queries the [pkgstore.Store] and writes a framed
// response. Errors detected before the success header are reported to
// the client as an ERROR line. Once "OK" has been written the
// response length is committed, so any later failure simply closes the
// connection and the client observes a short read.
//
// The store is the only shared state and it is read-only, so handlers
// need no locking. The server keeps a set of open connections solely
// so that shutdown can force-close stragglers after the drain timeout.
//
// # Stalled clients
//
// With a non-zero StallTimeout every read of the command line and every
// individual write is bounded by that deadline. A client that never
// sends its newline, or stops draining its socket, is disconnected
// once the deadline expires. A zero StallTimeout disables the bound and
// such clients hold their goroutine until they go away.
package pkgserver
