// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pkgclient talks to a ckg package server.
//
// Each call opens a new TCP connection, writes one command line, and
// reads the framed response, matching the server's one request per
// connection model. INSTALL bodies are streamed entry by entry to a
// caller-supplied function and are never held in memory as a whole.
//
// ERROR responses surface as *pkgproto.RemoteError, so callers can
// tell "the server refused" apart from "the connection failed":
//
//	err := client.Install(ctx, "pkgA", writeEntry)
//	var remote *pkgproto.RemoteError
//	if errors.As(err, &remote) && remote.Message == pkgproto.MessagePackageNotFound {
//	    ...
//	}
package pkgclient
