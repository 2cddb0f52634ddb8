// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pkgproto implements the ckg wire protocol.
//
// A client connects, writes exactly one command line terminated by
// '\n', and reads exactly one response. The connection is then closed;
// there is no pipelining.
//
// Requests:
//
//	UPDATE\n
//	LIST\n
//	INSTALL <package-name>\n
//
// Responses:
//
//	OK\n<decimal-length>\n<length raw bytes>
//	ERROR <message>\n
//
// An INSTALL body is a sequence of file entries, each framed as
//
//	<relative-path>\n<decimal-size>\n<size raw bytes>
//
// and the response header declares the byte length of the whole
// sequence, so a reader knows how much to consume without a terminator.
// Entry order carries no meaning.
//
// The server side uses [ReadCommandLine] and [ParseCommand] to turn
// connection bytes into a [Command], then [WriteOK], [WriteError] and
// [WriteEntryHeader] to frame the response. [PayloadLength] computes the
// declared INSTALL length from the entry list before anything is sent.
//
// The client side uses [ReadResponseHeader] to consume the status and
// length lines, and [PayloadReader] to walk the entries of an INSTALL
// body in the manner of archive/tar.
package pkgproto
