// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Ckg-server serves a package root to ckg clients over TCP.
//
// The root directory holds manifest.txt and one subdirectory per
// package. Clients connect, send a single UPDATE, LIST or INSTALL
// command line, receive one framed response and are disconnected. The
// root is created at startup if it does not exist; the server never
// writes to it after that.
//
// Settings come from built-in defaults, then an optional config file
// (--config or CKG_CONFIG), then flags. SIGINT or SIGTERM stops
// accepting immediately and gives in-flight transfers --drain-timeout
// to finish.
package main
