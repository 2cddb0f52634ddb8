// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers shared by ckg-server and
// ckg. They cover the raw I/O that happens around the structured
// logger:
//
//   - [NewLogger] builds the binary's slog.Logger, choosing a text
//     handler for terminals and JSON for everything else.
//   - [Fatal] reports an error from run() on stderr and exits, for the
//     cases where no logger exists yet or the error is the program's
//     final word to the user.
package process
