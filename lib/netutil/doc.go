// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies connection errors for logging.
//
// A server that streams to many short-lived clients sees a steady
// trickle of errors that are not faults: clients hang up, reset the
// connection, or stop reading until a deadline fires. [IsExpectedCloseError]
// and [IsDeadlineError] let callers log those at Debug or Warn and keep
// Error for real problems.
package netutil
