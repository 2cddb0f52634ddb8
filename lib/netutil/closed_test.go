// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestIsExpectedCloseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"closed", net.ErrClosed, true},
		{"wrapped eof", fmt.Errorf("reading command: %w", io.EOF), true},
		{"broken pipe", &net.OpError{Op: "write", Err: os.NewSyscallError("write", unix.EPIPE)}, true},
		{"reset", &net.OpError{Op: "read", Err: os.NewSyscallError("read", unix.ECONNRESET)}, true},
		{"permission", &net.OpError{Op: "read", Err: os.NewSyscallError("read", unix.EACCES)}, false},
		{"other", errors.New("disk on fire"), false},
		{"deadline", os.ErrDeadlineExceeded, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsExpectedCloseError(test.err); got != test.want {
				t.Errorf("IsExpectedCloseError(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}

func TestIsDeadlineError(t *testing.T) {
	if IsDeadlineError(nil) {
		t.Error("nil is not a deadline error")
	}
	if IsDeadlineError(io.EOF) {
		t.Error("EOF is not a deadline error")
	}
	if !IsDeadlineError(fmt.Errorf("writing: %w", os.ErrDeadlineExceeded)) {
		t.Error("wrapped os.ErrDeadlineExceeded should be a deadline error")
	}

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	server.SetReadDeadline(time.Now().Add(-time.Second))
	_, err := server.Read(make([]byte, 1))
	if !IsDeadlineError(err) {
		t.Errorf("expired pipe read error %v should be a deadline error", err)
	}
}
