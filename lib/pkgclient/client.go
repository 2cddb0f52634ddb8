// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pkgclient

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/ckg/lib/pkgproto"
)

// DefaultDialTimeout covers only the connect phase.
const DefaultDialTimeout = 5 * time.Second

// DefaultReadTimeout is how long a single read may wait for the server
// before the call gives up. It is an idle bound, not a bound on the
// whole transfer.
const DefaultReadTimeout = 30 * time.Second

// readBufferSize sizes the bufio.Reader in front of the connection.
const readBufferSize = 32 * 1024

// Client issues commands to one server address. The zero timeouts
// select the defaults above.
type Client struct {
	// Address is host:port of the server.
	Address string

	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// New returns a client for address with default timeouts.
func New(address string) *Client {
	return &Client{Address: address}
}

// EntryFunc receives each file of an INSTALL response. content yields
// exactly header.Size bytes; anything the function leaves unread is
// skipped.
type EntryFunc func(header pkgproto.EntryHeader, content io.Reader) error

// Manifest sends UPDATE and returns the manifest bytes.
func (c *Client) Manifest(ctx context.Context) ([]byte, error) {
	var buffer bytes.Buffer
	if _, err := c.WriteManifest(ctx, &buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// WriteManifest sends UPDATE and copies the manifest into w as it
// arrives. Returns the number of bytes copied.
func (c *Client) WriteManifest(ctx context.Context, w io.Writer) (int64, error) {
	var written int64
	err := c.do(ctx, pkgproto.Update{Verb: "UPDATE"}, func(body io.Reader, length int64) error {
		var err error
		written, err = io.CopyN(w, body, length)
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("manifest truncated after %d of %d bytes: %w", written, length, io.ErrUnexpectedEOF)
		}
		return err
	})
	if err != nil {
		return written, fmt.Errorf("fetching manifest from %s: %w", c.Address, err)
	}
	return written, nil
}

// Install sends INSTALL name and calls fn once per file in server
// order. An error from fn stops the transfer and is returned as is.
func (c *Client) Install(ctx context.Context, name string, fn EntryFunc) error {
	var callbackErr error
	err := c.do(ctx, pkgproto.Install{Package: name}, func(body io.Reader, length int64) error {
		payload := pkgproto.NewPayloadReader(body, length)
		for {
			header, err := payload.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := fn(header, payload); err != nil {
				callbackErr = err
				return err
			}
		}
	})
	if callbackErr != nil {
		return callbackErr
	}
	if err != nil {
		return fmt.Errorf("installing %q from %s: %w", name, c.Address, err)
	}
	return nil
}

// do runs one connection: dial, write the command, read the header,
// then hand the body to readBody.
func (c *Client) do(ctx context.Context, command pkgproto.Command, readBody func(io.Reader, int64) error) error {
	dialTimeout := c.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	// Cancelling ctx mid-transfer unblocks any pending read or write.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := pkgproto.WriteCommand(conn, command); err != nil {
		return contextError(ctx, fmt.Errorf("writing command: %w", err))
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.CloseWrite()
	}

	readTimeout := c.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	reader := bufio.NewReaderSize(&idleReader{conn: conn, timeout: readTimeout}, readBufferSize)

	length, err := pkgproto.ReadResponseHeader(reader)
	if err != nil {
		var remote *pkgproto.RemoteError
		if errors.As(err, &remote) {
			return remote
		}
		return contextError(ctx, fmt.Errorf("reading response: %w", err))
	}
	if err := readBody(reader, length); err != nil {
		return contextError(ctx, fmt.Errorf("reading response body: %w", err))
	}
	return nil
}

// contextError prefers the context's error when cancellation is what
// closed the connection.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// idleReader refreshes the read deadline before every read.
type idleReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *idleReader) Read(buffer []byte) (int, error) {
	r.conn.SetReadDeadline(time.Now().Add(r.timeout))
	return r.conn.Read(buffer)
}
