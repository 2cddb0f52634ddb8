// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pkgserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/ckg/lib/pkgstore"
)

// DefaultChunkSize is the buffer size used when streaming file
// contents. It bounds per-connection memory, nothing more.
const DefaultChunkSize = 32 * 1024

// Config holds everything a Server needs. Store and Logger are
// required.
type Config struct {
	// Address is the TCP address to listen on, e.g. "0.0.0.0:9000".
	// Use "127.0.0.1:0" for a random port in tests.
	Address string

	// Store is the package root served to every connection.
	Store *pkgstore.Store

	Logger *slog.Logger

	// StallTimeout bounds each read of the command line and each write
	// of the response. Zero disables the bound.
	StallTimeout time.Duration

	// DrainTimeout is how long Serve waits for in-flight connections
	// after shutdown begins before closing them. Zero waits for as long
	// as they take.
	DrainTimeout time.Duration

	// ChunkSize is the copy buffer size for file contents. Zero means
	// DefaultChunkSize.
	ChunkSize int
}

// Server accepts connections and runs one handler goroutine per
// connection.
type Server struct {
	config Config
	logger *slog.Logger
	ready  chan struct{}

	mutex       sync.Mutex
	listener    net.Listener
	connections map[net.Conn]struct{}

	// activeConnections tracks in-flight handlers for shutdown.
	activeConnections sync.WaitGroup
}

// NewServer validates config and returns a server ready to Serve.
func NewServer(config Config) (*Server, error) {
	if config.Store == nil {
		return nil, errors.New("pkgserver: Store is required")
	}
	if config.Logger == nil {
		return nil, errors.New("pkgserver: Logger is required")
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	return &Server{
		config:      config,
		logger:      config.Logger,
		ready:       make(chan struct{}),
		connections: make(map[net.Conn]struct{}),
	}, nil
}

// Ready is closed once the listener is bound. Addr is valid after that.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve listens on the configured address and handles connections
// until ctx is cancelled. Cancellation stops new accepts immediately;
// in-flight connections are then given DrainTimeout to finish before
// they are closed. Returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Address, err)
	}
	return s.serve(ctx, listener)
}

func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	s.mutex.Lock()
	s.listener = listener
	s.mutex.Unlock()
	close(s.ready)

	// Unblock Accept when the context is cancelled.
	stopAccepting := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stopAccepting:
		}
		listener.Close()
	}()

	s.logger.Info("package server listening",
		"address", listener.Addr().String(),
		"root", s.config.Store.Path(),
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			// Transient failures (EMFILE and friends) must not kill
			// the listener.
			s.logger.Error("accept failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		s.track(conn)
		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			defer s.untrack(conn)
			s.handleConnection(conn)
		}()
	}
	close(stopAccepting)

	s.drain()
	return nil
}

// drain waits for in-flight handlers, force-closing whatever is left
// after DrainTimeout.
func (s *Server) drain() {
	done := make(chan struct{})
	go func() {
		s.activeConnections.Wait()
		close(done)
	}()

	if s.config.DrainTimeout <= 0 {
		<-done
		return
	}

	select {
	case <-done:
		return
	case <-time.After(s.config.DrainTimeout):
	}

	s.mutex.Lock()
	remaining := len(s.connections)
	for conn := range s.connections {
		conn.Close()
	}
	s.mutex.Unlock()
	s.logger.Warn("closed connections still open after drain timeout",
		"count", remaining,
		"drain_timeout", s.config.DrainTimeout,
	)
	<-done
}

func (s *Server) track(conn net.Conn) {
	s.mutex.Lock()
	s.connections[conn] = struct{}{}
	s.mutex.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mutex.Lock()
	delete(s.connections, conn)
	s.mutex.Unlock()
}
