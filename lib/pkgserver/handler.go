// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pkgserver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/bureau-foundation/ckg/lib/netutil"
	"github.com/bureau-foundation/ckg/lib/pkgproto"
	"github.com/bureau-foundation/ckg/lib/pkgstore"
)

// errShortFile marks a file that delivered fewer bytes than its
// enumerated size while streaming.
var errShortFile = errors.New("file shorter than its enumerated size")

// handleConnection runs one request-response cycle and closes conn.
// In-flight handlers are not cancelled by server shutdown; the drain
// timeout in Serve is the only thing that cuts them off.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	logger := s.logger.With("remote_address", conn.RemoteAddr().String())

	if s.config.StallTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.config.StallTimeout))
	}
	line, err := pkgproto.ReadCommandLine(conn)
	if err != nil {
		switch {
		case errors.Is(err, io.EOF):
			// Connected and closed without sending anything.
		case errors.Is(err, pkgproto.ErrLineTooLong):
			s.sendError(conn, logger, pkgproto.MessageLineTooLong)
		case netutil.IsDeadlineError(err):
			logger.Warn("client sent no command before the stall timeout",
				"stall_timeout", s.config.StallTimeout,
			)
		case netutil.IsExpectedCloseError(err):
			logger.Debug("client disconnected while sending command", "error", err)
		default:
			logger.Error("reading command failed", "error", err)
		}
		return
	}

	command, err := pkgproto.ParseCommand(line)
	if err != nil {
		if errors.Is(err, pkgproto.ErrMissingPackageName) {
			s.sendError(conn, logger, pkgproto.MessageMissingPackageName)
		}
		// ErrEmptyCommand: close without a response.
		return
	}

	logger = logger.With("command", command.Name())
	switch command := command.(type) {
	case pkgproto.Update:
		s.sendManifest(conn, logger)
	case pkgproto.Install:
		s.sendPackage(conn, logger.With("package", command.Package), command.Package)
	case pkgproto.Unrecognized:
		s.sendError(conn, logger, pkgproto.UnrecognizedMessage(command.Token))
	default:
		logger.Error("no handler for command", "type", fmt.Sprintf("%T", command))
		s.sendError(conn, logger, pkgproto.MessageInternalError)
	}
}

// sendManifest answers UPDATE and LIST.
func (s *Server) sendManifest(conn net.Conn, logger *slog.Logger) {
	manifest, err := s.config.Store.ReadManifest()
	if err != nil {
		if errors.Is(err, pkgstore.ErrNotFound) {
			s.sendError(conn, logger, pkgproto.MessageManifestNotFound)
			return
		}
		logger.Error("reading manifest failed", "error", err)
		s.sendError(conn, logger, pkgproto.MessageInternalError)
		return
	}

	writer := s.newResponseWriter(conn)
	if err := pkgproto.WriteOK(writer, int64(len(manifest))); err != nil {
		s.logSendFailure(logger, err)
		return
	}
	if _, err := writer.Write(manifest); err != nil {
		s.logSendFailure(logger, err)
		return
	}
	if err := writer.Flush(); err != nil {
		s.logSendFailure(logger, err)
		return
	}
	logger.Info("served manifest", "bytes", len(manifest))
}

// sendPackage answers INSTALL. Validation and enumeration happen before
// anything is written, so every failure up to that point still gets an
// ERROR line.
func (s *Server) sendPackage(conn net.Conn, logger *slog.Logger, name string) {
	started := time.Now()

	entries, err := s.config.Store.Enumerate(name)
	if err != nil {
		switch {
		case errors.Is(err, pkgstore.ErrInvalidName):
			logger.Info("rejected package name")
			s.sendError(conn, logger, pkgproto.MessageInvalidPackageName)
		case errors.Is(err, pkgstore.ErrNotFound):
			s.sendError(conn, logger, pkgproto.MessagePackageNotFound)
		default:
			logger.Error("enumerating package failed", "error", err)
			s.sendError(conn, logger, pkgproto.MessageInternalError)
		}
		return
	}

	headers := make([]pkgproto.EntryHeader, len(entries))
	for i, entry := range entries {
		headers[i] = pkgproto.EntryHeader{Path: entry.Path, Size: entry.Size}
	}
	total := pkgproto.PayloadLength(headers)

	writer := s.newResponseWriter(conn)
	if err := pkgproto.WriteOK(writer, total); err != nil {
		s.logSendFailure(logger, err)
		return
	}

	// From here on the length is committed: failures abort the
	// connection without an ERROR line.
	for i, entry := range entries {
		if err := pkgproto.WriteEntryHeader(writer, headers[i]); err != nil {
			s.logSendFailure(logger, err)
			return
		}
		if err := copyEntry(writer, entry); err != nil {
			if errors.Is(err, errShortFile) {
				logger.Warn("file changed during transfer, aborting connection",
					"path", entry.Path,
					"error", err,
				)
				return
			}
			s.logSendFailure(logger.With("path", entry.Path), err)
			return
		}
	}
	if err := writer.Flush(); err != nil {
		s.logSendFailure(logger, err)
		return
	}

	logger.Info("served package",
		"files", len(entries),
		"bytes", total,
		"duration", time.Since(started),
	)
}

// copyEntry streams exactly entry.Size bytes of the file into writer.
// A file that grew since enumeration is truncated at its enumerated
// size; one that shrank or vanished returns errShortFile.
func copyEntry(writer io.Writer, entry pkgstore.Entry) error {
	file, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: opening: %v", errShortFile, err)
	}
	defer file.Close()

	copied, err := io.CopyN(writer, file, entry.Size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: got %d of %d bytes", errShortFile, copied, entry.Size)
		}
		return err
	}
	return nil
}

// sendError writes an ERROR line. The connection closes right after
// regardless, so a failed write is only logged.
func (s *Server) sendError(conn net.Conn, logger *slog.Logger, message string) {
	logger.Debug("sending error response", "message", message)
	writer := &stallWriter{conn: conn, timeout: s.config.StallTimeout}
	if err := pkgproto.WriteError(writer, message); err != nil {
		s.logSendFailure(logger, err)
	}
}

// logSendFailure separates a client going away from a real fault.
func (s *Server) logSendFailure(logger *slog.Logger, err error) {
	switch {
	case netutil.IsExpectedCloseError(err):
		logger.Debug("client disconnected during response", "error", err)
	case netutil.IsDeadlineError(err):
		logger.Warn("client stopped reading, aborting response",
			"stall_timeout", s.config.StallTimeout,
		)
	default:
		logger.Error("sending response failed", "error", err)
	}
}

// newResponseWriter buffers writes to conn in ChunkSize pieces. Every
// flush to the socket gets a fresh stall deadline.
func (s *Server) newResponseWriter(conn net.Conn) *bufio.Writer {
	return bufio.NewWriterSize(&stallWriter{conn: conn, timeout: s.config.StallTimeout}, s.config.ChunkSize)
}

// stallWriter sets a write deadline before each write when timeout is
// positive. A slow reader that keeps draining never trips it; one that
// stops entirely does.
type stallWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (w *stallWriter) Write(data []byte) (int, error) {
	if w.timeout > 0 {
		w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	}
	return w.conn.Write(data)
}
