// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pkgproto

import (
	"fmt"
	"io"
	"strconv"
)

// Error messages sent to clients in ERROR lines.
const (
	MessageMissingPackageName = "missing package name"
	MessageManifestNotFound   = "manifest not found"
	MessageInvalidPackageName = "invalid package name"
	MessagePackageNotFound    = "package not found"
	MessageInternalError      = "internal server error"
	MessageLineTooLong        = "command line too long"
)

// UnrecognizedMessage returns the ERROR message for an unknown token.
func UnrecognizedMessage(token string) string {
	return "unrecognized command: " + token
}

// EntryHeader is the framing that precedes each file's bytes in an
// INSTALL body.
type EntryHeader struct {
	Path string
	Size int64
}

// EntryLength returns the number of body bytes one entry occupies:
// path, newline, decimal size, newline, content.
func EntryLength(path string, size int64) int64 {
	return int64(len(path)) + 1 + int64(len(strconv.FormatInt(size, 10))) + 1 + size
}

// PayloadLength returns the total INSTALL body length for headers.
func PayloadLength(headers []EntryHeader) int64 {
	var total int64
	for _, header := range headers {
		total += EntryLength(header.Path, header.Size)
	}
	return total
}

// WriteOK writes the success header "OK\n<length>\n".
func WriteOK(w io.Writer, length int64) error {
	_, err := io.WriteString(w, "OK\n"+strconv.FormatInt(length, 10)+"\n")
	return err
}

// WriteError writes "ERROR <message>\n".
func WriteError(w io.Writer, message string) error {
	_, err := io.WriteString(w, "ERROR "+message+"\n")
	return err
}

// WriteEntryHeader writes "<path>\n<size>\n". The caller follows it
// with exactly Size content bytes.
func WriteEntryHeader(w io.Writer, header EntryHeader) error {
	_, err := io.WriteString(w, header.Path+"\n"+strconv.FormatInt(header.Size, 10)+"\n")
	return err
}

// WriteCommand writes a request line for c.
func WriteCommand(w io.Writer, c Command) error {
	_, err := fmt.Fprintf(w, "%s\n", String(c))
	return err
}
