// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pkgproto

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxHeaderLine bounds status, length, path and size lines read by a
// client. Entry paths are the longest of these.
const maxHeaderLine = 64 * 1024

// ErrMalformedResponse is returned when the server's bytes do not
// follow the response grammar.
var ErrMalformedResponse = errors.New("malformed response")

// RemoteError is an ERROR line sent by the server.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "server error: " + e.Message
}

// ReadResponseHeader consumes the status line and, for OK responses,
// the length line. It returns the declared body length. ERROR
// responses return a *RemoteError.
//
// r should be buffered; the header lines are read a byte at a time.
func ReadResponseHeader(r io.Reader) (int64, error) {
	status, err := readHeaderLine(r)
	if err != nil {
		return 0, fmt.Errorf("reading status line: %w", err)
	}
	if message, ok := strings.CutPrefix(status, "ERROR "); ok {
		return 0, &RemoteError{Message: message}
	}
	if status != "OK" {
		return 0, fmt.Errorf("%w: unexpected status line %q", ErrMalformedResponse, status)
	}
	lengthLine, err := readHeaderLine(r)
	if err != nil {
		return 0, fmt.Errorf("reading length line: %w", err)
	}
	length, err := strconv.ParseInt(lengthLine, 10, 64)
	if err != nil || length < 0 {
		return 0, fmt.Errorf("%w: invalid length %q", ErrMalformedResponse, lengthLine)
	}
	return length, nil
}

// readHeaderLine reads up to '\n'. End of stream before the newline
// is io.ErrUnexpectedEOF.
func readHeaderLine(r io.Reader) (string, error) {
	var line []byte
	var one [1]byte
	for {
		if _, err := io.ReadFull(r, one[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if one[0] == '\n' {
			return string(line), nil
		}
		if len(line) >= maxHeaderLine {
			return "", fmt.Errorf("%w: header line exceeds %d bytes", ErrMalformedResponse, maxHeaderLine)
		}
		line = append(line, one[0])
	}
}

// PayloadReader walks the entries of an INSTALL body.
//
//	reader := pkgproto.NewPayloadReader(buffered, length)
//	for {
//	    header, err := reader.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	    io.Copy(destination, reader)
//	}
type PayloadReader struct {
	body    *io.LimitedReader
	current *io.LimitedReader
}

// NewPayloadReader reads an INSTALL body of the declared length from r.
func NewPayloadReader(r io.Reader, length int64) *PayloadReader {
	return &PayloadReader{body: &io.LimitedReader{R: r, N: length}}
}

// Next advances to the next entry, skipping any unread content of the
// current one. Returns io.EOF once the declared length is consumed.
func (p *PayloadReader) Next() (EntryHeader, error) {
	if p.current != nil && p.current.N > 0 {
		if _, err := io.Copy(io.Discard, p.current); err != nil {
			return EntryHeader{}, err
		}
		if p.current.N > 0 {
			return EntryHeader{}, io.ErrUnexpectedEOF
		}
	}
	p.current = nil

	if p.body.N == 0 {
		return EntryHeader{}, io.EOF
	}

	path, err := readHeaderLine(p.body)
	if err != nil {
		return EntryHeader{}, fmt.Errorf("reading entry path: %w", err)
	}
	sizeLine, err := readHeaderLine(p.body)
	if err != nil {
		return EntryHeader{}, fmt.Errorf("reading size of %q: %w", path, err)
	}
	size, err := strconv.ParseInt(sizeLine, 10, 64)
	if err != nil || size < 0 {
		return EntryHeader{}, fmt.Errorf("%w: invalid size %q for %q", ErrMalformedResponse, sizeLine, path)
	}
	if size > p.body.N {
		return EntryHeader{}, fmt.Errorf("%w: entry %q declares %d bytes, only %d remain", ErrMalformedResponse, path, size, p.body.N)
	}

	p.current = &io.LimitedReader{R: p.body, N: size}
	return EntryHeader{Path: path, Size: size}, nil
}

// Read reads content of the current entry. It returns io.EOF at the
// end of the entry.
func (p *PayloadReader) Read(buffer []byte) (int, error) {
	if p.current == nil {
		return 0, io.EOF
	}
	n, err := p.current.Read(buffer)
	if errors.Is(err, io.EOF) && p.current.N > 0 {
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}
