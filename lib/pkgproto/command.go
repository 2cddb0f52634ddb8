// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pkgproto

import (
	"errors"
	"io"
	"strings"
	"unicode"
)

// MaxCommandLine bounds the bytes buffered while waiting for the
// command's newline. Real commands are a verb plus a package name.
const MaxCommandLine = 4096

var (
	// ErrEmptyCommand is returned by ParseCommand for a line that is
	// empty after trimming. Servers close such connections silently.
	ErrEmptyCommand = errors.New("empty command")

	// ErrMissingPackageName is returned for INSTALL with no argument.
	ErrMissingPackageName = errors.New("missing package name")

	// ErrLineTooLong is returned by ReadCommandLine when no newline
	// arrives within MaxCommandLine bytes.
	ErrLineTooLong = errors.New("command line too long")
)

// Command is a parsed request. The concrete type is one of [Update],
// [Install] or [Unrecognized].
type Command interface {
	// Name is the upper-cased command token as received.
	Name() string

	command()
}

// Update requests the manifest. Verb is "UPDATE" or "LIST"; both
// produce the same response.
type Update struct {
	Verb string
}

// Install requests every file of a package. Package is the untrusted
// remainder of the command line, taken verbatim.
type Install struct {
	Package string
}

// Unrecognized is any other command token, upper-cased.
type Unrecognized struct {
	Token string
}

func (c Update) Name() string       { return c.Verb }
func (c Install) Name() string      { return "INSTALL" }
func (c Unrecognized) Name() string { return c.Token }

func (Update) command()       {}
func (Install) command()      {}
func (Unrecognized) command() {}

// ReadCommandLine reads one byte at a time until '\n' or end of
// stream, and returns the line without its delimiter. Reading stops
// exactly at the newline, so nothing past the command is consumed.
//
// Returns io.EOF if the stream ends before any byte arrives. If the
// stream ends after a partial line, the partial line is returned with
// a nil error. Any other read error is returned as-is together with
// whatever was read.
//
// Invalid UTF-8 never fails: each invalid byte decodes to U+FFFD.
func ReadCommandLine(r io.Reader) (string, error) {
	var line []byte
	var one [1]byte
	for {
		n, err := r.Read(one[:])
		if n == 1 {
			if one[0] == '\n' {
				return decodeLine(line), nil
			}
			if len(line) >= MaxCommandLine {
				return "", ErrLineTooLong
			}
			line = append(line, one[0])
			continue
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(line) == 0 {
				return "", io.EOF
			}
			return decodeLine(line), nil
		}
		return decodeLine(line), err
	}
}

// decodeLine converts raw bytes to a string, replacing every byte that
// is not part of a valid UTF-8 sequence with U+FFFD.
func decodeLine(raw []byte) string {
	return string([]rune(string(raw)))
}

// ParseCommand trims line and splits it into a command token and an
// optional argument at the first run of whitespace. The token matches
// case-insensitively.
//
// Returns ErrEmptyCommand for a blank line and ErrMissingPackageName
// for INSTALL without an argument. Unknown tokens are not an error:
// they parse to [Unrecognized] so the caller can report them.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, ErrEmptyCommand
	}

	token, argument := line, ""
	if index := strings.IndexFunc(line, unicode.IsSpace); index >= 0 {
		token = line[:index]
		argument = strings.TrimLeftFunc(line[index:], unicode.IsSpace)
	}
	token = strings.ToUpper(token)

	switch token {
	case "UPDATE", "LIST":
		return Update{Verb: token}, nil
	case "INSTALL":
		if argument == "" {
			return nil, ErrMissingPackageName
		}
		return Install{Package: argument}, nil
	default:
		return Unrecognized{Token: token}, nil
	}
}

// String renders the command as the request line a client sends,
// without the trailing newline.
func String(c Command) string {
	if install, ok := c.(Install); ok {
		return "INSTALL " + install.Package
	}
	return c.Name()
}
