// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pkgproto

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEntryLength(t *testing.T) {
	// "readme.txt\n" (11) + "3\n" (2) + 3 content bytes.
	if got := EntryLength("readme.txt", 3); got != 16 {
		t.Errorf("EntryLength = %d, want 16", got)
	}
	// Empty file still carries its path and size lines.
	if got := EntryLength("a", 0); got != 4 {
		t.Errorf("EntryLength(empty) = %d, want 4", got)
	}
	// Multi-byte UTF-8 path counts bytes, not runes.
	if got := EntryLength("é", 10); got != 2+1+2+1+10 {
		t.Errorf("EntryLength(utf8) = %d", got)
	}
}

func TestPayloadLength(t *testing.T) {
	headers := []EntryHeader{{Path: "readme.txt", Size: 3}, {Path: "bin/tool", Size: 1234}}
	want := EntryLength("readme.txt", 3) + EntryLength("bin/tool", 1234)
	if got := PayloadLength(headers); got != want {
		t.Errorf("PayloadLength = %d, want %d", got, want)
	}
	if got := PayloadLength(nil); got != 0 {
		t.Errorf("PayloadLength(nil) = %d, want 0", got)
	}
}

func TestWriters(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteOK(&buffer, 16); err != nil {
		t.Fatal(err)
	}
	if err := WriteEntryHeader(&buffer, EntryHeader{Path: "readme.txt", Size: 3}); err != nil {
		t.Fatal(err)
	}
	buffer.WriteString("hi\n")
	if got := buffer.String(); got != "OK\n16\nreadme.txt\n3\nhi\n" {
		t.Errorf("framed output = %q", got)
	}

	buffer.Reset()
	if err := WriteError(&buffer, UnrecognizedMessage("FOO")); err != nil {
		t.Fatal(err)
	}
	if got := buffer.String(); got != "ERROR unrecognized command: FOO\n" {
		t.Errorf("error output = %q", got)
	}
}

func TestReadResponseHeader(t *testing.T) {
	length, err := ReadResponseHeader(bufio.NewReader(strings.NewReader("OK\n11\npkgA: demo\n")))
	if err != nil {
		t.Fatalf("ReadResponseHeader: %v", err)
	}
	if length != 11 {
		t.Errorf("length = %d, want 11", length)
	}

	_, err = ReadResponseHeader(strings.NewReader("ERROR package not found\n"))
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if remote.Message != MessagePackageNotFound {
		t.Errorf("remote message = %q", remote.Message)
	}

	for _, input := range []string{"HELLO\n", "OK\nabc\n", "OK\n-1\n"} {
		if _, err := ReadResponseHeader(strings.NewReader(input)); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("ReadResponseHeader(%q) error = %v, want ErrMalformedResponse", input, err)
		}
	}

	if _, err := ReadResponseHeader(strings.NewReader("OK\n")); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated header error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestPayloadReader(t *testing.T) {
	body := "readme.txt\n3\nhi\nbin/tool\n5\nhello" + "empty\n0\n"
	reader := NewPayloadReader(strings.NewReader(body), int64(len(body)))

	type file struct {
		header  EntryHeader
		content string
	}
	var got []file
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		content, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("reading %s: %v", header.Path, err)
		}
		got = append(got, file{header, string(content)})
	}

	want := []file{
		{EntryHeader{"readme.txt", 3}, "hi\n"},
		{EntryHeader{"bin/tool", 5}, "hello"},
		{EntryHeader{"empty", 0}, ""},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPayloadReaderSkipsUnreadContent(t *testing.T) {
	body := "a\n3\nxyzb\n1\nq"
	reader := NewPayloadReader(strings.NewReader(body), int64(len(body)))

	if _, err := reader.Next(); err != nil {
		t.Fatal(err)
	}
	header, err := reader.Next()
	if err != nil {
		t.Fatal(err)
	}
	if header.Path != "b" {
		t.Errorf("second entry = %q, want b", header.Path)
	}
}

func TestPayloadReaderTruncated(t *testing.T) {
	// Header declares more than the stream delivers.
	body := "a\n10\nshort"
	reader := NewPayloadReader(strings.NewReader(body), 100)

	if _, err := reader.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := io.ReadAll(reader); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadAll error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestPayloadReaderOversizedEntry(t *testing.T) {
	body := "a\n99\nxyz"
	reader := NewPayloadReader(strings.NewReader(body), int64(len(body)))
	if _, err := reader.Next(); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Next error = %v, want ErrMalformedResponse", err)
	}
}
