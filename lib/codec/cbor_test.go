// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/ckg/lib/binhash"
)

type sampleRecord struct {
	Name      string         `cbor:"name"`
	Size      int64          `cbor:"size"`
	Digest    binhash.Digest `cbor:"digest"`
	Installed time.Time      `cbor:"installed"`
	Tags      map[string]int `cbor:"tags,omitempty"`
}

func sample() sampleRecord {
	digest, _, _ := binhash.HashReader(strings.NewReader("content"))
	return sampleRecord{
		Name:      "pkgA",
		Size:      3,
		Digest:    digest,
		Installed: time.Date(2026, 3, 1, 12, 30, 45, 123456789, time.UTC),
		Tags:      map[string]int{"zeta": 1, "alpha": 2, "mid": 3},
	}
}

func TestRoundTripPreservesTimeAndDigest(t *testing.T) {
	original := sample()

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if !decoded.Installed.Equal(original.Installed) {
		t.Errorf("Installed = %v, want %v (nanoseconds must survive)", decoded.Installed, original.Installed)
	}
	if decoded.Digest != original.Digest {
		t.Errorf("Digest = %s, want %s", decoded.Digest, original.Digest)
	}
	if decoded.Name != original.Name || decoded.Size != original.Size || len(decoded.Tags) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestDigestStoredAsText(t *testing.T) {
	record := sample()
	data, err := Marshal(record)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(record.Digest.String())) {
		t.Error("encoded record does not contain the hex digest")
	}
}

func TestMarshalDeterministic(t *testing.T) {
	// Map iteration order is random; deterministic encoding sorts keys.
	var first []byte
	for i := range 20 {
		data, err := Marshal(sample())
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			first = data
			continue
		}
		if !bytes.Equal(first, data) {
			t.Fatalf("encoding %d differs from the first", i)
		}
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type newer struct {
		Name  string `cbor:"name"`
		Extra string `cbor:"extra"`
	}
	data, err := Marshal(newer{Name: "pkgA", Extra: "added later"})
	if err != nil {
		t.Fatal(err)
	}
	var older struct {
		Name string `cbor:"name"`
	}
	if err := Unmarshal(data, &older); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if older.Name != "pkgA" {
		t.Errorf("Name = %q", older.Name)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var record sampleRecord
	if err := Unmarshal([]byte{0xff, 0x00, 0x13}, &record); err == nil {
		t.Error("Unmarshal accepted invalid CBOR")
	}

	data, _ := Marshal(sample())
	if err := Unmarshal(append(data, 0x01), &record); err == nil {
		t.Error("Unmarshal accepted trailing bytes")
	}
}
