// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 file digest.
type Digest [32]byte

// fileDomainKey is the BLAKE3 key for file digests: the ASCII domain
// name zero-padded to 32 bytes. Changing it invalidates every recorded
// digest.
var fileDomainKey = [32]byte{
	'c', 'k', 'g', '.', 't', 'o', 'o', 'l', 's', 'd', 'i', 'r', '.',
	'f', 'i', 'l', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Hasher accumulates a Digest. It is an io.Writer.
type Hasher struct {
	hasher *blake3.Hasher
}

// New returns an empty Hasher.
func New() *Hasher {
	// NewKeyed only fails for keys that are not 32 bytes.
	hasher, err := blake3.NewKeyed(fileDomainKey[:])
	if err != nil {
		panic("binhash: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return &Hasher{hasher: hasher}
}

func (h *Hasher) Write(data []byte) (int, error) {
	return h.hasher.Write(data)
}

// Sum returns the digest of everything written so far.
func (h *Hasher) Sum() Digest {
	var digest Digest
	copy(digest[:], h.hasher.Sum(nil))
	return digest
}

// HashReader digests r to EOF and returns the digest and byte count.
func HashReader(r io.Reader) (Digest, int64, error) {
	hasher := New()
	size, err := io.Copy(hasher, r)
	if err != nil {
		return Digest{}, size, err
	}
	return hasher.Sum(), size, nil
}

// HashFile digests the file at path.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	digest, _, err := HashReader(file)
	if err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return digest, nil
}

// String returns the lowercase hex encoding.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText encodes the digest as hex, which is also how receipts
// store it.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest parses a 64-character hex string.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing file digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("file digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}
