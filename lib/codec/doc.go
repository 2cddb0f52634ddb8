// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration for ckg's on-disk
// state.
//
// The wire protocol is plain text and raw bytes and never touches this
// package. CBOR is used for the client's local bookkeeping, chiefly
// install receipts, where a compact self-describing binary format with
// deterministic output is wanted:
//
//	data, err := codec.Marshal(receipt)
//	err = codec.Unmarshal(data, &receipt)
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same receipt always produces the same bytes. Timestamps are written
// as tagged RFC 3339 strings with nanoseconds. Types implementing
// encoding.TextMarshaler (binhash.Digest, for one) are stored as text
// strings.
//
// Types stored only as CBOR use `cbor` struct tags. Unknown fields are
// ignored when decoding so older clients can read newer receipts.
package codec
