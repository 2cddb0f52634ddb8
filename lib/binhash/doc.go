// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides BLAKE3 content digests for installed files.
//
// The ckg client records a digest for every file it installs and
// recomputes it on verify, so a tool that was edited, truncated or
// replaced after installation shows up as a mismatch. Digests are
// computed in BLAKE3 keyed mode with a fixed domain key, so a ckg file
// digest never collides with a plain BLAKE3 hash of the same bytes
// computed for some other purpose.
//
// The API surface:
//
//   - [New] returns a [Hasher] for digesting bytes as they stream past
//     (e.g. through an io.MultiWriter while writing a file)
//   - [HashReader] and [HashFile] digest a whole stream or file with
//     constant memory
//   - [Digest] formats as lowercase hex via String and MarshalText, and
//     [ParseDigest] reverses that
//
// This package has no dependencies on other ckg packages.
package binhash
