// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolsdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/ckg/lib/binhash"
)

// Problem classifies a Mismatch.
type Problem string

const (
	ProblemMissing    Problem = "missing"
	ProblemSize       Problem = "size differs"
	ProblemDigest     Problem = "content differs"
	ProblemNotRegular Problem = "not a regular file"
	ProblemUnexpected Problem = "not in receipt"
)

// Mismatch is one difference between the receipt and the disk.
type Mismatch struct {
	Path    string
	Problem Problem
}

func (m Mismatch) String() string {
	return m.Path + ": " + string(m.Problem)
}

// Verify compares <tools>/<name> against its receipt. An empty result
// means the install is intact. Mismatches are reported in receipt
// order, followed by unexpected files in walk order.
func (d *Dir) Verify(name string) ([]Mismatch, error) {
	receipt, err := d.Receipt(name)
	if err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(d.PackagePath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			mismatches := make([]Mismatch, len(receipt.Files))
			for i, file := range receipt.Files {
				mismatches[i] = Mismatch{Path: file.Path, Problem: ProblemMissing}
			}
			return mismatches, nil
		}
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer root.Close()

	var mismatches []Mismatch
	recorded := make(map[string]bool, len(receipt.Files))
	for _, file := range receipt.Files {
		recorded[file.Path] = true
		problem, err := checkFile(root, file)
		if err != nil {
			return nil, err
		}
		if problem != "" {
			mismatches = append(mismatches, Mismatch{Path: file.Path, Problem: problem})
		}
	}

	err = fs.WalkDir(root.FS(), ".", func(walkPath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || recorded[walkPath] {
			return nil
		}
		mismatches = append(mismatches, Mismatch{Path: walkPath, Problem: ProblemUnexpected})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", name, err)
	}
	return mismatches, nil
}

func checkFile(root *os.Root, file FileReceipt) (Problem, error) {
	localPath := filepath.FromSlash(file.Path)
	info, err := root.Lstat(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ProblemMissing, nil
		}
		return "", fmt.Errorf("inspecting %s: %w", file.Path, err)
	}
	if !info.Mode().IsRegular() {
		return ProblemNotRegular, nil
	}
	if info.Size() != file.Size {
		return ProblemSize, nil
	}

	handle, err := root.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", file.Path, err)
	}
	defer handle.Close()
	digest, _, err := binhash.HashReader(handle)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", file.Path, err)
	}
	if digest != file.Digest {
		return ProblemDigest, nil
	}
	return "", nil
}
