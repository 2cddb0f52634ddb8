// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolsdir

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bureau-foundation/ckg/lib/binhash"
	"github.com/bureau-foundation/ckg/lib/codec"
)

// receiptVersion is bumped when the receipt layout changes
// incompatibly.
const receiptVersion = 1

// Receipt records one completed install.
type Receipt struct {
	Version     int           `cbor:"version"`
	Package     string        `cbor:"package"`
	Server      string        `cbor:"server,omitempty"`
	InstalledAt time.Time     `cbor:"installed_at"`
	Files       []FileReceipt `cbor:"files"`
}

// FileReceipt is one installed file.
type FileReceipt struct {
	// Path is slash-separated, relative to the package directory.
	Path   string         `cbor:"path"`
	Size   int64          `cbor:"size"`
	Digest binhash.Digest `cbor:"digest"`
}

// TotalSize sums the recorded file sizes.
func (r *Receipt) TotalSize() int64 {
	var total int64
	for _, file := range r.Files {
		total += file.Size
	}
	return total
}

func (d *Dir) receiptPath(name string) string {
	return filepath.Join(d.dataPath, receiptsDir, name+receiptSuffix)
}

// Receipt loads the receipt for name, or returns ErrNotInstalled.
func (d *Dir) Receipt(name string) (*Receipt, error) {
	if err := validatePackageName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.receiptPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotInstalled, name)
		}
		return nil, fmt.Errorf("reading receipt for %s: %w", name, err)
	}
	var receipt Receipt
	if err := codec.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("decoding receipt for %s: %w", name, err)
	}
	if receipt.Version != receiptVersion {
		return nil, fmt.Errorf("receipt for %s has version %d, want %d", name, receipt.Version, receiptVersion)
	}
	return &receipt, nil
}

func (d *Dir) writeReceipt(receipt *Receipt) error {
	data, err := codec.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encoding receipt: %w", err)
	}
	return writeFileAtomic(d.receiptPath(receipt.Package), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Installed lists packages that have a receipt, sorted by name.
func (d *Dir) Installed() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.dataPath, receiptsDir))
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	var names []string
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), receiptSuffix)
		if !ok || !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
