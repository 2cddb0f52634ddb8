// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolsdir

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/ckg/lib/pkgstore"
)

const (
	manifestFile   = "manifest.txt"
	receiptsDir    = "receipts"
	receiptSuffix  = ".cbor"
	stagingPattern = ".install-*"
)

var (
	// ErrNoManifest is returned when no manifest has been fetched yet.
	ErrNoManifest = errors.New(`no manifest found; run "ckg update" first`)

	// ErrNotInstalled is returned for packages with no receipt and no
	// directory under the tools dir.
	ErrNotInstalled = errors.New("package not installed")
)

// Dir is a tools directory paired with its data directory.
type Dir struct {
	toolsPath string
	dataPath  string
}

// Open resolves both directories to absolute paths, creating them if
// needed.
func Open(toolsDir, dataDir string) (*Dir, error) {
	toolsPath, err := ensureDirectory(toolsDir)
	if err != nil {
		return nil, fmt.Errorf("preparing tools directory: %w", err)
	}
	dataPath, err := ensureDirectory(dataDir)
	if err != nil {
		return nil, fmt.Errorf("preparing data directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dataPath, receiptsDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating receipts directory: %w", err)
	}
	return &Dir{toolsPath: toolsPath, dataPath: dataPath}, nil
}

func ensureDirectory(path string) (string, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(absolute, 0o755); err != nil {
		return "", err
	}
	return absolute, nil
}

// ToolsPath returns the absolute tools directory.
func (d *Dir) ToolsPath() string { return d.toolsPath }

// DataPath returns the absolute data directory.
func (d *Dir) DataPath() string { return d.dataPath }

// PackagePath returns where name is (or would be) installed.
func (d *Dir) PackagePath(name string) string {
	return filepath.Join(d.toolsPath, name)
}

// ManifestPath returns the cached manifest location.
func (d *Dir) ManifestPath() string {
	return filepath.Join(d.dataPath, manifestFile)
}

// SaveManifest replaces the cached manifest with the contents of r.
// The previous manifest stays in place until r has been read
// completely.
func (d *Dir) SaveManifest(r io.Reader) (int64, error) {
	var written int64
	err := writeFileAtomic(d.ManifestPath(), func(w io.Writer) error {
		var err error
		written, err = io.Copy(w, r)
		return err
	})
	if err != nil {
		return written, fmt.Errorf("saving manifest: %w", err)
	}
	return written, nil
}

// ReadManifest returns the cached manifest, or ErrNoManifest.
func (d *Dir) ReadManifest() ([]byte, error) {
	data, err := os.ReadFile(d.ManifestPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("reading cached manifest: %w", err)
	}
	return data, nil
}

// ManifestEntries returns the non-empty lines of the cached manifest.
func (d *Dir) ManifestEntries() ([]string, error) {
	data, err := d.ReadManifest()
	if err != nil {
		return nil, err
	}
	var entries []string
	for line := range bytes.Lines(data) {
		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			continue
		}
		entries = append(entries, string(line))
	}
	return entries, nil
}

// validatePackageName applies the server's package-name rule plus the
// two names that refer to the tools directory itself.
func validatePackageName(name string) error {
	if err := pkgstore.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %q", err, name)
	}
	if name == "" || name == "." || strings.HasPrefix(name, ".install-") {
		return fmt.Errorf("%w: %q", pkgstore.ErrInvalidName, name)
	}
	return nil
}

// writeFileAtomic writes path via a temp file in the same directory
// and a rename.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	temp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tempPath := temp.Name()
	committed := false
	defer func() {
		if !committed {
			temp.Close()
			os.Remove(tempPath)
		}
	}()

	if err := write(temp); err != nil {
		return err
	}
	if err := temp.Sync(); err != nil {
		return err
	}
	if err := temp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tempPath, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		return err
	}
	committed = true
	return nil
}
