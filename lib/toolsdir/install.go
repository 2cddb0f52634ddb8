// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolsdir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/ckg/lib/binhash"
	"github.com/bureau-foundation/ckg/lib/pkgclient"
	"github.com/bureau-foundation/ckg/lib/pkgproto"
)

// ErrUnsafePath is returned when the server sends an entry path that
// is absolute, unclean, or would leave the package directory.
var ErrUnsafePath = errors.New("unsafe entry path")

// Installer fetches a package. *pkgclient.Client implements it.
type Installer interface {
	Install(ctx context.Context, name string, fn pkgclient.EntryFunc) error
}

// Install fetches name from installer and replaces <tools>/<name> with
// it. A cached manifest must exist. Any previous install of name is
// left untouched unless the whole transfer succeeds.
func (d *Dir) Install(ctx context.Context, installer Installer, name string) (*Receipt, error) {
	if err := validatePackageName(name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(d.ManifestPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("checking cached manifest: %w", err)
	}

	staging, err := os.MkdirTemp(d.toolsPath, stagingPattern)
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	root, err := os.OpenRoot(staging)
	if err != nil {
		return nil, fmt.Errorf("opening staging directory: %w", err)
	}
	defer root.Close()

	receipt := &Receipt{
		Version: receiptVersion,
		Package: name,
	}
	if client, ok := installer.(*pkgclient.Client); ok {
		receipt.Server = client.Address
	}

	err = installer.Install(ctx, name, func(header pkgproto.EntryHeader, content io.Reader) error {
		file, err := writeEntry(root, header, content)
		if err != nil {
			return err
		}
		receipt.Files = append(receipt.Files, file)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := root.Close(); err != nil {
		return nil, fmt.Errorf("closing staging directory: %w", err)
	}

	// Swap the staged tree into place. The old install is moved aside
	// first so a failed rename can put it back.
	target := d.PackagePath(name)
	previous := ""
	if _, err := os.Lstat(target); err == nil {
		previous = staging + ".previous"
		if err := os.Rename(target, previous); err != nil {
			return nil, fmt.Errorf("moving previous install of %s aside: %w", name, err)
		}
	}
	if err := os.Rename(staging, target); err != nil {
		if previous != "" {
			os.Rename(previous, target)
		}
		return nil, fmt.Errorf("moving %s into place: %w", name, err)
	}
	if previous != "" {
		if err := os.RemoveAll(previous); err != nil {
			return nil, fmt.Errorf("removing previous install of %s: %w", name, err)
		}
	}

	receipt.InstalledAt = time.Now().UTC()
	if err := d.writeReceipt(receipt); err != nil {
		return nil, fmt.Errorf("recording install of %s: %w", name, err)
	}
	return receipt, nil
}

// writeEntry creates one file under root, digesting it on the way.
func writeEntry(root *os.Root, header pkgproto.EntryHeader, content io.Reader) (FileReceipt, error) {
	if !fs.ValidPath(header.Path) || header.Path == "." {
		return FileReceipt{}, fmt.Errorf("%w: %q", ErrUnsafePath, header.Path)
	}
	localPath := filepath.FromSlash(header.Path)
	if directory := path.Dir(header.Path); directory != "." {
		if err := root.MkdirAll(filepath.FromSlash(directory), 0o755); err != nil {
			return FileReceipt{}, fmt.Errorf("creating directory for %s: %w", header.Path, err)
		}
	}

	file, err := root.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return FileReceipt{}, fmt.Errorf("creating %s: %w", header.Path, err)
	}
	hasher := binhash.New()
	written, err := io.Copy(io.MultiWriter(file, hasher), content)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return FileReceipt{}, fmt.Errorf("writing %s: %w", header.Path, err)
	}
	if written != header.Size {
		return FileReceipt{}, fmt.Errorf("writing %s: got %d bytes, header declared %d", header.Path, written, header.Size)
	}
	return FileReceipt{Path: header.Path, Size: written, Digest: hasher.Sum()}, nil
}

// Uninstall removes <tools>/<name> and its receipt. It returns
// ErrNotInstalled if neither exists.
func (d *Dir) Uninstall(name string) error {
	if err := validatePackageName(name); err != nil {
		return err
	}
	target := d.PackagePath(name)
	receiptPath := d.receiptPath(name)

	_, targetErr := os.Lstat(target)
	_, receiptErr := os.Lstat(receiptPath)
	if errors.Is(targetErr, fs.ErrNotExist) && errors.Is(receiptErr, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}

	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("removing %s: %w", target, err)
	}
	if err := os.Remove(receiptPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing receipt for %s: %w", name, err)
	}
	return nil
}
