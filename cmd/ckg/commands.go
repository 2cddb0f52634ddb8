// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/ckg/lib/pkgproto"
	"github.com/bureau-foundation/ckg/lib/toolsdir"
)

func (a *app) update(ctx context.Context) error {
	// The manifest streams straight into the cache file; a failed
	// transfer leaves the previous manifest in place.
	reader, writer := io.Pipe()
	fetched := make(chan error, 1)
	go func() {
		_, err := a.client.WriteManifest(ctx, writer)
		writer.CloseWithError(err)
		fetched <- err
	}()
	written, saveErr := a.dir.SaveManifest(reader)
	reader.Close()

	// A closed pipe means saving failed first; report that instead.
	if fetchErr := <-fetched; fetchErr != nil && !errors.Is(fetchErr, io.ErrClosedPipe) {
		return serverError(a.client.Address, fetchErr)
	}
	if saveErr != nil {
		return saveErr
	}

	a.logger.Debug("cached manifest", "path", a.dir.ManifestPath(), "bytes", written)
	fmt.Fprintf(a.stdout, "manifest updated (%s)\n", humanize.IBytes(uint64(written)))
	return nil
}

func (a *app) list() error {
	entries, err := a.dir.ManifestEntries()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Available packages:")
	for _, entry := range entries {
		fmt.Fprintf(a.stdout, "  %s\n", entry)
	}
	return nil
}

func (a *app) install(ctx context.Context, name string) error {
	receipt, err := a.dir.Install(ctx, a.client, name)
	if err != nil {
		if errors.Is(err, toolsdir.ErrNoManifest) {
			return err
		}
		return serverError(a.client.Address, err)
	}

	target := a.dir.PackagePath(name)
	for _, file := range receipt.Files {
		a.logger.Debug("installed file",
			"package", name,
			"path", file.Path,
			"size", file.Size,
			"digest", file.Digest.String(),
		)
		fmt.Fprintf(a.stdout, "installed %s\n", filepath.Join(target, filepath.FromSlash(file.Path)))
	}
	fmt.Fprintf(a.stdout, "installed %s: %d files, %s\n", name, len(receipt.Files), humanize.IBytes(uint64(receipt.TotalSize())))
	return nil
}

func (a *app) uninstall(name string) error {
	if err := a.dir.Uninstall(name); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "uninstalled %s\n", name)
	return nil
}

func (a *app) verify(name string) error {
	mismatches, err := a.dir.Verify(name)
	if err != nil {
		return err
	}
	if len(mismatches) == 0 {
		fmt.Fprintf(a.stdout, "%s: ok\n", name)
		return nil
	}
	for _, mismatch := range mismatches {
		fmt.Fprintf(a.stdout, "%s: %s\n", name, mismatch)
	}
	return fmt.Errorf("%s: %d files differ from the install receipt", name, len(mismatches))
}

// serverError rewords connection failures so the user can tell a down
// server from a refused request.
func serverError(address string, err error) error {
	var remote *pkgproto.RemoteError
	if errors.As(err, &remote) {
		return err
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("server %s is unavailable, try again later: %w", address, err)
	}
	return err
}
