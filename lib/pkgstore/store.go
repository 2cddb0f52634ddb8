// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pkgstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ManifestName is the file name of the manifest inside the root.
const ManifestName = "manifest.txt"

var (
	// ErrNotFound is returned when the manifest or a package directory
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidName is returned for package names that could address
	// anything other than a direct child of the root.
	ErrInvalidName = errors.New("invalid package name")
)

// Store answers manifest and package queries against a single root
// directory.
type Store struct {
	path string
	root *os.Root
	fsys fs.FS
}

// Entry is one regular file inside a package.
type Entry struct {
	// Path is relative to the package directory and always uses '/'
	// as the separator.
	Path string

	// Size is the file size in bytes at enumeration time.
	Size int64

	// fullPath is the path relative to the store root, used to reopen
	// the file for streaming.
	fullPath string
	fsys     fs.FS
}

// Open reopens the file for reading. The file may have changed since
// enumeration; callers bound their reads to Size.
func (e Entry) Open() (io.ReadCloser, error) {
	if e.fsys == nil {
		return nil, fmt.Errorf("entry %q has no backing store", e.Path)
	}
	return e.fsys.Open(e.fullPath)
}

// EnsureRoot converts path to an absolute path and creates the
// directory if it does not exist yet. This is a startup concern: the
// Store itself never creates anything.
func EnsureRoot(path string) (string, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", path, err)
	}
	info, err := os.Stat(absolute)
	if err == nil {
		if !info.IsDir() {
			return "", fmt.Errorf("root %s exists and is not a directory", absolute)
		}
		return absolute, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking root %s: %w", absolute, err)
	}
	if err := os.MkdirAll(absolute, 0o755); err != nil {
		return "", fmt.Errorf("creating root %s: %w", absolute, err)
	}
	return absolute, nil
}

// Open opens the root directory. The directory must already exist.
func Open(path string) (*Store, error) {
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, fmt.Errorf("opening package root %s: %w", path, err)
	}
	return &Store{path: path, root: root, fsys: root.FS()}, nil
}

// Path returns the root directory this store was opened on.
func (s *Store) Path() string {
	return s.path
}

// Close releases the root directory handle.
func (s *Store) Close() error {
	return s.root.Close()
}

// ReadManifest returns the full manifest contents. A manifest that is
// missing or is not a regular file yields ErrNotFound.
func (s *Store) ReadManifest() ([]byte, error) {
	info, err := fs.Stat(s.fsys, ManifestName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("checking manifest: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}
	data, err := fs.ReadFile(s.fsys, ManifestName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return data, nil
}

// ValidateName reports whether name is acceptable as a package name.
// It never touches the filesystem.
func ValidateName(name string) error {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return ErrInvalidName
	}
	return nil
}

// Enumerate lists every regular file under the named package.
//
// Returns ErrInvalidName if the name fails [ValidateName] and
// ErrNotFound if it does not name an existing directory directly under
// the root. Any other error is a fault in the walk itself.
func (s *Store) Enumerate(name string) ([]Entry, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	// "." and "" pass the separator check but name the root itself,
	// and names with NUL or similar are rejected by fs.ValidPath.
	if name == "" || name == "." || !fs.ValidPath(name) {
		return nil, ErrNotFound
	}

	info, err := fs.Stat(s.fsys, name)
	if err != nil || !info.IsDir() {
		// Any stat failure (missing, permission, escaping symlink)
		// means there is no package here as far as clients can tell.
		return nil, ErrNotFound
	}

	prefix := name + "/"
	var entries []Entry
	err = fs.WalkDir(s.fsys, name, func(walkPath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		relative, ok := strings.CutPrefix(walkPath, prefix)
		if !ok || !fs.ValidPath(relative) {
			return nil
		}
		relative = filepath.ToSlash(relative)
		if relative == ".." || strings.HasPrefix(relative, "../") {
			return nil
		}
		fileInfo, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Removed between ReadDir and Info.
				return nil
			}
			return fmt.Errorf("inspecting %s: %w", walkPath, err)
		}
		entries = append(entries, Entry{
			Path:     relative,
			Size:     fileInfo.Size(),
			fullPath: path.Join(name, relative),
			fsys:     s.fsys,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating package %q: %w", name, err)
	}
	return entries, nil
}
