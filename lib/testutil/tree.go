// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTree writes files under directory. Keys are slash-separated
// paths relative to directory; values are file contents. Parent
// directories are created as needed.
//
//	testutil.WriteTree(t, root, map[string]string{
//	    "manifest.txt":     "pkgA: demo\n",
//	    "pkgA/readme.txt":  "hi\n",
//	})
func WriteTree(t testing.TB, directory string, files map[string]string) {
	t.Helper()
	for relative, content := range files {
		full := filepath.Join(directory, filepath.FromSlash(relative))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("creating parent of %s: %v", relative, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", relative, err)
		}
	}
}

// Mkdir creates directory (and parents) relative to base.
func Mkdir(t testing.TB, base, relative string) string {
	t.Helper()
	full := filepath.Join(base, filepath.FromSlash(relative))
	if err := os.MkdirAll(full, 0o755); err != nil {
		t.Fatalf("creating %s: %v", relative, err)
	}
	return full
}
