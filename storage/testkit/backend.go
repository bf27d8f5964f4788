// Package testkit holds the conformance suite every storage.Backend
// implementation must pass.
package testkit

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pacco-io/pacco/storage"
)

// NewBackend constructs a fresh, empty backend instance for a test.
// The returned backend MUST be isolated from other tests.
type NewBackend func(t *testing.T) storage.Backend

// WriteTree materializes files (relative slash path -> content) under a
// fresh temp directory and returns its path.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return dir
}

// ReadTree collects the regular files under dir as relative slash path ->
// content.
func ReadTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("read tree %s: %v", dir, err)
	}
	return out
}

// RunBackendConformance exercises the storage.Backend contract.
func RunBackendConformance(t *testing.T, newBackend NewBackend) {
	t.Helper()

	t.Run("FreshBackendIsEmpty", func(t *testing.T) {
		b := newBackend(t)
		regs, err := b.Registries()
		if err != nil {
			t.Fatalf("Registries failed: %v", err)
		}
		if len(regs) != 0 {
			t.Fatalf("fresh backend lists registries: %v", regs)
		}
	})

	t.Run("CreateDuplicateRegistry", func(t *testing.T) {
		b := newBackend(t)
		if err := b.CreateRegistry("pkg", []string{"os", "version"}); err != nil {
			t.Fatalf("CreateRegistry failed: %v", err)
		}
		err := b.CreateRegistry("pkg", []string{"os"})
		if !storage.IsDuplicate(err) {
			t.Fatalf("duplicate create: got %v want ErrDuplicate", err)
		}
	})

	t.Run("SchemaRoundTrip", func(t *testing.T) {
		b := newBackend(t)
		want := []string{"os", "compiler", "version"}
		if err := b.CreateRegistry("openssl", want); err != nil {
			t.Fatalf("CreateRegistry failed: %v", err)
		}
		got, err := b.Schema("openssl")
		if err != nil {
			t.Fatalf("Schema failed: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Schema: got %v want %v", got, want)
		}
		if _, err := b.Schema("nope"); !storage.IsNotFound(err) {
			t.Fatalf("Schema(missing): got %v want ErrNotFound", err)
		}
	})

	t.Run("RegistriesSorted", func(t *testing.T) {
		b := newBackend(t)
		for _, name := range []string{"zlib", "boost", "openssl"} {
			if err := b.CreateRegistry(name, []string{"os"}); err != nil {
				t.Fatalf("CreateRegistry(%s) failed: %v", name, err)
			}
		}
		got, err := b.Registries()
		if err != nil {
			t.Fatalf("Registries failed: %v", err)
		}
		want := []string{"boost", "openssl", "zlib"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Registries: got %v want %v", got, want)
		}
	})

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		b := newBackend(t)
		if err := b.CreateRegistry("pkg", []string{"os"}); err != nil {
			t.Fatalf("CreateRegistry failed: %v", err)
		}
		files := map[string]string{
			"sample.a":        "\x7fELF bytes",
			"include/pkg.h":   "#pragma once\n",
			"share/empty.txt": "",
		}
		src := WriteTree(t, files)
		if err := b.PutTree("pkg", "os=linux", src); err != nil {
			t.Fatalf("PutTree failed: %v", err)
		}

		dst := filepath.Join(t.TempDir(), "out")
		if err := b.GetTree("pkg", "os=linux", dst); err != nil {
			t.Fatalf("GetTree failed: %v", err)
		}
		if got := ReadTree(t, dst); !reflect.DeepEqual(got, files) {
			t.Fatalf("round trip mismatch:\ngot  %v\nwant %v", got, files)
		}
	})

	t.Run("PutOverwritesAtomically", func(t *testing.T) {
		b := newBackend(t)
		if err := b.CreateRegistry("pkg", []string{"os"}); err != nil {
			t.Fatalf("CreateRegistry failed: %v", err)
		}
		old := WriteTree(t, map[string]string{"old.txt": "old", "keep/a.txt": "a"})
		if err := b.PutTree("pkg", "os=linux", old); err != nil {
			t.Fatalf("PutTree(old) failed: %v", err)
		}
		next := map[string]string{"new.txt": "new"}
		if err := b.PutTree("pkg", "os=linux", WriteTree(t, next)); err != nil {
			t.Fatalf("PutTree(new) failed: %v", err)
		}

		dst := filepath.Join(t.TempDir(), "out")
		if err := b.GetTree("pkg", "os=linux", dst); err != nil {
			t.Fatalf("GetTree failed: %v", err)
		}
		// No mixture: the old tree must be gone entirely.
		if got := ReadTree(t, dst); !reflect.DeepEqual(got, next) {
			t.Fatalf("overwrite left mixed content: %v", got)
		}
	})

	t.Run("KeysSortedAndDeleteIsFinal", func(t *testing.T) {
		b := newBackend(t)
		if err := b.CreateRegistry("pkg", []string{"os"}); err != nil {
			t.Fatalf("CreateRegistry failed: %v", err)
		}
		src := WriteTree(t, map[string]string{"f": "x"})
		for _, key := range []string{"os=osx", "os=android", "os=linux"} {
			if err := b.PutTree("pkg", key, src); err != nil {
				t.Fatalf("PutTree(%s) failed: %v", key, err)
			}
		}
		got, err := b.Keys("pkg")
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		want := []string{"os=android", "os=linux", "os=osx"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Keys: got %v want %v", got, want)
		}

		if err := b.DeleteTree("pkg", "os=linux"); err != nil {
			t.Fatalf("DeleteTree failed: %v", err)
		}
		if err := b.DeleteTree("pkg", "os=linux"); !storage.IsNotFound(err) {
			t.Fatalf("second delete: got %v want ErrNotFound", err)
		}
		if err := b.GetTree("pkg", "os=linux", t.TempDir()); !storage.IsNotFound(err) {
			t.Fatalf("GetTree(deleted): got %v want ErrNotFound", err)
		}
	})

	t.Run("DropRegistryPolicy", func(t *testing.T) {
		b := newBackend(t)
		if err := b.CreateRegistry("pkg", []string{"os"}); err != nil {
			t.Fatalf("CreateRegistry failed: %v", err)
		}
		src := WriteTree(t, map[string]string{"f": "x"})
		if err := b.PutTree("pkg", "os=linux", src); err != nil {
			t.Fatalf("PutTree failed: %v", err)
		}
		if err := b.DropRegistry("pkg"); !storage.IsNotEmpty(err) {
			t.Fatalf("drop non-empty: got %v want ErrNotEmpty", err)
		}
		if err := b.DeleteTree("pkg", "os=linux"); err != nil {
			t.Fatalf("DeleteTree failed: %v", err)
		}
		if err := b.DropRegistry("pkg"); err != nil {
			t.Fatalf("DropRegistry failed: %v", err)
		}
		if err := b.DropRegistry("pkg"); !storage.IsNotFound(err) {
			t.Fatalf("drop missing: got %v want ErrNotFound", err)
		}
	})

	t.Run("UnknownRegistry", func(t *testing.T) {
		b := newBackend(t)
		src := WriteTree(t, map[string]string{"f": "x"})
		if err := b.PutTree("ghost", "os=linux", src); !storage.IsNotFound(err) {
			t.Fatalf("PutTree(unknown registry): got %v want ErrNotFound", err)
		}
		if _, err := b.Keys("ghost"); !storage.IsNotFound(err) {
			t.Fatalf("Keys(unknown registry): got %v want ErrNotFound", err)
		}
	})
}
