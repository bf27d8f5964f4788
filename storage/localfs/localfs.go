// Package localfs is the reference storage.Backend: a directory tree on a
// local filesystem.
//
// Layout under the configured root:
//
//	<root>/.staging/                 scratch space for atomic promotion
//	<root>/<registry>/.schema.json   the registry's property schema
//	<root>/<registry>/<key>/...      one stored tree per canonical key
//
// Every mutation is staged under .staging (same filesystem as the visible
// namespace) and promoted or retired with a single os.Rename, so readers
// observe a key as fully present or fully absent, never half-written.
package localfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio"

	"github.com/pacco-io/pacco/internal/keylock"
	"github.com/pacco-io/pacco/internal/treeio"
	"github.com/pacco-io/pacco/storage"
)

const (
	schemaFile = ".schema.json"
	stagingDir = ".staging"
)

// Backend stores registries and trees beneath a root directory.
type Backend struct {
	root  string
	locks keylock.Map
}

var _ storage.Backend = (*Backend)(nil)

// New constructs a backend rooted at root, creating the directory and its
// staging area if needed.
func New(root string) (*Backend, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(filepath.Join(root, stagingDir), 0o755); err != nil {
		return nil, storage.IOError("init root", err)
	}
	return &Backend{root: root}, nil
}

func (b *Backend) CreateRegistry(name string, schema []string) error {
	if err := checkName(name); err != nil {
		return err
	}
	dir := b.registryDir(name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("registry %q: %w", name, storage.ErrDuplicate)
	} else if !os.IsNotExist(err) {
		return storage.IOError("stat registry", err)
	}

	// Stage the registry skeleton and promote it with one rename so a
	// registry is never visible without its schema.
	tmp, err := os.MkdirTemp(filepath.Join(b.root, stagingDir), "reg-")
	if err != nil {
		return storage.IOError("stage registry", err)
	}
	defer os.RemoveAll(tmp)

	buf, err := json.Marshal(schema)
	if err != nil {
		return storage.IOError("encode schema", err)
	}
	if err := renameio.WriteFile(filepath.Join(tmp, schemaFile), buf, 0o644); err != nil {
		return storage.IOError("write schema", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		if os.IsExist(err) || errors.Is(err, os.ErrExist) {
			return fmt.Errorf("registry %q: %w", name, storage.ErrDuplicate)
		}
		return storage.IOError("promote registry", err)
	}
	return nil
}

func (b *Backend) DropRegistry(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	dir := b.registryDir(name)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("registry %q: %w", name, storage.ErrNotFound)
		}
		return storage.IOError("stat registry", err)
	}
	keys, err := b.Keys(name)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return fmt.Errorf("registry %q holds %d binaries: %w", name, len(keys), storage.ErrNotEmpty)
	}
	return b.retire(dir, "drop registry")
}

func (b *Backend) Registries() ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, storage.IOError("read root", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func (b *Backend) Schema(registry string) ([]string, error) {
	if err := checkName(registry); err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(filepath.Join(b.registryDir(registry), schemaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("registry %q: %w", registry, storage.ErrNotFound)
		}
		return nil, storage.IOError("read schema", err)
	}
	var schema []string
	if err := json.Unmarshal(buf, &schema); err != nil {
		return nil, storage.IOError("decode schema", err)
	}
	return schema, nil
}

func (b *Backend) Keys(registry string) ([]string, error) {
	if err := checkName(registry); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(b.registryDir(registry))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("registry %q: %w", registry, storage.ErrNotFound)
		}
		return nil, storage.IOError("read registry", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func (b *Backend) PutTree(registry, key, srcDir string) error {
	if err := checkName(registry); err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	unlock := b.locks.Lock(registry + "/" + key)
	defer unlock()

	if _, err := b.Schema(registry); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(filepath.Join(b.root, stagingDir), "put-")
	if err != nil {
		return storage.IOError("stage tree", err)
	}
	defer os.RemoveAll(tmp)

	staged := filepath.Join(tmp, "tree")
	if err := treeio.CopyTree(srcDir, staged); err != nil {
		return storage.IOError("stage tree", err)
	}

	target := filepath.Join(b.registryDir(registry), key)
	if _, err := os.Stat(target); err == nil {
		// Re-upload: retire the old tree first, then promote the new one.
		// A reader sees the old tree or the new one; the gap in between is
		// plain absence, never mixed content.
		if err := b.retire(target, "replace tree"); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return storage.IOError("stat tree", err)
	}
	if err := os.Rename(staged, target); err != nil {
		return storage.IOError("promote tree", err)
	}
	return nil
}

func (b *Backend) GetTree(registry, key, dstDir string) error {
	if err := checkName(registry); err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	unlock := b.locks.Lock(registry + "/" + key)
	defer unlock()

	src := filepath.Join(b.registryDir(registry), key)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
		}
		return storage.IOError("stat tree", err)
	}
	if err := treeio.CopyTree(src, dstDir); err != nil {
		return storage.IOError("copy tree", err)
	}
	return nil
}

func (b *Backend) DeleteTree(registry, key string) error {
	if err := checkName(registry); err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	unlock := b.locks.Lock(registry + "/" + key)
	defer unlock()

	target := filepath.Join(b.registryDir(registry), key)
	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
		}
		return storage.IOError("stat tree", err)
	}
	return b.retire(target, "delete tree")
}

func (b *Backend) Close() error { return nil }

func (b *Backend) registryDir(name string) string {
	return filepath.Join(b.root, name)
}

// retire atomically removes dir from the visible namespace by renaming it
// into staging, then reclaims the space. Only the rename is
// correctness-critical; a crash before RemoveAll leaves garbage in
// .staging, not a half-deleted key.
func (b *Backend) retire(dir, op string) error {
	tomb, err := os.MkdirTemp(filepath.Join(b.root, stagingDir), "rm-")
	if err != nil {
		return storage.IOError(op, err)
	}
	if err := os.Rename(dir, filepath.Join(tomb, "gone")); err != nil {
		_ = os.RemoveAll(tomb)
		return storage.IOError(op, err)
	}
	if err := os.RemoveAll(tomb); err != nil {
		return storage.IOError(op, err)
	}
	return nil
}

func checkName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("localfs: invalid registry name %q: %w", name, storage.ErrNotFound)
	}
	return nil
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("localfs: invalid key %q: %w", key, storage.ErrNotFound)
	}
	return nil
}
