// Package registry is the orchestration layer over one opened backend: the
// per-remote registry catalogue and the artifact store that moves binary
// trees in and out of it.
//
// Identity discipline: every operation that names a binary canonicalizes
// the caller's property assignment against the registry's schema first and
// uses only the canonical key from then on. The backend never sees a
// non-canonical identity.
package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/pacco-io/pacco/props"
	"github.com/pacco-io/pacco/storage"
)

// ErrSourceNotFound reports an upload source path that is missing or not a
// directory.
var ErrSourceNotFound = errors.New("registry: upload source is not a directory")

// Manager exposes registry and binary operations against one backend.
type Manager struct {
	backend storage.Backend
}

// NewManager wraps an opened backend.
func NewManager(backend storage.Backend) *Manager {
	return &Manager{backend: backend}
}

// Create declares a registry with its immutable property schema.
func (m *Manager) Create(name string, schema props.Schema) error {
	return m.backend.CreateRegistry(name, schema)
}

// Drop removes a registry. Removal is rejected with ErrNotEmpty while the
// registry still holds binaries; the required order is binaries, then
// registry, then remote.
func (m *Manager) Drop(name string) error {
	return m.backend.DropRegistry(name)
}

// List returns the registry names known to the backend, sorted.
func (m *Manager) List() ([]string, error) {
	return m.backend.Registries()
}

// Schema returns a registry's declared property schema.
func (m *Manager) Schema(name string) (props.Schema, error) {
	raw, err := m.backend.Schema(name)
	if err != nil {
		return nil, err
	}
	return props.NewSchema(raw)
}

// Binaries returns the canonical key of every binary stored in the
// registry, sorted ascending by canonical key for deterministic output.
func (m *Manager) Binaries(name string) ([]props.Key, error) {
	raw, err := m.backend.Keys(name)
	if err != nil {
		return nil, err
	}
	sort.Strings(raw)
	out := make([]props.Key, 0, len(raw))
	for _, s := range raw {
		key, err := props.ParseKey(s)
		if err != nil {
			return nil, fmt.Errorf("registry %q: stored key %q: %w", name, s, err)
		}
		out = append(out, key)
	}
	return out, nil
}

// Upload stores the tree rooted at srcDir under the binary identified by
// assignment, atomically replacing any previous content at that identity.
func (m *Manager) Upload(name string, assignment props.Assignment, srcDir string) error {
	key, err := m.canonicalize(name, assignment)
	if err != nil {
		return err
	}
	info, err := os.Stat(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, srcDir)
		}
		return storage.IOError("stat source", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, srcDir)
	}
	return m.backend.PutTree(name, key.String(), srcDir)
}

// Download copies the stored tree for assignment into dstDir, creating it
// if absent. Relative paths and byte contents are preserved exactly.
func (m *Manager) Download(name string, assignment props.Assignment, dstDir string) error {
	key, err := m.canonicalize(name, assignment)
	if err != nil {
		return err
	}
	return m.backend.GetTree(name, key.String(), dstDir)
}

// Remove deletes the binary identified by assignment.
func (m *Manager) Remove(name string, assignment props.Assignment) error {
	key, err := m.canonicalize(name, assignment)
	if err != nil {
		return err
	}
	return m.backend.DeleteTree(name, key.String())
}

func (m *Manager) canonicalize(name string, assignment props.Assignment) (props.Key, error) {
	schema, err := m.Schema(name)
	if err != nil {
		return nil, err
	}
	return props.Canonicalize(assignment, schema)
}
