// Package remotes maintains the named storage locations binaries live in:
// the remote index, the optional default remote, and the resolution of a
// remote name to an opened storage backend.
package remotes

import (
	"fmt"

	"github.com/pacco-io/pacco/statestore"
	"github.com/pacco-io/pacco/storage"
	"github.com/pacco-io/pacco/storage/backendreg"
)

// Index is the process's view of the persisted remote index. All mutation
// goes through the underlying statestore.Store, so the index survives
// restarts.
type Index struct {
	store statestore.Store
}

// NewIndex wraps a state store.
func NewIndex(store statestore.Store) *Index {
	return &Index{store: store}
}

// Add registers a new remote. The backend type and its config are
// validated against the registered backend types before anything is
// persisted, so the index never holds a remote that cannot be opened.
func (ix *Index) Add(name, typ string, config map[string]string) error {
	if name == "" {
		return fmt.Errorf("remotes: remote name is required")
	}
	if err := backendreg.Validate(typ, config); err != nil {
		return err
	}
	recs, err := ix.store.Remotes()
	if err != nil {
		return err
	}
	for _, r := range recs {
		if r.Name == name {
			return fmt.Errorf("remote %q: %w", name, storage.ErrDuplicate)
		}
	}
	return ix.store.PutRemote(statestore.RemoteRecord{Name: name, Type: typ, Config: config})
}

// Remove deletes a remote. If it was the default, the default is cleared
// as a side effect (the store guarantees this atomically with the delete).
func (ix *Index) Remove(name string) error {
	return ix.store.DeleteRemote(name)
}

// List returns remote names in insertion order.
func (ix *Index) List() ([]string, error) {
	recs, err := ix.store.Remotes()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out, nil
}

// SetDefault marks an existing remote as the default.
func (ix *Index) SetDefault(name string) error {
	recs, err := ix.store.Remotes()
	if err != nil {
		return err
	}
	for _, r := range recs {
		if r.Name == name {
			return ix.store.SetDefault(name)
		}
	}
	return fmt.Errorf("remote %q: %w", name, storage.ErrNotFound)
}

// ClearDefault unsets the default remote. Clearing is always legal and
// idempotent.
func (ix *Index) ClearDefault() error {
	return ix.store.ClearDefault()
}

// Default returns the default remote's name, if one is set.
func (ix *Index) Default() (string, bool, error) {
	return ix.store.Default()
}

// Lookup returns the persisted record for name.
func (ix *Index) Lookup(name string) (statestore.RemoteRecord, error) {
	recs, err := ix.store.Remotes()
	if err != nil {
		return statestore.RemoteRecord{}, err
	}
	for _, r := range recs {
		if r.Name == name {
			return r, nil
		}
	}
	return statestore.RemoteRecord{}, fmt.Errorf("remote %q: %w", name, storage.ErrNotFound)
}

// Open resolves name to its backend handle. Callers own the returned
// backend and must Close it.
func (ix *Index) Open(name string) (storage.Backend, error) {
	rec, err := ix.Lookup(name)
	if err != nil {
		return nil, err
	}
	return backendreg.Open(rec.Type, rec.Config)
}
