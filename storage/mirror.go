package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/pacco-io/pacco/internal/treeio"
)

// Mirror is a composite backend that keeps several backends in lockstep.
//
// Mutations (CreateRegistry, DropRegistry, PutTree, DeleteTree) are applied
// to every backend in slice order and fail on the first backend that
// refuses. Reads are served by the first backend and fall back in order
// only on ErrBackendIO, so all mirrors must agree on logical content.
//
// Backend order is the caller's fixed slice order; this keeps read
// fallback deterministic.
type Mirror struct {
	Backends []NamedBackend
}

var _ Backend = (*Mirror)(nil)

func (m *Mirror) CreateRegistry(name string, schema []string) error {
	return m.eachMutate("create registry", func(b Backend) error {
		return b.CreateRegistry(name, schema)
	})
}

func (m *Mirror) DropRegistry(name string) error {
	return m.eachMutate("drop registry", func(b Backend) error {
		return b.DropRegistry(name)
	})
}

func (m *Mirror) Registries() ([]string, error) {
	var out []string
	err := m.read(func(b Backend) error {
		var err error
		out, err = b.Registries()
		return err
	})
	return out, err
}

func (m *Mirror) Schema(registry string) ([]string, error) {
	var out []string
	err := m.read(func(b Backend) error {
		var err error
		out, err = b.Schema(registry)
		return err
	})
	return out, err
}

func (m *Mirror) Keys(registry string) ([]string, error) {
	var out []string
	err := m.read(func(b Backend) error {
		var err error
		out, err = b.Keys(registry)
		return err
	})
	return out, err
}

func (m *Mirror) PutTree(registry, key, srcDir string) error {
	return m.eachMutate("put tree", func(b Backend) error {
		return b.PutTree(registry, key, srcDir)
	})
}

func (m *Mirror) GetTree(registry, key, dstDir string) error {
	// Each attempt lands in scratch space first. A mirror that fails
	// mid-copy must not leave partial files for the fallback copy to get
	// mixed into; dstDir only ever receives one complete tree.
	return m.read(func(b Backend) error {
		tmp, err := os.MkdirTemp("", "mirror-get-")
		if err != nil {
			return IOError("stage tree", err)
		}
		defer os.RemoveAll(tmp)
		if err := b.GetTree(registry, key, tmp); err != nil {
			return err
		}
		if err := treeio.CopyTree(tmp, dstDir); err != nil {
			return IOError("copy tree", err)
		}
		return nil
	})
}

func (m *Mirror) DeleteTree(registry, key string) error {
	return m.eachMutate("delete tree", func(b Backend) error {
		return b.DeleteTree(registry, key)
	})
}

func (m *Mirror) Close() error {
	var firstErr error
	for i := len(m.Backends) - 1; i >= 0; i-- {
		if err := m.Backends[i].Backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Mirror) eachMutate(op string, fn func(Backend) error) error {
	if len(m.Backends) == 0 {
		return fmt.Errorf("storage: mirror has no backends")
	}
	for _, b := range m.Backends {
		if err := fn(b.Backend); err != nil {
			return fmt.Errorf("mirror backend %q: %s: %w", b.Name, op, err)
		}
	}
	return nil
}

func (m *Mirror) read(fn func(Backend) error) error {
	if len(m.Backends) == 0 {
		return fmt.Errorf("storage: mirror has no backends")
	}
	var lastErr error
	for _, b := range m.Backends {
		err := fn(b.Backend)
		if err == nil {
			return nil
		}
		// Logical answers (NotFound etc.) are authoritative from the first
		// mirror; only transport or media faults justify falling back.
		if !IsBackendIO(err) {
			return err
		}
		lastErr = fmt.Errorf("mirror backend %q: %w", b.Name, err)
	}
	return lastErr
}

// IsBackendIO reports whether err is (or wraps) ErrBackendIO.
func IsBackendIO(err error) bool { return errors.Is(err, ErrBackendIO) }
