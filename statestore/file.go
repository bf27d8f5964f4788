package statestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio"
	"gopkg.in/yaml.v3"

	"github.com/pacco-io/pacco/storage"
)

// fileDoc is the on-disk YAML shape. Remotes keep file order, which is
// insertion order.
type fileDoc struct {
	Remotes []RemoteRecord `yaml:"remotes"`
	Default string         `yaml:"default,omitempty"`
}

// FileStore is a Store backed by a single YAML file. Every mutation
// rewrites the file atomically (write-to-temp + rename), so a crash leaves
// either the old index or the new one, never a torn file.
type FileStore struct {
	path string

	mu  sync.Mutex
	doc fileDoc
}

var _ Store = (*FileStore)(nil)

// OpenFile loads (or initializes) the index at path. Parent directories
// are created as needed.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("statestore: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storage.IOError("init state dir", err)
	}
	s := &FileStore{path: path}
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, storage.IOError("read state", err)
	}
	if err := yaml.Unmarshal(buf, &s.doc); err != nil {
		return nil, fmt.Errorf("statestore: %s is not a valid index: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) Remotes() ([]RemoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RemoteRecord, len(s.doc.Remotes))
	copy(out, s.doc.Remotes)
	return out, nil
}

func (s *FileStore) PutRemote(rec RemoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc
	next.Remotes = append(append([]RemoteRecord(nil), s.doc.Remotes...), rec)
	return s.flush(next)
}

func (s *FileStore) DeleteRemote(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc
	next.Remotes = nil
	found := false
	for _, r := range s.doc.Remotes {
		if r.Name == name {
			found = true
			continue
		}
		next.Remotes = append(next.Remotes, r)
	}
	if !found {
		return fmt.Errorf("remote %q: %w", name, storage.ErrNotFound)
	}
	if next.Default == name {
		next.Default = ""
	}
	return s.flush(next)
}

func (s *FileStore) Default() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Default, s.doc.Default != "", nil
}

func (s *FileStore) SetDefault(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc
	next.Default = name
	return s.flush(next)
}

func (s *FileStore) ClearDefault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc
	next.Default = ""
	return s.flush(next)
}

func (s *FileStore) Close() error { return nil }

// flush persists next and adopts it as the in-memory state only on
// success, so a failed write never leaves memory ahead of disk.
func (s *FileStore) flush(next fileDoc) error {
	buf, err := yaml.Marshal(next)
	if err != nil {
		return storage.IOError("encode state", err)
	}
	if err := renameio.WriteFile(s.path, buf, 0o644); err != nil {
		return storage.IOError("write state", err)
	}
	s.doc = next
	return nil
}
