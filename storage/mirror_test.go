package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pacco-io/pacco/storage"
	"github.com/pacco-io/pacco/storage/localfs"
	"github.com/pacco-io/pacco/storage/testkit"
)

func newMirror(t *testing.T) (*storage.Mirror, []*localfs.Backend) {
	t.Helper()
	var backs []*localfs.Backend
	var named []storage.NamedBackend
	for _, name := range []string{"primary", "replica"} {
		b, err := localfs.New(t.TempDir())
		if err != nil {
			t.Fatalf("localfs.New(%s): %v", name, err)
		}
		backs = append(backs, b)
		named = append(named, storage.NamedBackend{Name: name, Backend: b})
	}
	return &storage.Mirror{Backends: named}, backs
}

func TestMirror_Conformance(t *testing.T) {
	testkit.RunBackendConformance(t, func(t *testing.T) storage.Backend {
		t.Helper()
		m, _ := newMirror(t)
		return m
	})
}

func TestMirror_MutationsReachEveryBackend(t *testing.T) {
	m, backs := newMirror(t)
	if err := m.CreateRegistry("pkg", []string{"os"}); err != nil {
		t.Fatalf("CreateRegistry: %v", err)
	}
	src := testkit.WriteTree(t, map[string]string{"f.txt": "payload"})
	if err := m.PutTree("pkg", "os=linux", src); err != nil {
		t.Fatalf("PutTree: %v", err)
	}

	for i, b := range backs {
		keys, err := b.Keys("pkg")
		if err != nil {
			t.Fatalf("backend %d Keys: %v", i, err)
		}
		if len(keys) != 1 || keys[0] != "os=linux" {
			t.Fatalf("backend %d missed the write: %v", i, keys)
		}
		dst := filepath.Join(t.TempDir(), "out")
		if err := b.GetTree("pkg", "os=linux", dst); err != nil {
			t.Fatalf("backend %d GetTree: %v", i, err)
		}
		got := testkit.ReadTree(t, dst)
		if got["f.txt"] != "payload" {
			t.Fatalf("backend %d content: %v", i, got)
		}
	}

	if err := m.DeleteTree("pkg", "os=linux"); err != nil {
		t.Fatalf("DeleteTree: %v", err)
	}
	for i, b := range backs {
		keys, err := b.Keys("pkg")
		if err != nil {
			t.Fatalf("backend %d Keys: %v", i, err)
		}
		if len(keys) != 0 {
			t.Fatalf("backend %d missed the delete: %v", i, keys)
		}
	}
}

// faultyReads wraps a backend whose GetTree dumps a partial file into the
// destination and then reports a media fault.
type faultyReads struct {
	storage.Backend
}

func (f *faultyReads) GetTree(registry, key, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dstDir, "partial.bin"), []byte("torn"), 0o644); err != nil {
		return err
	}
	return storage.IOError("read tree", errors.New("disk fault"))
}

func TestMirror_FallbackReadLeavesNoPartialFiles(t *testing.T) {
	good, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	if err := good.CreateRegistry("pkg", []string{"os"}); err != nil {
		t.Fatalf("CreateRegistry: %v", err)
	}
	src := testkit.WriteTree(t, map[string]string{"f.txt": "payload"})
	if err := good.PutTree("pkg", "os=linux", src); err != nil {
		t.Fatalf("PutTree: %v", err)
	}

	m := &storage.Mirror{Backends: []storage.NamedBackend{
		{Name: "flaky", Backend: &faultyReads{Backend: good}},
		{Name: "good", Backend: good},
	}}

	dst := filepath.Join(t.TempDir(), "out")
	if err := m.GetTree("pkg", "os=linux", dst); err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	got := testkit.ReadTree(t, dst)
	want := map[string]string{"f.txt": "payload"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("failed attempt leaked into destination: %v", got)
	}
}

func TestMirror_LogicalErrorsAreAuthoritative(t *testing.T) {
	m, _ := newMirror(t)
	if err := m.CreateRegistry("pkg", []string{"os"}); err != nil {
		t.Fatalf("CreateRegistry: %v", err)
	}
	// NotFound from the first mirror must surface as-is, not trigger
	// fallback to the second.
	err := m.GetTree("pkg", "os=linux", t.TempDir())
	if !storage.IsNotFound(err) {
		t.Fatalf("GetTree(missing): got %v want ErrNotFound", err)
	}
}

func TestMirror_EmptyIsRejected(t *testing.T) {
	m := &storage.Mirror{}
	if err := m.CreateRegistry("pkg", []string{"os"}); err == nil {
		t.Fatalf("empty mirror should reject mutations")
	}
	if _, err := m.Registries(); err == nil {
		t.Fatalf("empty mirror should reject reads")
	}
}
