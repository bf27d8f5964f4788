package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacco-io/pacco/props"
	"github.com/pacco-io/pacco/storage"
	"github.com/pacco-io/pacco/storage/localfs"
	"github.com/pacco-io/pacco/storage/testkit"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	backend, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return NewManager(backend)
}

func mustSchema(t *testing.T, names ...string) props.Schema {
	t.Helper()
	s, err := props.NewSchema(names)
	require.NoError(t, err)
	return s
}

func TestManager_RegistryLifecycle(t *testing.T) {
	m := newManager(t)

	names, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, m.Create("openssl", mustSchema(t, "os", "compiler", "version")))
	require.NoError(t, m.Create("boost", mustSchema(t, "os", "target", "type")))
	assert.ErrorIs(t, m.Create("openssl", mustSchema(t, "os")), storage.ErrDuplicate)

	names, err = m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"boost", "openssl"}, names)

	require.NoError(t, m.Drop("openssl"))
	assert.ErrorIs(t, m.Drop("openssl"), storage.ErrNotFound)

	names, err = m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"boost"}, names)
}

func TestManager_UploadDownloadRoundTrip(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Create("pkg", mustSchema(t, "os", "version")))

	files := map[string]string{"sample.a": "archive bytes", "include/pkg.h": "hdr"}
	src := testkit.WriteTree(t, files)
	require.NoError(t, m.Upload("pkg", props.Assignment{"os": "android", "version": "2.1.0"}, src))

	// Property order must not matter for identity.
	dst := filepath.Join(t.TempDir(), "fresh")
	require.NoError(t, m.Download("pkg", props.Assignment{"version": "2.1.0", "os": "android"}, dst))
	assert.Equal(t, files, testkit.ReadTree(t, dst))
}

func TestManager_SchemaEnforcementLeavesStorageUnchanged(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Create("pkg", mustSchema(t, "os", "version")))
	src := testkit.WriteTree(t, map[string]string{"f": "x"})

	cases := []props.Assignment{
		{"os": "android"},                                      // missing property
		{"os": "android", "version": "2.1.0", "arch": "arm64"}, // extra property
		{"host_os": "android", "version": "2.1.0"},             // renamed property
	}
	for _, a := range cases {
		err := m.Upload("pkg", a, src)
		assert.ErrorIs(t, err, props.ErrSchemaMismatch, "assignment %v", a)
	}

	keys, err := m.Binaries("pkg")
	require.NoError(t, err)
	assert.Empty(t, keys, "rejected uploads must not create keys")
}

func TestManager_UploadRejectsUnserializableValues(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Create("pkg", mustSchema(t, "os")))
	src := testkit.WriteTree(t, map[string]string{"f": "x"})

	// A value holding '=' (or an empty value) would store a key string
	// that cannot be parsed back, breaking every later listing. Upload
	// must refuse it up front.
	for _, a := range []props.Assignment{
		{"os": "=x"},
		{"os": "a=b"},
		{"os": ""},
	} {
		assert.Error(t, m.Upload("pkg", a, src), "assignment %v", a)
	}

	keys, err := m.Binaries("pkg")
	require.NoError(t, err)
	assert.Empty(t, keys, "rejected uploads must not create keys")
}

func TestManager_UploadSourceMissing(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Create("pkg", mustSchema(t, "os")))

	err := m.Upload("pkg", props.Assignment{"os": "linux"}, filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrSourceNotFound)

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	err = m.Upload("pkg", props.Assignment{"os": "linux"}, file)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestManager_BinariesSortedCanonical(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Create("pkg", mustSchema(t, "os", "version")))
	src := testkit.WriteTree(t, map[string]string{"f": "x"})

	for _, a := range []props.Assignment{
		{"os": "osx", "version": "1.0"},
		{"version": "1.0", "os": "android"},
		{"os": "linux", "version": "2.0"},
	} {
		require.NoError(t, m.Upload("pkg", a, src))
	}

	keys, err := m.Binaries("pkg")
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Equal(t, "os=android==version=1.0", keys[0].String())
	assert.Equal(t, "os=linux==version=2.0", keys[1].String())
	assert.Equal(t, "os=osx==version=1.0", keys[2].String())
}

func TestManager_RemoveThenListEmpty(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Create("pkg", mustSchema(t, "os")))
	src := testkit.WriteTree(t, map[string]string{"f": "x"})
	a := props.Assignment{"os": "linux"}

	require.NoError(t, m.Upload("pkg", a, src))
	require.NoError(t, m.Remove("pkg", a))

	keys, err := m.Binaries("pkg")
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.ErrorIs(t, m.Remove("pkg", a), storage.ErrNotFound)
	assert.ErrorIs(t, m.Download("pkg", a, t.TempDir()), storage.ErrNotFound)
}

func TestManager_DropNonEmptyRejected(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Create("pkg", mustSchema(t, "os")))
	src := testkit.WriteTree(t, map[string]string{"f": "x"})
	require.NoError(t, m.Upload("pkg", props.Assignment{"os": "linux"}, src))

	assert.ErrorIs(t, m.Drop("pkg"), storage.ErrNotEmpty)

	require.NoError(t, m.Remove("pkg", props.Assignment{"os": "linux"}))
	require.NoError(t, m.Drop("pkg"))
}

func TestManager_ReuploadOverwrites(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Create("pkg", mustSchema(t, "os")))
	a := props.Assignment{"os": "linux"}

	require.NoError(t, m.Upload("pkg", a, testkit.WriteTree(t, map[string]string{"v1.txt": "one"})))
	require.NoError(t, m.Upload("pkg", a, testkit.WriteTree(t, map[string]string{"v2.txt": "two"})))

	dst := filepath.Join(t.TempDir(), "out")
	require.NoError(t, m.Download("pkg", a, dst))
	assert.Equal(t, map[string]string{"v2.txt": "two"}, testkit.ReadTree(t, dst))

	keys, err := m.Binaries("pkg")
	require.NoError(t, err)
	assert.Len(t, keys, 1, "overwrite must not mint a second key")
}

func TestManager_UnknownRegistry(t *testing.T) {
	m := newManager(t)
	src := testkit.WriteTree(t, map[string]string{"f": "x"})
	assert.ErrorIs(t, m.Upload("ghost", props.Assignment{"os": "linux"}, src), storage.ErrNotFound)
	_, err := m.Binaries("ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
