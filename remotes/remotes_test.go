package remotes

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacco-io/pacco/statestore"
	"github.com/pacco-io/pacco/storage"

	_ "github.com/pacco-io/pacco/storage/localfs"
)

func newIndex(t *testing.T) *Index {
	t.Helper()
	store, err := statestore.OpenFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewIndex(store)
}

func localConfig(t *testing.T) map[string]string {
	t.Helper()
	return map[string]string{"path": t.TempDir()}
}

func TestIndex_FreshListsNothing(t *testing.T) {
	ix := newIndex(t)
	names, err := ix.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, ok, err := ix.Default()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndex_AddRejectsDuplicatesAndUnknownTypes(t *testing.T) {
	ix := newIndex(t)
	require.NoError(t, ix.Add("r", "local", localConfig(t)))

	err := ix.Add("r", "local", localConfig(t))
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	assert.Error(t, ix.Add("s", "carrier-pigeon", nil), "unknown backend type")
	assert.Error(t, ix.Add("s", "local", map[string]string{"bogus": "field"}), "undeclared config field")
	assert.Error(t, ix.Add("", "local", localConfig(t)), "empty name")

	// Failed adds must not leak into the index.
	names, err := ix.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"r"}, names)
}

func TestIndex_ListInsertionOrder(t *testing.T) {
	ix := newIndex(t)
	for _, name := range []string{"prod", "ci", "archive"} {
		require.NoError(t, ix.Add(name, "local", localConfig(t)))
	}
	names, err := ix.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"prod", "ci", "archive"}, names)
}

func TestIndex_DefaultLifecycle(t *testing.T) {
	ix := newIndex(t)
	require.NoError(t, ix.Add("r", "local", localConfig(t)))

	assert.ErrorIs(t, ix.SetDefault("ghost"), storage.ErrNotFound)

	require.NoError(t, ix.SetDefault("r"))
	name, ok, err := ix.Default()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "r", name)

	// Clearing is always legal, set or not.
	require.NoError(t, ix.ClearDefault())
	require.NoError(t, ix.ClearDefault())
	_, ok, err = ix.Default()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndex_RemoveClearsDefault(t *testing.T) {
	ix := newIndex(t)
	require.NoError(t, ix.Add("r", "local", localConfig(t)))
	require.NoError(t, ix.SetDefault("r"))

	require.NoError(t, ix.Remove("r"))
	_, ok, err := ix.Default()
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, ix.Remove("r"), storage.ErrNotFound)
}

func TestIndex_OpenResolvesBackend(t *testing.T) {
	ix := newIndex(t)
	cfg := localConfig(t)
	require.NoError(t, ix.Add("r", "local", cfg))

	backend, err := ix.Open("r")
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.CreateRegistry("pkg", []string{"os"}))
	regs, err := backend.Registries()
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg"}, regs)

	_, err = ix.Open("ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
