package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes one pacco invocation against the given home directory and
// returns what it printed.
func runCLI(t *testing.T, home string, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(stdin, &stdout, &stderr)
	cmd.SetArgs(append([]string{"--home", home}, args...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, home string, stdin io.Reader, args ...string) string {
	t.Helper()
	out, errOut, err := runCLI(t, home, stdin, args...)
	require.NoError(t, err, "pacco %s: stderr=%q", strings.Join(args, " "), errOut)
	return out
}

// addLocalRemote registers a localfs remote named name backed by a fresh
// temp directory and returns that directory.
func addLocalRemote(t *testing.T, home, name string) string {
	t.Helper()
	root := t.TempDir()
	mustRun(t, home, strings.NewReader("path="+root+"\n"), "remote", "add", name, "local")
	return root
}

func TestRemoteLifecycle(t *testing.T) {
	home := t.TempDir()

	assert.Equal(t, "[]\n", mustRun(t, home, nil, "remote", "list"))

	addLocalRemote(t, home, "r")
	assert.Equal(t, "['r']\n", mustRun(t, home, nil, "remote", "list"))

	addLocalRemote(t, home, "s")
	assert.Equal(t, "['r', 's']\n", mustRun(t, home, nil, "remote", "list"))

	assert.Equal(t, "[]\n", mustRun(t, home, nil, "remote", "list_default"))
	mustRun(t, home, nil, "remote", "set_default", "r")
	assert.Equal(t, "['r']\n", mustRun(t, home, nil, "remote", "list_default"))

	// Clearing takes no argument.
	mustRun(t, home, nil, "remote", "set_default")
	assert.Equal(t, "[]\n", mustRun(t, home, nil, "remote", "list_default"))

	mustRun(t, home, nil, "remote", "remove", "s")
	assert.Equal(t, "['r']\n", mustRun(t, home, nil, "remote", "list"))
}

func TestRemoteAdd_Rejections(t *testing.T) {
	home := t.TempDir()
	addLocalRemote(t, home, "r")

	_, _, err := runCLI(t, home, strings.NewReader("path="+t.TempDir()+"\n"),
		"remote", "add", "r", "local")
	require.Error(t, err, "duplicate name must be refused")

	_, _, err = runCLI(t, home, nil, "remote", "add", "x", "carrierpigeon")
	require.Error(t, err, "unknown backend type must be refused")

	_, _, err = runCLI(t, home, strings.NewReader("bogus=1\n"), "remote", "add", "x", "local")
	require.Error(t, err, "undeclared config field must be refused")

	// None of the failures may have touched the index.
	assert.Equal(t, "['r']\n", mustRun(t, home, nil, "remote", "list"))
}

func TestRemoveRemoteClearsDefault(t *testing.T) {
	home := t.TempDir()
	addLocalRemote(t, home, "r")
	mustRun(t, home, nil, "remote", "set_default", "r")
	mustRun(t, home, nil, "remote", "remove", "r")
	assert.Equal(t, "[]\n", mustRun(t, home, nil, "remote", "list_default"))
}

func TestRegistryLifecycle(t *testing.T) {
	home := t.TempDir()
	addLocalRemote(t, home, "r")

	assert.Equal(t, "[]\n", mustRun(t, home, nil, "registry", "list", "r"))
	mustRun(t, home, nil, "registry", "add", "r", "pkg", "os,version")
	assert.Equal(t, "['pkg']\n", mustRun(t, home, nil, "registry", "list", "r"))
	assert.Equal(t, "[]\n", mustRun(t, home, nil, "registry", "binaries", "r", "pkg"))
	mustRun(t, home, nil, "registry", "remove", "r", "pkg")
	assert.Equal(t, "[]\n", mustRun(t, home, nil, "registry", "list", "r"))
}

func TestBinaryUploadDownloadRoundTrip(t *testing.T) {
	home := t.TempDir()
	addLocalRemote(t, home, "r")
	mustRun(t, home, nil, "registry", "add", "r", "pkg", "os,version")

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "app.bin"), []byte("payload"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lib", "core.so"), []byte("shared"), 0o644))

	// Assignment order must not matter; the listing is canonical.
	mustRun(t, home, nil, "binary", "upload", "r", "pkg", src, "version=2.1.0,os=android")
	assert.Equal(t, "[{'os': 'android', 'version': '2.1.0'}]\n",
		mustRun(t, home, nil, "registry", "binaries", "r", "pkg"))

	dst := filepath.Join(t.TempDir(), "out")
	mustRun(t, home, nil, "binary", "download", "r", "pkg", dst, "os=android,version=2.1.0")
	got, err := os.ReadFile(filepath.Join(dst, "app.bin"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
	got, err = os.ReadFile(filepath.Join(dst, "lib", "core.so"))
	require.NoError(t, err)
	assert.Equal(t, "shared", string(got))

	mustRun(t, home, nil, "binary", "remove", "r", "pkg", "os=android,version=2.1.0")
	assert.Equal(t, "[]\n", mustRun(t, home, nil, "registry", "binaries", "r", "pkg"))
}

func TestRegistryRemove_NonEmptyRefused(t *testing.T) {
	home := t.TempDir()
	addLocalRemote(t, home, "r")
	mustRun(t, home, nil, "registry", "add", "r", "pkg", "os")

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a"), []byte("x"), 0o644))
	mustRun(t, home, nil, "binary", "upload", "r", "pkg", src, "os=linux")

	_, _, err := runCLI(t, home, nil, "registry", "remove", "r", "pkg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remove its binaries first")

	// Still listed, still holding the binary.
	assert.Equal(t, "['pkg']\n", mustRun(t, home, nil, "registry", "list", "r"))
	assert.Equal(t, "[{'os': 'linux'}]\n", mustRun(t, home, nil, "registry", "binaries", "r", "pkg"))
}

func TestBinaryUpload_SchemaMismatch(t *testing.T) {
	home := t.TempDir()
	addLocalRemote(t, home, "r")
	mustRun(t, home, nil, "registry", "add", "r", "pkg", "os,version")

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a"), []byte("x"), 0o644))

	_, _, err := runCLI(t, home, nil, "binary", "upload", "r", "pkg", src, "os=linux")
	require.Error(t, err, "missing property must be refused")
	assert.Equal(t, "[]\n", mustRun(t, home, nil, "registry", "binaries", "r", "pkg"))
}

func TestBinaryUpload_SourceMissing(t *testing.T) {
	home := t.TempDir()
	addLocalRemote(t, home, "r")
	mustRun(t, home, nil, "registry", "add", "r", "pkg", "os")

	_, _, err := runCLI(t, home, nil, "binary", "upload", "r", "pkg",
		filepath.Join(t.TempDir(), "nope"), "os=linux")
	require.Error(t, err)
}

func TestMirrorRemote(t *testing.T) {
	home := t.TempDir()
	rootA, rootB := t.TempDir(), t.TempDir()
	mustRun(t, home, strings.NewReader("paths="+rootA+";"+rootB+"\n"),
		"remote", "add", "m", "mirror")
	mustRun(t, home, nil, "registry", "add", "m", "pkg", "os")

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a"), []byte("x"), 0o644))
	mustRun(t, home, nil, "binary", "upload", "m", "pkg", src, "os=linux")

	// Both roots hold the tree.
	for _, root := range []string{rootA, rootB} {
		got, err := os.ReadFile(filepath.Join(root, "pkg", "os=linux", "a"))
		require.NoError(t, err, "root %s", root)
		assert.Equal(t, "x", string(got))
	}
	assert.Equal(t, "[{'os': 'linux'}]\n", mustRun(t, home, nil, "registry", "binaries", "m", "pkg"))
}

func TestStateSurvivesAcrossInvocations(t *testing.T) {
	// Every runCLI call builds a fresh command tree and reopens the state
	// store, so this test doubles as a restart check.
	home := t.TempDir()
	addLocalRemote(t, home, "r")
	mustRun(t, home, nil, "remote", "set_default", "r")
	mustRun(t, home, nil, "registry", "add", "r", "pkg", "os")

	assert.Equal(t, "['r']\n", mustRun(t, home, nil, "remote", "list"))
	assert.Equal(t, "['r']\n", mustRun(t, home, nil, "remote", "list_default"))
	assert.Equal(t, "['pkg']\n", mustRun(t, home, nil, "registry", "list", "r"))
}
