package localstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hbjs97/kconn/internal/localstore"
	"github.com/hbjs97/kconn/internal/testutil"
)

type item struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func backends(t *testing.T) map[string]string {
	t.Helper()
	dir := t.TempDir()
	return map[string]string{
		localstore.BackendJSON:   filepath.Join(dir, "nested", "store.json"),
		localstore.BackendSQLite: filepath.Join(dir, "nested", "store.db"),
	}
}

func TestStore_SetGetReopen(t *testing.T) {
	for backend, path := range backends(t) {
		t.Run(backend, func(t *testing.T) {
			s, err := localstore.Open(backend, path)
			require.NoError(t, err)

			var missing []item
			ok, err := s.Get("manageConnections", &missing)
			require.NoError(t, err)
			assert.False(t, ok)

			want := []item{{ID: "a", Type: "python"}, {ID: "b", Type: "python"}}
			require.NoError(t, s.Set("manageConnections", want))
			require.NoError(t, s.Set("manageConnections", want[:1]))
			require.NoError(t, s.Close())

			reopened, err := localstore.Open(backend, path)
			require.NoError(t, err)
			defer reopened.Close()

			var got []item
			ok, err = reopened.Get("manageConnections", &got)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, want[:1], got)
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := localstore.Open("redis", "/tmp/x")
	assert.ErrorIs(t, err, localstore.ErrUnknownBackend)
}

func TestFile_CorruptFileIsEmpty(t *testing.T) {
	path := testutil.TempStoreFile(t, "{not json")

	s, err := localstore.OpenFile(path)
	require.NoError(t, err)

	var v []item
	ok, err := s.Get("manageConnections", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFile_SavesWith0600(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := localstore.OpenFile(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("k", "v"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Equal(t, path, s.Path())
}

func TestFile_GetTypeMismatch(t *testing.T) {
	path := testutil.TempStoreFile(t, `{"version": 1, "entries": {"k": "string"}}`)
	s, err := localstore.OpenFile(path)
	require.NoError(t, err)

	var n int
	_, err = s.Get("k", &n)
	assert.Error(t, err)
}
