package connections_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hbjs97/kconn/internal/apperr"
	"github.com/hbjs97/kconn/internal/connections"
	"github.com/hbjs97/kconn/internal/kernel"
	"github.com/hbjs97/kconn/internal/localstore"
)

type fakeChecker struct {
	result *kernel.Result
	err    error
	got    []string
	env    []map[string]string
}

func (f *fakeChecker) CheckKernel(_ context.Context, opts kernel.Options) (*kernel.Result, error) {
	f.got = append(f.got, opts.Cmd)
	f.env = append(f.env, opts.Env)
	return f.result, f.err
}

type staticEnv map[string]string

func (e staticEnv) GetEnv(context.Context) map[string]string { return e }

type failingStore struct{ localstore.Store }

func (failingStore) Set(string, any) error { return errors.New("disk full") }

func newStore(t *testing.T, path string) *connections.Store {
	t.Helper()
	local, err := localstore.OpenFile(path)
	require.NoError(t, err)
	defs, err := connections.LoadDefinitions()
	require.NoError(t, err)
	s, err := connections.NewStore(local, defs, nil)
	require.NoError(t, err)
	n := 0
	s.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

func TestStore_AddPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s := newStore(t, path)

	state, err := s.AddConnection()
	require.NoError(t, err)
	assert.Equal(t, "id-1", state.Active)
	require.Len(t, state.List, 1)
	assert.Equal(t, "python", state.List[0].Type)

	_, err = s.Dispatch(connections.AddChange{ID: "id-1", Key: "pythonCmd", Value: "/usr/bin/python3"})
	require.NoError(t, err)

	reloaded := newStore(t, path)
	state = reloaded.State()
	require.Len(t, state.List, 1)
	assert.Equal(t, "/usr/bin/python3", state.List[0].Get("pythonCmd"))
	// selection is not persisted
	assert.Empty(t, state.Active)
}

func TestStore_RecordJSONIsFlat(t *testing.T) {
	r := connections.Record{ID: "a", Type: "python", Closeable: true, Fields: map[string]string{"pythonCmd": "python3"}}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","type":"python","closeable":true,"pythonCmd":"python3"}`, string(data))

	var back connections.Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","type":"python","closeable":true,"pythonCmd":"python3","port":8888}`), &back))
	assert.Equal(t, r, back)
}

func TestStore_PersistFailureReturnsError(t *testing.T) {
	local, err := localstore.OpenFile(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	defs, err := connections.LoadDefinitions()
	require.NoError(t, err)
	s, err := connections.NewStore(failingStore{local}, defs, nil)
	require.NoError(t, err)

	state, err := s.AddConnection()
	assert.ErrorContains(t, err, "disk full")
	// state transition still happened
	assert.Len(t, state.List, 1)
}

func TestStore_Connect(t *testing.T) {
	s := newStore(t, filepath.Join(t.TempDir(), "store.json"))
	_, err := s.AddConnection()
	require.NoError(t, err)

	checker := &fakeChecker{result: &kernel.Result{Executable: "/usr/bin/python3", Version: "3.12.1"}}
	s.Checker = checker

	state, err := s.Connect(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, "id-1", state.Connected)
	assert.Empty(t, state.Errors)
	// falls back to the definition default
	assert.Equal(t, []string{"python3"}, checker.got)

	state, err = s.Disconnect()
	require.NoError(t, err)
	assert.Empty(t, state.Connected)
}

func TestStore_ConnectUsesEnv(t *testing.T) {
	s := newStore(t, filepath.Join(t.TempDir(), "store.json"))
	_, err := s.AddConnection()
	require.NoError(t, err)
	checker := &fakeChecker{result: &kernel.Result{Version: "3.12.1"}}
	s.Checker = checker
	s.Env = staticEnv{"PATH": "/opt/conda/bin"}

	_, err = s.Connect(context.Background(), "id-1")
	require.NoError(t, err)

	require.Len(t, checker.env, 1)
	assert.Equal(t, "/opt/conda/bin", checker.env[0]["PATH"])
}

func TestStore_ConnectFailures(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		checker connections.KernelChecker
		wantMsg string
	}{
		{"unknown id", "missing", &fakeChecker{}, "연결을 찾을 수 없습니다"},
		{"no checker", "id-1", nil, "kernel checker"},
		{"probe error", "id-1", &fakeChecker{err: errors.New("exec: python3: not found")}, "not found"},
		{"kernel errors", "id-1", &fakeChecker{result: &kernel.Result{Errors: []apperr.Object{apperr.New("ipykernel is not installed")}}}, "ipykernel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, filepath.Join(t.TempDir(), "store.json"))
			_, err := s.AddConnection()
			require.NoError(t, err)
			s.Checker = tt.checker

			state, err := s.Connect(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Empty(t, state.Connected)
			require.Len(t, state.Errors, 1)
			assert.Contains(t, state.Errors[0].Message, tt.wantMsg)
		})
	}
}

func TestStore_StateIsACopy(t *testing.T) {
	s := newStore(t, filepath.Join(t.TempDir(), "store.json"))
	_, err := s.AddConnection()
	require.NoError(t, err)

	state := s.State()
	state.List[0].ID = "mutated"

	assert.Equal(t, "id-1", s.State().List[0].ID)
}

func TestStore_FieldDefault(t *testing.T) {
	s := newStore(t, filepath.Join(t.TempDir(), "store.json"))
	r := connections.Record{Type: "python"}
	assert.Equal(t, "python3", s.Field(r, "pythonCmd"))
	r.Fields = map[string]string{"pythonCmd": "pypy3"}
	assert.Equal(t, "pypy3", s.Field(r, "pythonCmd"))
	assert.Empty(t, s.Field(r, "cwd"))
}

func TestParseDefinitions(t *testing.T) {
	_, err := connections.ParseDefinitions([]byte("types: []"))
	assert.Error(t, err)

	_, err = connections.ParseDefinitions([]byte("defaultType: ghost\ntypes:\n  - name: python\n"))
	assert.Error(t, err)

	defs, err := connections.LoadDefinitions()
	require.NoError(t, err)
	assert.NotNil(t, defs.Type("jupyter"))
	assert.Nil(t, defs.Type("nope"))
}
