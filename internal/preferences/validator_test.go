package preferences_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hbjs97/kconn/internal/apperr"
	"github.com/hbjs97/kconn/internal/host"
	"github.com/hbjs97/kconn/internal/kernel"
	"github.com/hbjs97/kconn/internal/preferences"
)

type recorder struct {
	mu     sync.Mutex
	events []preferences.Event
}

func (r *recorder) Dispatch(ev preferences.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []preferences.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]preferences.Event(nil), r.events...)
}

type fakeKernels struct {
	results map[string]*kernel.Result
	err     error
	gates   map[string]chan struct{}
}

func (f *fakeKernels) CheckKernel(_ context.Context, opts kernel.Options) (*kernel.Result, error) {
	if gate, ok := f.gates[opts.Cmd]; ok {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[opts.Cmd]; ok {
		return r, nil
	}
	return &kernel.Result{Cmd: opts.Cmd}, nil
}

type fakeHost struct {
	stats     map[string]*host.FileStats
	statErr   error
	env       map[string]string
	envErr    error
	dialog    []string
	dialogErr error
	dialogGot []host.DialogOptions
}

func (h *fakeHost) FileStats(_ context.Context, path string) (*host.FileStats, error) {
	if h.statErr != nil {
		return nil, h.statErr
	}
	if s, ok := h.stats[path]; ok {
		return s, nil
	}
	return nil, errors.New("ENOENT: " + path)
}

func (h *fakeHost) OpenDialog(_ context.Context, opts host.DialogOptions) ([]string, error) {
	h.dialogGot = append(h.dialogGot, opts)
	return h.dialog, h.dialogErr
}

func (h *fakeHost) EnvironmentVariables(context.Context) (map[string]string, error) {
	return h.env, h.envErr
}

func run(t *testing.T, k preferences.KernelChecker, h host.Host, c preferences.Change) []preferences.Event {
	t.Helper()
	rec := &recorder{}
	v := preferences.NewValidator(k, h, rec, nil)
	v.Add(context.Background(), c)
	v.Wait()
	return rec.all()
}

func TestAdd_UnknownTypeIsValidWithoutAsync(t *testing.T) {
	for _, typ := range []preferences.Type{preferences.TypeText, preferences.TypeNumber, preferences.TypeSelect, preferences.TypeFile, "somethingElse"} {
		t.Run(string(typ), func(t *testing.T) {
			events := run(t, &fakeKernels{}, &fakeHost{}, preferences.NewChange("fontSize", typ, "14"))

			require.Len(t, events, 1)
			assert.Equal(t, preferences.EventChangeAdded, events[0].Kind)
			assert.Equal(t, preferences.StateValid, events[0].Change.State)
			assert.Equal(t, "self", events[0].Sender)
		})
	}
}

func TestAdd_FolderNotADirectory(t *testing.T) {
	h := &fakeHost{stats: map[string]*host.FileStats{"/not/a/dir": {Path: "/not/a/dir", IsDirectory: false}}}

	events := run(t, &fakeKernels{}, h, preferences.NewChange("workingDirectory", preferences.TypeFolder, "/not/a/dir"))

	require.Len(t, events, 2)
	assert.Equal(t, preferences.StateValidating, events[0].Change.State)
	final := events[1]
	assert.Equal(t, preferences.EventChangeDetailAdded, final.Kind)
	assert.Equal(t, preferences.StateInvalid, final.Change.State)
	require.Len(t, final.Change.Errors, 1)
	assert.Equal(t, "Not a directory", final.Change.Errors[0].Message)
	assert.Nil(t, final.Change.FileStats)
}

func TestAdd_FolderValid(t *testing.T) {
	stats := &host.FileStats{Path: "/home/u", IsDirectory: true}
	h := &fakeHost{stats: map[string]*host.FileStats{"/home/u": stats}}

	events := run(t, &fakeKernels{}, h, preferences.NewChange("workingDirectory", preferences.TypeFolder, "/home/u"))

	require.Len(t, events, 2)
	assert.Equal(t, preferences.StateValid, events[1].Change.State)
	assert.Equal(t, stats, events[1].Change.FileStats)
	assert.Empty(t, events[1].Change.Errors)
}

func TestAdd_FolderProbeError(t *testing.T) {
	h := &fakeHost{statErr: errors.New("permission denied")}

	events := run(t, &fakeKernels{}, h, preferences.NewChange("workingDirectory", preferences.TypeFolder, "/root"))

	require.Len(t, events, 2)
	assert.Equal(t, preferences.StateInvalid, events[1].Change.State)
	assert.Equal(t, "permission denied", events[1].Change.Errors[0].Message)
}

func TestAdd_PythonCmd(t *testing.T) {
	good := &kernel.Result{Cmd: "python3", Version: "3.12.1"}
	bad := &kernel.Result{Cmd: "python2", Errors: []apperr.Object{apperr.New("ipykernel is not installed")}}
	k := &fakeKernels{results: map[string]*kernel.Result{"python3": good, "python2": bad}}

	tests := []struct {
		name      string
		k         preferences.KernelChecker
		value     string
		wantState preferences.State
		wantErrs  int
	}{
		{"valid interpreter", k, "python3", preferences.StateValid, 0},
		{"missing packages", k, "python2", preferences.StateInvalid, 1},
		{"probe failure", &fakeKernels{err: errors.New("exec: not found")}, "nope", preferences.StateInvalid, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := run(t, tt.k, &fakeHost{}, preferences.NewChange("pythonCmd", preferences.TypePythonCmd, tt.value))

			require.Len(t, events, 2)
			assert.Equal(t, preferences.EventChangeDetailAdded, events[1].Kind)
			assert.Equal(t, tt.wantState, events[1].Change.State)
			assert.Len(t, events[1].Change.Errors, tt.wantErrs)
		})
	}
}

func TestAdd_PythonCmdKeepsCheckResult(t *testing.T) {
	good := &kernel.Result{Cmd: "python3", Version: "3.12.1"}
	k := &fakeKernels{results: map[string]*kernel.Result{"python3": good}}

	events := run(t, k, &fakeHost{}, preferences.NewChange("pythonCmd", preferences.TypePythonCmd, "python3"))

	require.NotNil(t, events[1].Change.CheckKernel)
	assert.Equal(t, "3.12.1", events[1].Change.CheckKernel.Version)
}

func TestAdd_EnvironmentListEmitsFullChange(t *testing.T) {
	vars := map[string]string{"PATH": "/usr/bin"}

	events := run(t, &fakeKernels{}, &fakeHost{env: vars}, preferences.NewChange("environmentVariables", preferences.TypeEnvironmentVariableList, nil))

	require.Len(t, events, 2)
	assert.Equal(t, preferences.EventChangeAdded, events[1].Kind)
	assert.Equal(t, preferences.StateValid, events[1].Change.State)
	assert.Equal(t, vars, events[1].Change.Value)
}

func TestAdd_EnvironmentListFailures(t *testing.T) {
	tests := []struct {
		name    string
		h       *fakeHost
		wantMsg string
	}{
		{"nil result", &fakeHost{}, "Not a directory"},
		{"error", &fakeHost{envErr: errors.New("ipc closed")}, "ipc closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := run(t, &fakeKernels{}, tt.h, preferences.NewChange("environmentVariables", preferences.TypeEnvironmentVariableList, nil))

			require.Len(t, events, 2)
			assert.Equal(t, preferences.EventChangeAdded, events[1].Kind)
			assert.Equal(t, preferences.StateInvalid, events[1].Change.State)
			assert.Equal(t, tt.wantMsg, events[1].Change.Errors[0].Message)
		})
	}
}

func TestAdd_PanicBecomesInvalid(t *testing.T) {
	// a checker returning (nil, nil) would crash a naive caller
	k := &nilKernels{}

	events := run(t, k, &fakeHost{}, preferences.NewChange("pythonCmd", preferences.TypePythonCmd, "python3"))

	require.Len(t, events, 2)
	assert.Equal(t, preferences.StateInvalid, events[1].Change.State)
}

type nilKernels struct{}

func (nilKernels) CheckKernel(context.Context, kernel.Options) (*kernel.Result, error) {
	return nil, nil
}

func TestAdd_DoesNotMutateInput(t *testing.T) {
	h := &fakeHost{stats: map[string]*host.FileStats{"/x": {IsDirectory: true}}}
	in := preferences.NewChange("workingDirectory", preferences.TypeFolder, "/x")

	run(t, &fakeKernels{}, h, in)

	assert.Equal(t, preferences.StatePending, in.State)
	assert.Zero(t, in.Seq)
	assert.Nil(t, in.FileStats)
}

func TestAdd_SequenceIncreases(t *testing.T) {
	rec := &recorder{}
	v := preferences.NewValidator(&fakeKernels{}, &fakeHost{}, rec, nil)

	first := v.Add(context.Background(), preferences.NewChange("a", preferences.TypeText, "1"))
	second := v.Add(context.Background(), preferences.NewChange("a", preferences.TypeText, "2"))

	assert.Less(t, first.Change.Seq, second.Change.Seq)
}

func TestAdd_ImmediateEventPrecedesAsync(t *testing.T) {
	gate := make(chan struct{})
	k := &fakeKernels{gates: map[string]chan struct{}{"python3": gate}}
	rec := &recorder{}
	v := preferences.NewValidator(k, &fakeHost{}, rec, nil)

	v.Add(context.Background(), preferences.NewChange("pythonCmd", preferences.TypePythonCmd, "python3"))

	// the probe is blocked, only the acknowledgment exists
	require.Len(t, rec.all(), 1)
	close(gate)
	v.Wait()

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, preferences.StateValidating, events[0].Change.State)
	assert.Equal(t, events[0].Change.Seq, events[1].Change.Seq)
}

func TestSelectFolder(t *testing.T) {
	h := &fakeHost{
		dialog: []string{"/home/u/proj", "/ignored"},
		stats:  map[string]*host.FileStats{"/home/u/proj": {IsDirectory: true}},
	}
	rec := &recorder{}
	v := preferences.NewValidator(&fakeKernels{}, h, rec, nil)
	in := preferences.NewChange("workingDirectory", preferences.TypeFolder, "/home/u")

	ev, ok := v.SelectFolder(context.Background(), in)
	v.Wait()

	require.True(t, ok)
	assert.Equal(t, "/home/u/proj", ev.Change.Value)
	assert.Equal(t, "/home/u", in.Value)
	require.Len(t, h.dialogGot, 1)
	assert.True(t, h.dialogGot[0].Directory)
	assert.Equal(t, "/home/u", h.dialogGot[0].StartDir)
	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, preferences.StateValid, events[1].Change.State)
}

func TestSelectFile(t *testing.T) {
	h := &fakeHost{dialog: []string{"/home/u/kernel.json"}}
	rec := &recorder{}
	v := preferences.NewValidator(&fakeKernels{}, h, rec, nil)

	ev, ok := v.SelectFile(context.Background(), preferences.NewChange("connectionFile", preferences.TypeFile, "/home/u/old.json"))

	require.True(t, ok)
	assert.Equal(t, "/home/u/kernel.json", ev.Change.Value)
	assert.Equal(t, preferences.StateValid, ev.Change.State)
	assert.False(t, h.dialogGot[0].Directory)
	assert.Equal(t, "/home/u", h.dialogGot[0].StartDir)
}

func TestSelectFolder_CancelOrErrorIsNoop(t *testing.T) {
	tests := []struct {
		name string
		h    *fakeHost
	}{
		{"cancelled", &fakeHost{}},
		{"dialog error", &fakeHost{dialogErr: errors.New("no tty")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			v := preferences.NewValidator(&fakeKernels{}, tt.h, rec, nil)

			_, ok := v.SelectFolder(context.Background(), preferences.NewChange("workingDirectory", preferences.TypeFolder, ""))
			v.Wait()

			assert.False(t, ok)
			assert.Empty(t, rec.all())
		})
	}
}
