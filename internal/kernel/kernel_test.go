package kernel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hbjs97/kconn/internal/kernel"
	"github.com/hbjs97/kconn/internal/testutil"
)

const fullProbe = `{"executable": "/usr/bin/python3", "version": "3.12.1", "packages": {"ipykernel": true, "jupyter_client": true, "numpy": true, "pandas": false, "matplotlib": false}}`

func TestCheckKernel_Valid(t *testing.T) {
	fake := testutil.NewFakeCommander()
	fake.Register("python3 -c", fullProbe+"\n", nil)

	result, err := kernel.NewChecker(fake).CheckKernel(context.Background(), kernel.Options{Cmd: "python3"})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, "python3", result.Cmd)
	assert.Equal(t, "/usr/bin/python3", result.Executable)
	assert.Equal(t, "3.12.1", result.Version)
	assert.True(t, result.Packages["numpy"])
}

func TestCheckKernel_MissingPackages(t *testing.T) {
	fake := testutil.NewFakeCommander()
	fake.Register("python3 -c", `{"executable": "/usr/bin/python3", "version": "3.9.0", "packages": {"ipykernel": false, "jupyter_client": true}}`, nil)

	result, err := kernel.NewChecker(fake).CheckKernel(context.Background(), kernel.Options{Cmd: "python3"})
	require.NoError(t, err)
	assert.False(t, result.OK())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "ipykernel")
}

func TestCheckKernel_CommandWithArgs(t *testing.T) {
	fake := testutil.NewFakeCommander()
	fake.Register("conda run -n ds python -c", fullProbe, nil)

	result, err := kernel.NewChecker(fake).CheckKernel(context.Background(), kernel.Options{Cmd: "conda run -n ds python"})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.True(t, fake.Called("conda run -n ds python -c"))
}

func TestCheckKernel_SkipsNoiseBeforeJSON(t *testing.T) {
	fake := testutil.NewFakeCommander()
	fake.Register("python3 -c", "sitecustomize loaded\n"+fullProbe+"\n", nil)

	result, err := kernel.NewChecker(fake).CheckKernel(context.Background(), kernel.Options{Cmd: "python3"})
	require.NoError(t, err)
	assert.Equal(t, "3.12.1", result.Version)
}

func TestCheckKernel_Errors(t *testing.T) {
	tests := []struct {
		name   string
		cmd    string
		output string
		err    error
		wantIs error
	}{
		{name: "empty command", cmd: "  ", wantIs: kernel.ErrNoCommand},
		{name: "spawn failure", cmd: "python9", err: errors.New("executable file not found")},
		{name: "no json", cmd: "python3", output: "Python 2.7\n"},
		{name: "broken json", cmd: "python3", output: "{not json\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeCommander()
			fake.DefaultResponse = &testutil.Response{Output: []byte(tt.output), Err: tt.err}

			result, err := kernel.NewChecker(fake).CheckKernel(context.Background(), kernel.Options{Cmd: tt.cmd})
			require.Error(t, err)
			assert.Nil(t, result)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestCheckKernel_WithEnv(t *testing.T) {
	fake := testutil.NewFakeCommander()
	fake.Register("python3 -c", fullProbe, nil)
	vars := map[string]string{"PATH": "/opt/conda/bin:/usr/bin"}

	result, err := kernel.NewChecker(fake).CheckKernel(context.Background(), kernel.Options{Cmd: "python3", Env: vars})
	require.NoError(t, err)
	assert.True(t, result.OK())
	require.Len(t, fake.EnvCalls, 1)
	assert.Equal(t, vars, fake.EnvCalls[0])
}
