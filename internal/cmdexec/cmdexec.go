// Package cmdexec abstracts external process execution for testability.
// Production code uses the Commander interface; tests inject FakeCommander from testutil.
package cmdexec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"
)

// WaitDelay bounds how long a cancelled command may keep its output pipes
// open. Login shells can leave background children holding stdout.
const WaitDelay = time.Second

// Commander abstracts external process execution.
type Commander interface {
	// Run executes an external command and returns its combined output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// Output executes an external command and returns only its stdout.
	// Login shells print banners and warnings on stderr, which must not
	// leak into parsed output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunWithEnv executes an external command with additional environment variables
	// merged on top of the current process environment.
	RunWithEnv(ctx context.Context, env map[string]string, name string, args ...string) ([]byte, error)
}

// RealCommander executes actual external commands via os/exec.
type RealCommander struct{}

var _ Commander = (*RealCommander)(nil)

// Run executes the command using os/exec.CommandContext.
func (c *RealCommander) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return command(ctx, name, args...).CombinedOutput()
}

// Output executes the command and captures stdout only.
func (c *RealCommander) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return command(ctx, name, args...).Output()
}

// RunWithEnv executes the command with additional environment variables.
// The provided env map is merged on top of the current process environment.
func (c *RealCommander) RunWithEnv(ctx context.Context, env map[string]string, name string, args ...string) ([]byte, error) {
	cmd := command(ctx, name, args...)
	cmd.Env = append(os.Environ(), MapToEnvSlice(env)...)
	return cmd.CombinedOutput()
}

// command builds a cmd whose cancellation kills the whole process tree and
// returns within WaitDelay even if a descendant still holds the pipes.
func command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	killProcessGroup(cmd)
	cmd.WaitDelay = WaitDelay
	return cmd
}

// MapToEnvSlice converts a map of environment variables to a sorted slice of "KEY=VALUE" strings.
func MapToEnvSlice(env map[string]string) []string {
	if env == nil {
		return nil
	}
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}
