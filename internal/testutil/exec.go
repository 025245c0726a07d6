package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Response represents a pre-configured command response for FakeCommander.
type Response struct {
	Output []byte
	Err    error

	// Delay holds the response back. If the context ends first, the
	// context error is returned instead, like a killed process.
	Delay time.Duration
}

// FakeCommander returns pre-configured responses for testing.
// Responses are keyed by "name arg1 arg2 ..." format.
// If no exact match is found, it tries prefix matching.
// It is safe for concurrent use.
type FakeCommander struct {
	mu sync.Mutex

	// Responses maps command strings to their responses.
	// Key format: "command arg1 arg2" (e.g., "/bin/bash --login -c env", "python3 -c")
	Responses map[string]Response

	// Calls records all commands that were executed, in order.
	Calls []string

	// EnvCalls records the environment variable maps passed to RunWithEnv, in order.
	EnvCalls []map[string]string

	// DefaultResponse is returned when no matching response is found.
	// If nil, an error is returned for unmatched commands.
	DefaultResponse *Response
}

// NewFakeCommander creates a FakeCommander with an empty response map.
func NewFakeCommander() *FakeCommander {
	return &FakeCommander{
		Responses: make(map[string]Response),
	}
}

// Register adds a response for the given command key.
func (c *FakeCommander) Register(key string, output string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Responses[key] = Response{
		Output: []byte(output),
		Err:    err,
	}
}

// RegisterResponse adds a fully specified response for the given command key.
func (c *FakeCommander) RegisterResponse(key string, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Responses[key] = resp
}

// Run looks up the command in Responses and returns the matching response.
func (c *FakeCommander) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	fullCmd := name
	if len(args) > 0 {
		fullCmd = name + " " + strings.Join(args, " ")
	}

	resp, err := c.lookup(fullCmd)
	if err != nil {
		return nil, err
	}
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return resp.Output, resp.Err
}

func (c *FakeCommander) lookup(fullCmd string) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, fullCmd)

	// Exact match first.
	if resp, ok := c.Responses[fullCmd]; ok {
		return resp, nil
	}

	// Try prefix matching (longest prefix wins).
	bestKey := ""
	for key := range c.Responses {
		if strings.HasPrefix(fullCmd, key) && len(key) > len(bestKey) {
			bestKey = key
		}
	}
	if bestKey != "" {
		return c.Responses[bestKey], nil
	}

	// Default response.
	if c.DefaultResponse != nil {
		return *c.DefaultResponse, nil
	}

	return Response{}, fmt.Errorf("FakeCommander: no response registered for %q", fullCmd)
}

// Output records the call and delegates to Run logic.
// FakeCommander does not distinguish stdout from stderr.
func (c *FakeCommander) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return c.Run(ctx, name, args...)
}

// RunWithEnv records the environment variables and delegates to Run logic.
func (c *FakeCommander) RunWithEnv(ctx context.Context, env map[string]string, name string, args ...string) ([]byte, error) {
	c.mu.Lock()
	c.EnvCalls = append(c.EnvCalls, env)
	c.mu.Unlock()
	return c.Run(ctx, name, args...)
}

// Called returns true if a command matching the given prefix was executed.
func (c *FakeCommander) Called(prefix string) bool {
	return c.CallCount(prefix) > 0
}

// CallCount returns the number of times a command matching the given prefix was executed.
func (c *FakeCommander) CallCount(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, call := range c.Calls {
		if strings.HasPrefix(call, prefix) {
			count++
		}
	}
	return count
}
