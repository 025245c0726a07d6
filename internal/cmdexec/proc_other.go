//go:build !unix

package cmdexec

import "os/exec"

// killProcessGroup is a no-op here; WaitDelay still bounds Wait.
func killProcessGroup(*exec.Cmd) {}
