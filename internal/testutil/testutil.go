// Package testutil provides common test helpers for the kconn project.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempConfigFile creates a temporary config.toml with the given content
// and returns its path. The file is automatically cleaned up.
func TempConfigFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("TempConfigFile: write failed: %v", err)
	}

	return path
}

// TempStoreFile creates a temporary store.json with the given content
// and returns its path.
func TempStoreFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("TempStoreFile: write failed: %v", err)
	}

	return path
}

// SetupTestConfig creates a temporary config.toml whose store lives next
// to it. Returns the config file path.
func SetupTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	storePath := filepath.Join(dir, "store.json")
	content := `version = 1
login_shell = "/bin/bash"
env_timeout_sec = 5
store_backend = "json"
store_path = "` + storePath + `"
python_cmd = "python3"

[preferences]
fontSize = "12"
`
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("SetupTestConfig: write failed: %v", err)
	}
	return path
}

// MakeDir creates a directory under a fresh temp dir and returns its path.
func MakeDir(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(path, 0700); err != nil {
		t.Fatalf("MakeDir: mkdir failed: %v", err)
	}
	return path
}

// WriteScript writes an executable /bin/sh script under a fresh temp dir
// and returns its path.
func WriteScript(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0700); err != nil {
		t.Fatalf("WriteScript: write failed: %v", err)
	}
	return path
}
