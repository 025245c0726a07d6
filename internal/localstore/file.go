package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File은 하나의 JSON 문서에 모든 key를 저장하는 Store다.
type File struct {
	mu      sync.Mutex
	path    string
	Version int                        `json:"version"`
	Entries map[string]json.RawMessage `json:"entries"`
}

var _ Store = (*File)(nil)

// OpenFile은 JSON 파일을 파싱한다. 파일 없음/파싱 실패 시 빈 store를 반환한다 (graceful).
func OpenFile(path string) (*File, error) {
	f := &File{path: path, Version: 1, Entries: make(map[string]json.RawMessage)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstore.OpenFile: %w", err)
	}
	if err := json.Unmarshal(data, f); err != nil {
		f.Entries = make(map[string]json.RawMessage)
		return f, nil
	}
	if f.Entries == nil {
		f.Entries = make(map[string]json.RawMessage)
	}
	return f, nil
}

// Path는 파일 경로를 반환한다.
func (f *File) Path() string {
	return f.path
}

// Get은 key의 값을 out에 디코딩한다.
func (f *File) Get(key string, out any) (bool, error) {
	f.mu.Lock()
	raw, ok := f.Entries[key]
	f.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("localstore.Get: %s: %w", key, err)
	}
	return true, nil
}

// Set은 값을 갱신하고 파일 전체를 즉시 다시 쓴다.
func (f *File) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("localstore.Set: %s: %w", key, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Entries[key] = raw
	return f.save()
}

// Close는 아무 일도 하지 않는다. Set마다 파일이 저장된다.
func (f *File) Close() error {
	return nil
}

// save writes the document with 0600 permissions. Caller holds mu.
func (f *File) save() error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("localstore.save: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("localstore.save: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("localstore.save: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("localstore.save: %w", err)
	}
	return nil
}
