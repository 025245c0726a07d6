// Package localstore provides the durable key/value store behind the
// persisted slices of UI state, such as the connection list.
package localstore

import (
	"errors"
	"fmt"
)

// Backend 이름.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// ErrUnknownBackend는 지원하지 않는 store_backend 값일 때 반환된다.
var ErrUnknownBackend = errors.New("알 수 없는 store backend")

// Store는 JSON 직렬화 가능한 값을 key로 저장한다.
type Store interface {
	// Get은 key의 값을 out에 디코딩한다. key가 없으면 false를 반환한다.
	Get(key string, out any) (bool, error)
	// Set은 v를 key에 저장한다. 기존 값은 덮어쓴다.
	Set(key string, v any) error
	// Close는 backend 자원을 해제한다.
	Close() error
}

// Open은 backend 이름에 맞는 Store를 연다.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return OpenFile(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("localstore.Open: %w: %q", ErrUnknownBackend, backend)
	}
}
