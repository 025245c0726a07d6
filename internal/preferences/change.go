// Package preferences validates pending preference edits and tracks them
// until they are saved or cancelled.
//
// Each edit is a Change. Validator.Add acknowledges a change immediately
// and, for types that need a probe (python command, folder, environment
// variable list), finishes validation on a goroutine and reports the
// outcome as a second event. Every change carries a sequence number; the
// Tracker keeps only the newest snapshot per key, so a slow probe for an
// old edit cannot overwrite a newer one.
package preferences

import (
	"fmt"
	"maps"
	"slices"

	"github.com/hbjs97/kconn/internal/apperr"
	"github.com/hbjs97/kconn/internal/host"
	"github.com/hbjs97/kconn/internal/kernel"
)

// State는 변경 항목의 검증 상태다.
type State string

const (
	StatePending    State = "pending"
	StateValidating State = "validating"
	StateValid      State = "valid"
	StateInvalid    State = "invalid"
)

// Type은 어떤 검증기를 실행할지 결정한다.
type Type string

const (
	TypePythonCmd               Type = "pythonCmd"
	TypeFolder                  Type = "folder"
	TypeEnvironmentVariableList Type = "environmentVariableList"
	TypeFile                    Type = "file"
	TypeText                    Type = "text"
	TypeNumber                  Type = "number"
	TypeSelect                  Type = "select"
)

// Async는 비동기 probe가 필요한 유형인지 반환한다.
func (t Type) Async() bool {
	switch t {
	case TypePythonCmd, TypeFolder, TypeEnvironmentVariableList:
		return true
	default:
		return false
	}
}

// Change는 저장되지 않은 설정 변경 하나다.
// Value는 일반 유형에서 string, environmentVariableList에서 map[string]string이다.
type Change struct {
	Key         string          `json:"key"`
	Value       any             `json:"value"`
	Type        Type            `json:"type"`
	State       State           `json:"state"`
	Errors      []apperr.Object `json:"errors,omitempty"`
	CheckKernel *kernel.Result  `json:"checkKernel,omitempty"`
	FileStats   *host.FileStats `json:"fileStats,omitempty"`
	Seq         uint64          `json:"seq"`
}

// NewChange는 pending 상태의 Change를 생성한다.
func NewChange(key string, typ Type, value any) Change {
	return Change{Key: key, Type: typ, Value: value, State: StatePending}
}

// StringValue는 Value를 문자열로 반환한다.
func (c Change) StringValue() string {
	switch v := c.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Clone은 공유 참조가 없는 사본을 반환한다.
func (c Change) Clone() Change {
	out := c
	out.Errors = slices.Clone(c.Errors)
	if m, ok := c.Value.(map[string]string); ok {
		out.Value = maps.Clone(m)
	}
	if c.CheckKernel != nil {
		r := *c.CheckKernel
		r.Packages = maps.Clone(r.Packages)
		r.Errors = slices.Clone(r.Errors)
		out.CheckKernel = &r
	}
	if c.FileStats != nil {
		fs := *c.FileStats
		out.FileStats = &fs
	}
	return out
}

// EventKind는 dispatch되는 이벤트 종류다.
type EventKind string

const (
	// EventChangeAdded는 새 변경 항목 전체를 알린다.
	EventChangeAdded EventKind = "PREFERENCE_CHANGE_ADDED"
	// EventChangeDetailAdded는 기존 변경 항목의 검증 결과를 알린다.
	EventChangeDetailAdded EventKind = "PREFERENCE_CHANGE_DETAIL_ADDED"
)

// Event는 Validator가 내보내는 상태 전이다.
type Event struct {
	Kind   EventKind `json:"type"`
	Change Change    `json:"change"`
	Sender string    `json:"sender"`
}

// Dispatcher는 Event를 받는다. 여러 goroutine에서 호출될 수 있다.
type Dispatcher interface {
	Dispatch(Event)
}

// DispatchFunc는 함수를 Dispatcher로 사용한다.
type DispatchFunc func(Event)

// Dispatch는 f(ev)를 호출한다.
func (f DispatchFunc) Dispatch(ev Event) { f(ev) }

// Fanout은 여러 Dispatcher에 순서대로 전달한다.
type Fanout []Dispatcher

// Dispatch는 모든 Dispatcher에 ev를 전달한다.
func (f Fanout) Dispatch(ev Event) {
	for _, d := range f {
		d.Dispatch(ev)
	}
}
