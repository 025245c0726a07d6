// Package connections holds the manage-connections dialog state: an
// ordered list of kernel connection records with one active selection,
// the currently connected record, and at most one error.
package connections

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/hbjs97/kconn/internal/apperr"
)

// Record는 사용자가 설정한 커널 연결 항목이다.
// JSON에서는 Fields가 id, type, closeable과 같은 레벨로 펼쳐진다.
type Record struct {
	ID        string
	Type      string
	Closeable bool
	Fields    map[string]string
}

// Get은 필드 값을 반환한다.
func (r Record) Get(key string) string {
	return r.Fields[key]
}

func (r Record) clone() Record {
	r.Fields = maps.Clone(r.Fields)
	return r
}

// MarshalJSON은 Fields를 최상위 key로 펼친다.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		m[k] = v
	}
	m["id"] = r.ID
	m["type"] = r.Type
	m["closeable"] = r.Closeable
	return json.Marshal(m)
}

// UnmarshalJSON은 id, type, closeable 이외의 문자열 key를 Fields로 모은다.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out Record
	for k, raw := range m {
		switch k {
		case "id":
			if err := json.Unmarshal(raw, &out.ID); err != nil {
				return fmt.Errorf("connections.Record: id: %w", err)
			}
		case "type":
			if err := json.Unmarshal(raw, &out.Type); err != nil {
				return fmt.Errorf("connections.Record: type: %w", err)
			}
		case "closeable":
			if err := json.Unmarshal(raw, &out.Closeable); err != nil {
				return fmt.Errorf("connections.Record: closeable: %w", err)
			}
		default:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				// non-string values are not editable fields
				continue
			}
			if out.Fields == nil {
				out.Fields = make(map[string]string)
			}
			out.Fields[k] = s
		}
	}
	*r = out
	return nil
}

// State는 연결 목록 다이얼로그의 상태다.
// Active와 Connected가 비어있지 않으면 List 안의 ID를 가리킨다.
type State struct {
	List      []Record        `json:"list"`
	Active    string          `json:"active,omitempty"`
	Connected string          `json:"connected,omitempty"`
	Errors    []apperr.Object `json:"errors,omitempty"`
}

// IndexOf는 ID의 위치를 반환한다. 없으면 -1.
func (s State) IndexOf(id string) int {
	return slices.IndexFunc(s.List, func(r Record) bool { return r.ID == id })
}

// Find는 ID로 레코드를 찾는다.
func (s State) Find(id string) (Record, bool) {
	i := s.IndexOf(id)
	if i < 0 {
		return Record{}, false
	}
	return s.List[i].clone(), true
}

// ActiveRecord는 선택된 레코드를 반환한다.
func (s State) ActiveRecord() (Record, bool) {
	if s.Active == "" {
		return Record{}, false
	}
	return s.Find(s.Active)
}

// Clone은 List와 Errors를 복사한 State를 반환한다.
func (s State) Clone() State {
	out := s
	if s.List != nil {
		out.List = make([]Record, len(s.List))
		for i, r := range s.List {
			out.List[i] = r.clone()
		}
	}
	out.Errors = slices.Clone(s.Errors)
	return out
}
