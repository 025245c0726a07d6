package connections

import (
	"github.com/hbjs97/kconn/internal/apperr"
)

const prefix = "MANAGE_CONNECTIONS_"

// Action은 Reduce에 전달되는 상태 전이 요청이다.
type Action interface {
	Type() string
}

// AddConnection은 새 레코드를 추가하고 선택한다. ID는 호출자가 생성한다.
type AddConnection struct {
	ID       string
	ConnType string
}

// RemoveConnection은 레코드를 삭제하고 이웃 레코드를 선택한다.
type RemoveConnection struct {
	ID string
}

// SelectConnection은 레코드를 선택한다.
type SelectConnection struct {
	ID string
}

// AddChange는 레코드의 필드 하나를 변경한다.
type AddChange struct {
	ID    string
	Key   string
	Value string
}

// Connected는 연결 시도 결과다. Err가 있으면 실패다.
type Connected struct {
	ID  string
	Err error
}

// Disconnected는 연결 해제 결과다. Err가 있으면 실패다.
type Disconnected struct {
	Err error
}

// ClearErrors는 스택 수준 에러를 지운다.
type ClearErrors struct{}

// JupyterResponse는 커널 프로세스가 보낸 응답이다. 상태를 바꾸지 않는다.
type JupyterResponse struct {
	Source  string
	Payload map[string]any
}

func (AddConnection) Type() string    { return prefix + "ADD_CONNECTION" }
func (RemoveConnection) Type() string { return prefix + "REMOVE_CONNECTION" }
func (SelectConnection) Type() string { return prefix + "SELECT_CONNECTION" }
func (AddChange) Type() string        { return prefix + "ADD_CHANGE" }
func (Connected) Type() string        { return "KERNEL_CONNECTED" }
func (Disconnected) Type() string     { return "KERNEL_DISCONNECTED" }
func (ClearErrors) Type() string      { return prefix + "CLEAR_ERRORS" }
func (JupyterResponse) Type() string  { return "JUPYTER_RESPONSE" }

// Reduce는 순수 상태 전이 함수다. 입력 state를 변경하지 않는다.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case AddConnection:
		return addConnection(state, a)
	case RemoveConnection:
		return removeConnection(state, a)
	case SelectConnection:
		return selectConnection(state, a)
	case AddChange:
		return addChange(state, a)
	case Connected:
		return connected(state, a)
	case Disconnected:
		return disconnected(state, a)
	case ClearErrors:
		return clearErrors(state)
	default:
		return state
	}
}

func addConnection(state State, a AddConnection) State {
	if a.ID == "" || state.IndexOf(a.ID) >= 0 {
		return state
	}
	state = clearErrors(state).Clone()
	state.List = append(state.List, Record{ID: a.ID, Type: a.ConnType, Closeable: true})
	state.Active = a.ID
	return state
}

func removeConnection(state State, a RemoveConnection) State {
	i := state.IndexOf(a.ID)
	if i < 0 {
		return state
	}
	state = clearErrors(state).Clone()
	state.List = append(state.List[:i], state.List[i+1:]...)
	if state.Connected == a.ID {
		state.Connected = ""
	}

	switch {
	case i < len(state.List):
		state.Active = state.List[i].ID
	case i-1 >= 0:
		state.Active = state.List[i-1].ID
	default:
		state.Active = ""
	}
	return state
}

func selectConnection(state State, a SelectConnection) State {
	if state.IndexOf(a.ID) < 0 {
		return state
	}
	state = state.Clone()
	state.Active = a.ID
	return state
}

func addChange(state State, a AddChange) State {
	i := state.IndexOf(a.ID)
	if i < 0 {
		return state
	}
	switch a.Key {
	case "", "id", "closeable":
		return state
	}

	state = state.Clone()
	r := &state.List[i]
	if a.Key == "type" {
		r.Type = a.Value
		return state
	}
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[a.Key] = a.Value
	return state
}

func connected(state State, a Connected) State {
	if a.Err != nil {
		return setErrors(state, a.Err)
	}
	if state.IndexOf(a.ID) < 0 {
		return state
	}
	state = clearErrors(state).Clone()
	state.Connected = a.ID
	return state
}

func disconnected(state State, a Disconnected) State {
	if a.Err != nil {
		return setErrors(state, a.Err)
	}
	state = clearErrors(state).Clone()
	state.Connected = ""
	return state
}

// setErrors keeps a single error, replacing any previous one.
func setErrors(state State, err error) State {
	obj := apperr.ToObject(err)
	if obj.Message == "" {
		return state
	}
	state = state.Clone()
	state.Errors = []apperr.Object{obj}
	return state
}

func clearErrors(state State) State {
	if len(state.Errors) == 0 {
		return state
	}
	state = state.Clone()
	state.Errors = nil
	return state
}
