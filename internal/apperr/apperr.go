// Package apperr normalizes Go errors into plain descriptors that can be
// stored in state, persisted and rendered.
package apperr

import (
	"errors"
	"reflect"
	"strings"
)

// Object는 state에 저장 가능한 평문 에러 표현이다.
type Object struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error는 Object를 error로 사용할 수 있게 한다.
func (o Object) Error() string {
	return o.Message
}

// Coder는 기계가 읽을 수 있는 에러 코드를 제공하는 에러다.
type Coder interface {
	ErrorCode() string
}

// New는 이름 없는 메시지로 Object를 생성한다.
func New(message string) Object {
	return Object{Name: "Error", Message: message}
}

// ToObject는 임의의 error를 Object로 변환한다. nil이면 빈 Object를 반환한다.
func ToObject(err error) Object {
	if err == nil {
		return Object{}
	}
	switch v := err.(type) {
	case Object:
		return v
	case *Object:
		if v == nil {
			return Object{}
		}
		return *v
	}

	o := Object{Name: typeName(err), Message: err.Error()}
	var coder Coder
	if errors.As(err, &coder) {
		o.Code = coder.ErrorCode()
	}
	return o
}

// ToObjects는 error 목록을 Object 목록으로 변환한다.
func ToObjects(errs []error) []Object {
	if len(errs) == 0 {
		return nil
	}
	out := make([]Object, 0, len(errs))
	for _, err := range errs {
		out = append(out, ToObject(err))
	}
	return out
}

// Join은 Object 목록의 메시지를 한 줄로 합친다.
func Join(objs []Object) string {
	msgs := make([]string, 0, len(objs))
	for _, o := range objs {
		msgs = append(msgs, o.Message)
	}
	return strings.Join(msgs, "; ")
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch name := t.Name(); name {
	case "", "errorString", "wrapError", "wrapErrors", "joinError":
		return "Error"
	default:
		return name
	}
}
