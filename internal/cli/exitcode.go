package cli

import (
	"errors"
)

// ExitCode는 kconn의 종료 코드다.
type ExitCode int

const (
	// ExitSuccess는 정상 종료다.
	ExitSuccess ExitCode = 0
	// ExitGeneral는 일반 에러다.
	ExitGeneral ExitCode = 1
	// ExitInvalid는 검증에 실패한 설정 변경이다.
	ExitInvalid ExitCode = 2
	// ExitNotFound는 존재하지 않는 연결이다.
	ExitNotFound ExitCode = 3
	// ExitNoCommand는 python 명령 미설정이다.
	ExitNoCommand ExitCode = 4
	// ExitConfigError는 설정 파일 오류다.
	ExitConfigError ExitCode = 5
)

// MapExitCode는 sentinel error를 기반으로 적절한 종료 코드를 반환한다.
func MapExitCode(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	switch {
	case errors.Is(err, ErrCannotSave):
		return ExitInvalid
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrNoCommand):
		return ExitNoCommand
	case errors.Is(err, ErrConfig):
		return ExitConfigError
	default:
		return ExitGeneral
	}
}
