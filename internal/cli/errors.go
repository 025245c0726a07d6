package cli

import (
	"github.com/hbjs97/kconn/internal/config"
	"github.com/hbjs97/kconn/internal/connections"
	"github.com/hbjs97/kconn/internal/kernel"
	"github.com/hbjs97/kconn/internal/preferences"
)

// 각 도메인 패키지의 sentinel error를 CLI 레이어에서 편의상 re-export한다.
var (
	// ErrCannotSave는 invalid 변경이 있어 설정을 저장할 수 없을 때의 sentinel error다.
	ErrCannotSave = preferences.ErrCannotSave
	// ErrNotFound는 ID에 해당하는 연결이 없을 때의 sentinel error다.
	ErrNotFound = connections.ErrNotFound
	// ErrNoCommand는 python 명령이 비어있을 때의 sentinel error다.
	ErrNoCommand = kernel.ErrNoCommand
	// ErrConfig는 설정 파일 오류를 나타내는 sentinel error다.
	ErrConfig = config.ErrConfig
)
