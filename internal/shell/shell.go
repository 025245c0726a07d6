package shell

import (
	"os"
	"path/filepath"
	"strings"
)

// Type은 지원하는 셸 종류다.
type Type string

const (
	Bash    Type = "bash"
	Zsh     Type = "zsh"
	Fish    Type = "fish"
	Sh      Type = "sh"
	Unknown Type = ""
)

// DefaultLoginShell은 login_shell 설정이 없을 때 사용하는 셸 경로다.
const DefaultLoginShell = "/bin/bash"

// Auto는 $SHELL에서 셸을 결정하도록 하는 login_shell 설정값이다.
const Auto = "auto"

// ParseType은 셸 실행 파일 이름을 Type으로 변환한다.
func ParseType(path string) Type {
	name := strings.TrimPrefix(filepath.Base(path), "-")
	switch name {
	case "bash":
		return Bash
	case "zsh":
		return Zsh
	case "fish":
		return Fish
	case "sh", "dash", "ash":
		return Sh
	default:
		return Unknown
	}
}

// Resolve는 login_shell 설정값을 실제 셸 경로로 변환한다.
// "auto"는 $SHELL이 알려진 셸일 때만 사용하고, 그 외에는 DefaultLoginShell로 fallback한다.
func Resolve(setting string) string {
	switch setting {
	case "":
		return DefaultLoginShell
	case Auto:
		if sh := os.Getenv("SHELL"); sh != "" && ParseType(sh) != Unknown {
			return sh
		}
		return DefaultLoginShell
	default:
		return setting
	}
}

// EnvCommand는 login 셸에서 env를 출력하는 인자 목록을 반환한다.
func EnvCommand(shellPath string) []string {
	switch ParseType(shellPath) {
	case Sh:
		// dash has no --login; -l is the portable spelling.
		return []string{"-l", "-c", "env"}
	default:
		return []string{"--login", "-c", "env"}
	}
}
