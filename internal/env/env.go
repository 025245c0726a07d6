// Package env recovers the environment variables a user's login shell
// would see. GUI-launched processes on macOS and some Linux desktops do
// not inherit the profile-defined environment (PATH additions from
// pyenv, conda, brew), so the login shell is asked directly.
package env

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hbjs97/kconn/internal/cmdexec"
	"github.com/hbjs97/kconn/internal/shell"
)

// DefaultTimeout는 login 셸 env 조회의 상한이다.
const DefaultTimeout = 2 * time.Minute

// Sniffer는 login 셸에서 환경변수를 수집한다.
type Sniffer struct {
	cmd    cmdexec.Commander
	logger *zap.Logger

	// Shell은 실행할 login 셸 경로다. 비어있으면 shell.DefaultLoginShell.
	Shell string
	// Timeout은 셸 실행 상한이다. 0이면 DefaultTimeout.
	Timeout time.Duration
	// GOOS는 테스트용. 비어있으면 runtime.GOOS.
	GOOS string
	// Environ은 테스트용. nil이면 os.Environ.
	Environ func() []string
}

// NewSniffer는 새 Sniffer를 생성한다. logger가 nil이면 no-op logger를 사용한다.
func NewSniffer(cmd cmdexec.Commander, logger *zap.Logger) *Sniffer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sniffer{cmd: cmd, logger: logger}
}

// GetEnv는 login 셸의 환경변수를 현재 프로세스 환경변수와 합쳐 반환한다.
// 실패하거나 시간이 초과되면 로그만 남기고 현재 프로세스 환경변수를 반환한다. 에러를 반환하지 않는다.
func (s *Sniffer) GetEnv(ctx context.Context) map[string]string {
	process := ParseEnviron(s.environ())
	extra := s.platformEnv(ctx, process)
	result := Defaults(extra, process)
	s.logger.Info("got environment variables", zap.Int("count", len(result)))
	return result
}

func (s *Sniffer) platformEnv(ctx context.Context, process map[string]string) map[string]string {
	goos := s.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	if goos != "darwin" && goos != "linux" {
		return map[string]string{}
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sh := s.Shell
	if sh == "" {
		sh = shell.DefaultLoginShell
	}

	out, err := s.cmd.Output(ctx, sh, shell.EnvCommand(sh)...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.Error("timed out trying to get environment variables from platform",
				zap.String("shell", sh), zap.Duration("timeout", timeout))
			return map[string]string{}
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || len(out) == 0 {
			s.logger.Error("failed to get environment variables from platform",
				zap.String("shell", sh), zap.Error(err))
			return map[string]string{}
		}
		// profile scripts that fail still leave a usable env listing
		s.logger.Warn("login shell exited with error", zap.String("shell", sh), zap.Error(err))
	}

	return Merge(process, ParseEnv(string(out)))
}

func (s *Sniffer) environ() []string {
	if s.Environ != nil {
		return s.Environ()
	}
	return os.Environ()
}

// ParseEnv는 env 출력의 KEY=VALUE 줄을 파싱한다.
// 첫 번째 '='에서만 분리하고, key나 value가 비어있는 줄은 버린다.
func ParseEnv(out string) map[string]string {
	env := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSuffix(line, "\r")
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" || value == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// ParseEnviron은 os.Environ 형식의 목록을 맵으로 변환한다. 빈 값도 유지한다.
func ParseEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Merge는 base 위에 overlay를 덮어쓴 새 맵을 반환한다. 충돌 시 overlay가 이긴다.
func Merge(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// Defaults는 env에 없는 key만 defaults에서 채운 새 맵을 반환한다. 충돌 시 env가 이긴다.
func Defaults(env, defaults map[string]string) map[string]string {
	return Merge(defaults, env)
}

// Keys는 정렬된 key 목록을 반환한다.
func Keys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
