// Package kernel discovers whether a command line resolves to a Python
// interpreter that can host a Jupyter kernel.
package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hbjs97/kconn/internal/apperr"
	"github.com/hbjs97/kconn/internal/cmdexec"
)

// ErrNoCommand는 검사할 명령이 비어있을 때 반환된다.
var ErrNoCommand = errors.New("python 명령이 비어있습니다")

// probeScript prints a single JSON line describing the interpreter.
const probeScript = `import json, sys, importlib.util as u
mods = ["ipykernel", "jupyter_client", "numpy", "pandas", "matplotlib"]
print(json.dumps({
    "executable": sys.executable,
    "version": "%d.%d.%d" % sys.version_info[:3],
    "packages": {m: u.find_spec(m) is not None for m in mods},
}))`

// RequiredPackages는 커널 실행에 반드시 필요한 패키지다.
var RequiredPackages = []string{"ipykernel", "jupyter_client"}

// Options는 CheckKernel 입력이다.
type Options struct {
	Cmd string `json:"cmd"`

	// Env가 nil이 아니면 현재 프로세스 환경 위에 덧씌워 probe를 실행한다.
	Env map[string]string `json:"-"`
}

// Result는 커널 probe 결과다. Errors가 비어있으면 사용 가능한 인터프리터다.
type Result struct {
	Cmd        string          `json:"cmd"`
	Executable string          `json:"executable,omitempty"`
	Version    string          `json:"version,omitempty"`
	Packages   map[string]bool `json:"packages,omitempty"`
	Errors     []apperr.Object `json:"errors,omitempty"`
}

// OK는 Result에 에러가 없는지 반환한다.
func (r *Result) OK() bool {
	return r != nil && len(r.Errors) == 0
}

// Checker는 Commander를 통해 인터프리터를 probe한다.
type Checker struct {
	cmd cmdexec.Commander
}

// NewChecker는 새 Checker를 생성한다.
func NewChecker(cmd cmdexec.Commander) *Checker {
	return &Checker{cmd: cmd}
}

// CheckKernel은 opts.Cmd가 동작하는 인터프리터인지 확인한다.
// 실행 자체가 실패하면 error를, 실행은 되지만 필수 패키지가 없으면 Result.Errors를 채워 반환한다.
func (c *Checker) CheckKernel(ctx context.Context, opts Options) (*Result, error) {
	argv := strings.Fields(opts.Cmd)
	if len(argv) == 0 {
		return nil, fmt.Errorf("kernel.CheckKernel: %w", ErrNoCommand)
	}

	args := append(argv[1:len(argv):len(argv)], "-c", probeScript)
	var (
		out []byte
		err error
	)
	if opts.Env != nil {
		out, err = c.cmd.RunWithEnv(ctx, opts.Env, argv[0], args...)
	} else {
		out, err = c.cmd.Output(ctx, argv[0], args...)
	}
	if err != nil {
		return nil, fmt.Errorf("kernel.CheckKernel: %s 실행 실패: %w", argv[0], err)
	}

	result, err := parseProbe(out)
	if err != nil {
		return nil, fmt.Errorf("kernel.CheckKernel: %w", err)
	}
	result.Cmd = opts.Cmd

	for _, pkg := range RequiredPackages {
		if !result.Packages[pkg] {
			result.Errors = append(result.Errors, apperr.Object{
				Name:    "MissingPackage",
				Message: fmt.Sprintf("%s is not installed", pkg),
				Code:    "ENOPKG",
			})
		}
	}
	return result, nil
}

// parseProbe reads the last JSON line; site hooks may print before it.
func parseProbe(out []byte) (*Result, error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var r Result
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("probe 출력 JSON 파싱 실패: %w", err)
		}
		return &r, nil
	}
	return nil, fmt.Errorf("probe 출력이 없습니다: %q", strings.TrimSpace(string(out)))
}
