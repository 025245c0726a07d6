package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hbjs97/kconn/internal/cmdexec"
	"github.com/hbjs97/kconn/internal/config"
	"github.com/hbjs97/kconn/internal/kernel"
	"github.com/hbjs97/kconn/internal/localstore"
)

// Status는 진단 결과 상태다.
type Status string

const (
	// StatusOK는 정상 상태다.
	StatusOK Status = "OK"
	// StatusWarn는 경고 상태다.
	StatusWarn Status = "WARN"
	// StatusFail는 실패 상태다.
	StatusFail Status = "FAIL"
)

// DiagResult는 하나의 진단 결과다.
type DiagResult struct {
	Name    string
	Status  Status
	Message string
	Fix     string
}

// KernelChecker는 python 명령을 probe한다.
type KernelChecker interface {
	CheckKernel(ctx context.Context, opts kernel.Options) (*kernel.Result, error)
}

// EnvSource는 합쳐진 환경변수를 제공한다.
type EnvSource interface {
	GetEnv(ctx context.Context) map[string]string
}

// CheckBinaries는 login 셸과 python 명령의 실행 가능 여부를 확인한다.
func CheckBinaries(ctx context.Context, cmd cmdexec.Commander, loginShell, pythonCmd string) []DiagResult {
	py := strings.Fields(pythonCmd)
	if len(py) == 0 {
		py = []string{config.DefaultPythonCmd}
	}
	binaries := []struct {
		name string
		bin  string
		args []string
		fix  string
	}{
		{"login_shell", loginShell, []string{"-c", "echo ok"}, "config.toml의 login_shell 확인"},
		{"python", py[0], append(py[1:], "--version"), "python을 설치하거나 config.toml의 python_cmd 확인"},
	}

	var results []DiagResult
	for _, b := range binaries {
		out, err := cmd.Run(ctx, b.bin, b.args...)
		if err != nil {
			results = append(results, DiagResult{
				Name:    b.name,
				Status:  StatusFail,
				Message: fmt.Sprintf("%s 실행 실패: %v", b.bin, err),
				Fix:     b.fix,
			})
			continue
		}
		msg := strings.TrimSpace(string(out))
		if b.name == "login_shell" {
			msg = b.bin
		}
		results = append(results, DiagResult{Name: b.name, Status: StatusOK, Message: msg})
	}
	return results
}

// CheckKernel은 python 명령으로 커널을 띄울 수 있는지 확인한다.
func CheckKernel(ctx context.Context, checker KernelChecker, pythonCmd string) DiagResult {
	res, err := checker.CheckKernel(ctx, kernel.Options{Cmd: pythonCmd})
	if err != nil {
		return DiagResult{
			Name:    "kernel",
			Status:  StatusFail,
			Message: fmt.Sprintf("%s probe 실패: %v", pythonCmd, err),
			Fix:     "config.toml의 python_cmd 확인",
		}
	}
	if !res.OK() {
		msgs := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			msgs = append(msgs, e.Message)
		}
		return DiagResult{
			Name:    "kernel",
			Status:  StatusWarn,
			Message: strings.Join(msgs, ", "),
			Fix:     fmt.Sprintf("%s -m pip install %s", pythonCmd, strings.Join(kernel.RequiredPackages, " ")),
		}
	}
	return DiagResult{
		Name:    "kernel",
		Status:  StatusOK,
		Message: fmt.Sprintf("python %s (%s)", res.Version, res.Executable),
	}
}

// CheckEnv는 login 셸 환경변수 수집 결과를 확인한다.
func CheckEnv(ctx context.Context, src EnvSource) DiagResult {
	vars := src.GetEnv(ctx)
	if _, ok := vars["PATH"]; !ok {
		return DiagResult{
			Name:    "env",
			Status:  StatusWarn,
			Message: fmt.Sprintf("환경변수 %d개, PATH 없음", len(vars)),
			Fix:     "login 셸 설정 파일에서 PATH export 확인",
		}
	}
	return DiagResult{
		Name:    "env",
		Status:  StatusOK,
		Message: fmt.Sprintf("환경변수 %d개", len(vars)),
	}
}

// CheckStore는 로컬 저장소를 열고 key를 읽을 수 있는지 확인한다.
func CheckStore(backend, path, key string) DiagResult {
	name := fmt.Sprintf("store_%s", backend)
	st, err := localstore.Open(backend, path)
	if err != nil {
		return DiagResult{
			Name:    name,
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     "config.toml의 store_backend/store_path 확인",
		}
	}
	defer st.Close()

	var raw json.RawMessage
	found, err := st.Get(key, &raw)
	if err != nil {
		return DiagResult{
			Name:    name,
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     fmt.Sprintf("%s 삭제 후 재시도", path),
		}
	}
	msg := fmt.Sprintf("%s (%s 없음)", path, key)
	if found {
		msg = path
	}
	return DiagResult{Name: name, Status: StatusOK, Message: msg}
}

// CheckConfig는 설정 파일 권한을 확인한다.
func CheckConfig(path string) DiagResult {
	if err := config.ValidateFilePermissions(path); err != nil {
		return DiagResult{
			Name:    "config",
			Status:  StatusWarn,
			Message: err.Error(),
			Fix:     fmt.Sprintf("chmod 600 %s", path),
		}
	}
	return DiagResult{Name: "config", Status: StatusOK, Message: path}
}

// Deps는 RunAll에 필요한 의존성이다.
type Deps struct {
	Commander cmdexec.Commander
	Kernels   KernelChecker
	Env       EnvSource
	Config    *config.Config
	CfgPath   string
	StoreKey  string
}

// RunAll은 모든 진단을 실행한다.
func RunAll(ctx context.Context, d Deps) []DiagResult {
	var results []DiagResult
	results = append(results, CheckConfig(d.CfgPath))
	results = append(results, CheckBinaries(ctx, d.Commander, d.Config.ResolvedShell(), d.Config.PythonCmd)...)
	results = append(results, CheckKernel(ctx, d.Kernels, d.Config.PythonCmd))
	results = append(results, CheckEnv(ctx, d.Env))
	results = append(results, CheckStore(d.Config.StoreBackend, d.Config.StorePath, d.StoreKey))
	return results
}
