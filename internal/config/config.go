package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/hbjs97/kconn/internal/localstore"
	"github.com/hbjs97/kconn/internal/shell"
)

// ErrConfig는 설정 파일 오류를 나타내는 sentinel error다.
var ErrConfig = errors.New("설정 파일 오류")

const (
	// DefaultEnvTimeoutSec는 로그인 셸 환경변수 조회의 기본 제한 시간(초)이다.
	DefaultEnvTimeoutSec = 120
	// DefaultPythonCmd는 기본 python 명령이다.
	DefaultPythonCmd = "python3"
)

// Config는 kconn 설정 파일의 최상위 구조체다.
type Config struct {
	Version       int            `toml:"version"`
	LoginShell    string         `toml:"login_shell"`
	EnvTimeoutSec int            `toml:"env_timeout_sec"`
	StoreBackend  string         `toml:"store_backend"`
	StorePath     string         `toml:"store_path"`
	PythonCmd     string         `toml:"python_cmd"`
	Preferences   map[string]any `toml:"preferences"`
}

// Dir은 기본 설정 디렉토리(~/.config/kconn)를 반환한다.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "kconn")
	}
	return filepath.Join(home, ".config", "kconn")
}

// DefaultPath는 기본 config.toml 경로를 반환한다.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default는 기본값만 채운 Config를 반환한다.
func Default() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

// Load는 config.toml을 파싱하여 Config를 반환한다.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w: %w", ErrConfig, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault는 파일이 없으면 기본 Config를 반환한다. 그 외 오류는 Load와 같다.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Save는 cfg를 0600 권한으로 path에 쓴다. 상위 디렉토리가 없으면 0700으로 만든다.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("config.Save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	return nil
}

// ValidateFilePermissions는 파일 권한이 0600보다 넓으면 에러를 반환한다.
func ValidateFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config.ValidateFilePermissions: %w", err)
	}
	perm := info.Mode().Perm()
	if perm&0077 != 0 {
		return fmt.Errorf("config.ValidateFilePermissions: %s 권한이 %o (0600 필요)", path, perm)
	}
	return nil
}

// ResolvedShell은 login_shell 설정을 실제 셸 경로로 바꾼다.
func (c *Config) ResolvedShell() string {
	return shell.Resolve(c.LoginShell)
}

// Preference는 저장된 설정 값을 문자열로 반환한다.
func (c *Config) Preference(key string) (string, bool) {
	v, ok := c.Preferences[key]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.LoginShell == "" {
		c.LoginShell = shell.DefaultLoginShell
	}
	if c.EnvTimeoutSec == 0 {
		c.EnvTimeoutSec = DefaultEnvTimeoutSec
	}
	if c.StoreBackend == "" {
		c.StoreBackend = localstore.BackendJSON
	}
	if c.StorePath == "" {
		name := "store.json"
		if c.StoreBackend == localstore.BackendSQLite {
			name = "store.db"
		}
		c.StorePath = filepath.Join(Dir(), name)
	}
	if c.PythonCmd == "" {
		c.PythonCmd = DefaultPythonCmd
	}
	if c.Preferences == nil {
		c.Preferences = make(map[string]any)
	}
}

func (c *Config) validate() error {
	if c.EnvTimeoutSec < 0 {
		return fmt.Errorf("config.Load: %w: env_timeout_sec는 0 이상이어야 합니다 (%d)", ErrConfig, c.EnvTimeoutSec)
	}
	switch c.StoreBackend {
	case localstore.BackendJSON, localstore.BackendSQLite:
	default:
		return fmt.Errorf("config.Load: %w: store_backend %q (json 또는 sqlite)", ErrConfig, c.StoreBackend)
	}
	if c.LoginShell != shell.Auto && !filepath.IsAbs(c.LoginShell) {
		return fmt.Errorf("config.Load: %w: login_shell은 절대 경로 또는 auto여야 합니다 (%q)", ErrConfig, c.LoginShell)
	}
	// EnvCommand only knows the login flags of these shells
	if c.LoginShell != shell.Auto && shell.ParseType(c.LoginShell) == shell.Unknown {
		return fmt.Errorf("config.Load: %w: login_shell은 bash, zsh, fish, sh 계열이어야 합니다 (%q)", ErrConfig, c.LoginShell)
	}
	return nil
}

// PreferenceSaver는 검증된 설정 값을 config.toml의 [preferences]에 병합해 저장한다.
type PreferenceSaver struct {
	Path string
}

// SavePreferences는 현재 파일을 다시 읽어 values를 병합한 뒤 저장한다.
func (s PreferenceSaver) SavePreferences(values map[string]any) error {
	cfg, err := LoadOrDefault(s.Path)
	if err != nil {
		return fmt.Errorf("config.SavePreferences: %w", err)
	}
	maps.Copy(cfg.Preferences, values)
	// python_cmd follows the pythonCmd preference
	if v, ok := values["pythonCmd"].(string); ok && v != "" {
		cfg.PythonCmd = v
	}
	if err := Save(s.Path, cfg); err != nil {
		return fmt.Errorf("config.SavePreferences: %w", err)
	}
	return nil
}
