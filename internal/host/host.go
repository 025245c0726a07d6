// Package host bridges validation code to the machine it runs on: file
// metadata, the open-file dialog and the login environment.
package host

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hbjs97/kconn/internal/env"
)

// FileStats는 경로의 메타데이터다.
type FileStats struct {
	Path        string    `json:"path"`
	IsDirectory bool      `json:"isDirectory"`
	IsFile      bool      `json:"isFile"`
	Size        int64     `json:"size"`
	Mode        string    `json:"mode"`
	ModTime     time.Time `json:"mtime"`
}

// DialogOptions는 파일 선택 다이얼로그 옵션이다.
type DialogOptions struct {
	Title     string
	Directory bool
	StartDir  string
}

// Host는 validator가 사용하는 호스트 기능이다.
type Host interface {
	// FileStats는 경로의 메타데이터를 반환한다.
	FileStats(ctx context.Context, path string) (*FileStats, error)

	// OpenDialog는 파일 선택 UI를 띄우고 선택된 경로 목록을 반환한다.
	// 취소하면 빈 목록을 반환한다.
	OpenDialog(ctx context.Context, opts DialogOptions) ([]string, error)

	// EnvironmentVariables는 login 셸 환경변수를 반환한다.
	EnvironmentVariables(ctx context.Context) (map[string]string, error)
}

// Dialog는 파일 선택 UI를 추상화한다.
type Dialog interface {
	Open(ctx context.Context, opts DialogOptions) ([]string, error)
}

// Local은 현재 머신에서 동작하는 Host 구현이다.
type Local struct {
	Dialog  Dialog
	Sniffer *env.Sniffer
}

var _ Host = (*Local)(nil)

// FileStats는 os.Stat 결과를 FileStats로 변환한다.
func (l *Local) FileStats(_ context.Context, path string) (*FileStats, error) {
	if path == "" {
		return nil, fmt.Errorf("host.FileStats: 경로가 비어있습니다")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("host.FileStats: %w", err)
	}
	return &FileStats{
		Path:        path,
		IsDirectory: info.IsDir(),
		IsFile:      info.Mode().IsRegular(),
		Size:        info.Size(),
		Mode:        info.Mode().String(),
		ModTime:     info.ModTime(),
	}, nil
}

// OpenDialog는 설정된 Dialog에 위임한다.
func (l *Local) OpenDialog(ctx context.Context, opts DialogOptions) ([]string, error) {
	if l.Dialog == nil {
		return nil, fmt.Errorf("host.OpenDialog: 다이얼로그가 설정되지 않았습니다")
	}
	paths, err := l.Dialog.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("host.OpenDialog: %w", err)
	}
	return paths, nil
}

// EnvironmentVariables는 Sniffer 결과를 반환한다. Sniffer는 실패하지 않는다.
func (l *Local) EnvironmentVariables(ctx context.Context) (map[string]string, error) {
	if l.Sniffer == nil {
		return env.ParseEnviron(os.Environ()), nil
	}
	return l.Sniffer.GetEnv(ctx), nil
}
