package host

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// HuhDialog는 charmbracelet/huh FilePicker 기반의 Dialog 구현이다.
type HuhDialog struct{}

var _ Dialog = (*HuhDialog)(nil)

// Open은 터미널 파일 선택기를 띄운다. 사용자가 취소하면 빈 목록을 반환한다.
func (h *HuhDialog) Open(ctx context.Context, opts DialogOptions) ([]string, error) {
	start := opts.StartDir
	if start == "" {
		if wd, err := os.Getwd(); err == nil {
			start = wd
		}
	}
	title := opts.Title
	if title == "" {
		title = "파일 선택"
		if opts.Directory {
			title = "폴더 선택"
		}
	}

	var selected string
	picker := huh.NewFilePicker().
		Title(title).
		CurrentDirectory(start).
		DirAllowed(opts.Directory).
		FileAllowed(!opts.Directory).
		Picking(true).
		Value(&selected)

	form := huh.NewForm(huh.NewGroup(picker))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, nil
		}
		return nil, fmt.Errorf("host.HuhDialog: %w", err)
	}
	if selected == "" {
		return nil, nil
	}
	return []string{selected}, nil
}
