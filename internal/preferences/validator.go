package preferences

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hbjs97/kconn/internal/apperr"
	"github.com/hbjs97/kconn/internal/host"
	"github.com/hbjs97/kconn/internal/kernel"
)

// senderSelf marks events produced by this process.
const senderSelf = "self"

// errNotDirectory is reported for folder probes that resolve to a file,
// and, verbatim, for an environment listing that came back empty.
var errNotDirectory = apperr.New("Not a directory")

// KernelChecker는 python 명령을 probe한다.
type KernelChecker interface {
	CheckKernel(ctx context.Context, opts kernel.Options) (*kernel.Result, error)
}

// Validator는 Change를 유형별로 검증하고 결과를 Dispatcher로 보낸다.
type Validator struct {
	kernels  KernelChecker
	host     host.Host
	dispatch Dispatcher
	logger   *zap.Logger

	seq   atomic.Uint64
	group errgroup.Group
}

// NewValidator는 새 Validator를 생성한다. logger가 nil이면 no-op logger를 사용한다.
func NewValidator(kernels KernelChecker, h host.Host, d Dispatcher, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{kernels: kernels, host: h, dispatch: d, logger: logger}
}

// Add는 change에 새 sequence를 부여하고 즉시 EventChangeAdded를 dispatch한다.
// probe가 필요한 유형이면 validating 상태로 알린 뒤 goroutine에서 검증을 끝내고
// 두 번째 이벤트를 dispatch한다. 그 외 유형은 바로 valid가 된다.
// 즉시 dispatch한 이벤트를 반환한다.
func (v *Validator) Add(ctx context.Context, change Change) Event {
	c := change.Clone()
	c.Seq = v.seq.Add(1)
	c.Errors = nil
	c.CheckKernel = nil
	c.FileStats = nil

	async := c.Type.Async()
	if async {
		c.State = StateValidating
	} else {
		c.State = StateValid
	}

	// immediate feedback, because typing can be fast
	ev := Event{Kind: EventChangeAdded, Change: c.Clone(), Sender: senderSelf}
	v.dispatch.Dispatch(ev)

	if async {
		snapshot := c.Clone()
		v.group.Go(func() error {
			v.validate(ctx, snapshot)
			return nil
		})
	}
	return ev
}

// Wait는 진행 중인 모든 검증이 끝날 때까지 기다린다.
func (v *Validator) Wait() {
	_ = v.group.Wait()
}

// validate runs on its own goroutine and owns c.
func (v *Validator) validate(ctx context.Context, c Change) {
	kind := EventChangeDetailAdded
	if c.Type == TypeEnvironmentVariableList {
		// a full change, not just a detail
		kind = EventChangeAdded
	}

	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("validator panicked", zap.String("key", c.Key), zap.Any("panic", r))
			c = markInvalid(c, fmt.Errorf("preferences.validate: %v", r))
		}
		v.logger.Debug("validated", zap.String("key", c.Key), zap.String("state", string(c.State)), zap.Uint64("seq", c.Seq))
		v.dispatch.Dispatch(Event{Kind: kind, Change: c, Sender: senderSelf})
	}()

	switch c.Type {
	case TypePythonCmd:
		c = v.checkPythonCmd(ctx, c)
	case TypeFolder:
		c = v.checkFolder(ctx, c)
	case TypeEnvironmentVariableList:
		c = v.fetchEnvironment(ctx, c)
	}
}

func (v *Validator) checkPythonCmd(ctx context.Context, c Change) Change {
	result, err := v.kernels.CheckKernel(ctx, kernel.Options{Cmd: c.StringValue()})
	if err != nil {
		return markInvalid(c, err)
	}
	if len(result.Errors) > 0 {
		c.Errors = result.Errors
		c.State = StateInvalid
	} else {
		c.State = StateValid
	}
	c.CheckKernel = result
	return c
}

func (v *Validator) checkFolder(ctx context.Context, c Change) Change {
	stats, err := v.host.FileStats(ctx, c.StringValue())
	if err != nil {
		return markInvalid(c, err)
	}
	if !stats.IsDirectory {
		return markInvalid(c, errNotDirectory)
	}
	c.State = StateValid
	c.FileStats = stats
	return c
}

func (v *Validator) fetchEnvironment(ctx context.Context, c Change) Change {
	vars, err := v.host.EnvironmentVariables(ctx)
	if err != nil {
		return markInvalid(c, err)
	}
	if vars == nil {
		return markInvalid(c, errNotDirectory)
	}
	c.State = StateValid
	c.Value = vars
	return c
}

func markInvalid(c Change, err error) Change {
	c.State = StateInvalid
	c.Errors = []apperr.Object{apperr.ToObject(err)}
	return c
}

// SelectFile은 파일 선택 다이얼로그에서 고른 경로로 change를 다시 Add한다.
// 선택을 취소하거나 다이얼로그가 실패하면 아무것도 하지 않고 false를 반환한다.
func (v *Validator) SelectFile(ctx context.Context, change Change) (Event, bool) {
	return v.selectPath(ctx, change, host.DialogOptions{Directory: false})
}

// SelectFolder는 폴더 선택 다이얼로그에서 고른 경로로 change를 다시 Add한다.
func (v *Validator) SelectFolder(ctx context.Context, change Change) (Event, bool) {
	return v.selectPath(ctx, change, host.DialogOptions{Directory: true})
}

func (v *Validator) selectPath(ctx context.Context, change Change, opts host.DialogOptions) (Event, bool) {
	if cur := change.StringValue(); cur != "" {
		opts.StartDir = cur
		if !opts.Directory {
			opts.StartDir = filepath.Dir(cur)
		}
	}
	paths, err := v.host.OpenDialog(ctx, opts)
	if err != nil {
		v.logger.Error("open dialog failed", zap.String("key", change.Key), zap.Error(err))
		return Event{}, false
	}
	if len(paths) == 0 {
		return Event{}, false
	}
	c := change.Clone()
	c.Value = paths[0]
	return v.Add(ctx, c), true
}
