package connections

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hbjs97/kconn/internal/apperr"
	"github.com/hbjs97/kconn/internal/kernel"
	"github.com/hbjs97/kconn/internal/localstore"
)

// StorageKey는 연결 목록이 저장되는 localstore key다.
const StorageKey = "manageConnections"

// ErrNotFound는 ID에 해당하는 연결이 없을 때 반환된다.
var ErrNotFound = errors.New("연결을 찾을 수 없습니다")

// KernelChecker는 연결 시 인터프리터를 확인한다.
type KernelChecker interface {
	CheckKernel(ctx context.Context, opts kernel.Options) (*kernel.Result, error)
}

// EnvSource는 커널 probe에 넘길 환경변수를 제공한다.
type EnvSource interface {
	GetEnv(ctx context.Context) map[string]string
}

// Store는 Reduce 앞뒤의 부수효과(ID 생성, 영속화, 로그)를 담당한다.
// Reduce 자체는 순수하게 유지된다.
type Store struct {
	mu     sync.Mutex
	state  State
	local  localstore.Store
	defs   *Definitions
	logger *zap.Logger

	// Checker는 Connect가 사용한다. nil이면 Connect는 실패한다.
	Checker KernelChecker
	// Env가 있으면 Connect의 probe가 그 환경변수로 실행된다.
	Env EnvSource
	// NewID는 테스트용. nil이면 uuid.NewString.
	NewID func() string
}

// NewStore는 localstore에서 목록을 한 번 읽어 Store를 생성한다.
func NewStore(local localstore.Store, defs *Definitions, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var list []Record
	if _, err := local.Get(StorageKey, &list); err != nil {
		return nil, fmt.Errorf("connections.NewStore: %w", err)
	}
	return &Store{
		state:  State{List: list},
		local:  local,
		defs:   defs,
		logger: logger,
	}, nil
}

// State는 현재 상태의 사본을 반환한다.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Definitions는 연결 유형 정의를 반환한다.
func (s *Store) Definitions() *Definitions {
	return s.defs
}

// Dispatch는 action을 적용하고, 목록이 바뀌었으면 저장한다.
func (s *Store) Dispatch(action Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	next := Reduce(prev, action)
	s.state = next

	if r, ok := action.(JupyterResponse); ok && r.Source == "kernelSpecManager" {
		s.logger.Info("kernel spec response", zap.Any("payload", r.Payload))
	}

	if !reflect.DeepEqual(prev.List, next.List) {
		if err := s.local.Set(StorageKey, next.List); err != nil {
			s.logger.Error("failed to persist connections", zap.Error(err))
			return next.Clone(), fmt.Errorf("connections.Dispatch: %w", err)
		}
	}
	s.logger.Debug("dispatched", zap.String("action", action.Type()), zap.Int("count", len(next.List)))
	return next.Clone(), nil
}

// AddConnection은 기본 유형의 새 연결을 추가하고 선택한다.
func (s *Store) AddConnection() (State, error) {
	newID := s.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return s.Dispatch(AddConnection{ID: newID(), ConnType: s.defs.DefaultType})
}

// Field는 레코드 필드 값을 반환한다. 비어있으면 유형 정의의 기본값을 반환한다.
func (s *Store) Field(r Record, key string) string {
	if v := r.Get(key); v != "" {
		return v
	}
	return s.defs.FieldDefault(r.Type, key)
}

// Connect는 레코드의 pythonCmd를 probe하고 결과를 Connected로 dispatch한다.
// probe 실패는 state의 에러로 기록되며 반환 error는 영속화 실패에만 사용된다.
func (s *Store) Connect(ctx context.Context, id string) (State, error) {
	r, ok := s.State().Find(id)
	if !ok {
		return s.Dispatch(Connected{ID: id, Err: fmt.Errorf("%w: %s", ErrNotFound, id)})
	}
	if s.Checker == nil {
		return s.Dispatch(Connected{ID: id, Err: errors.New("kernel checker가 설정되지 않았습니다")})
	}

	opts := kernel.Options{Cmd: s.Field(r, "pythonCmd")}
	if s.Env != nil {
		opts.Env = s.Env.GetEnv(ctx)
	}
	result, err := s.Checker.CheckKernel(ctx, opts)
	if err != nil {
		return s.Dispatch(Connected{ID: id, Err: err})
	}
	if !result.OK() {
		return s.Dispatch(Connected{ID: id, Err: apperr.Object{Name: "KernelError", Message: apperr.Join(result.Errors)}})
	}
	s.logger.Info("connected", zap.String("id", id), zap.String("executable", result.Executable), zap.String("version", result.Version))
	return s.Dispatch(Connected{ID: id})
}

// Disconnect는 연결을 해제한다.
func (s *Store) Disconnect() (State, error) {
	return s.Dispatch(Disconnected{})
}
