package preferences

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrCannotSave는 invalid이거나 검증 중인 변경이 있어 저장할 수 없을 때 반환된다.
var ErrCannotSave = errors.New("유효하지 않은 변경이 있어 저장할 수 없습니다")

// Saver는 검증된 설정 값을 영속화한다.
type Saver interface {
	SavePreferences(values map[string]any) error
}

// Tracker는 설정 화면의 변경 목록 상태다. Validator의 Dispatcher로 사용된다.
type Tracker struct {
	mu        sync.Mutex
	changes   map[string]Change
	activeTab string
	// events at or below this sequence were cancelled
	watermark uint64
	highest   uint64
	saver     Saver
	logger    *zap.Logger
}

var _ Dispatcher = (*Tracker)(nil)

// NewTracker는 빈 Tracker를 생성한다.
func NewTracker(saver Saver, activeTab string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		changes:   make(map[string]Change),
		activeTab: activeTab,
		saver:     saver,
		logger:    logger,
	}
}

// Dispatch는 이벤트를 적용한다. 같은 key에 대해 더 새로운 Seq가 이미 있으면 무시한다.
func (t *Tracker) Dispatch(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := ev.Change
	if c.Seq > t.highest {
		t.highest = c.Seq
	}
	if c.Seq != 0 && c.Seq <= t.watermark {
		t.logger.Debug("dropping cancelled change", zap.String("key", c.Key), zap.Uint64("seq", c.Seq))
		return
	}

	cur, exists := t.changes[c.Key]
	if exists && c.Seq < cur.Seq {
		t.logger.Debug("dropping stale change", zap.String("key", c.Key),
			zap.Uint64("seq", c.Seq), zap.Uint64("current", cur.Seq))
		return
	}

	switch ev.Kind {
	case EventChangeAdded:
		t.changes[c.Key] = c.Clone()
	case EventChangeDetailAdded:
		if !exists {
			return
		}
		t.changes[c.Key] = c.Clone()
	}
}

// Change는 key의 현재 변경 항목을 반환한다.
func (t *Tracker) Change(key string) (Change, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.changes[key]
	if !ok {
		return Change{}, false
	}
	return c.Clone(), true
}

// Changes는 key 순으로 정렬된 변경 목록을 반환한다.
func (t *Tracker) Changes() []Change {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Change, 0, len(t.changes))
	for _, c := range t.changes {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// CanSave는 변경이 하나 이상 있고 모두 valid인지 반환한다.
func (t *Tracker) CanSave() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canSave()
}

func (t *Tracker) canSave() bool {
	if len(t.changes) == 0 {
		return false
	}
	for _, c := range t.changes {
		if c.State != StateValid {
			return false
		}
	}
	return true
}

// Save는 모든 변경이 valid일 때만 값을 저장하고 변경 목록을 비운다.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.canSave() {
		return fmt.Errorf("preferences.Save: %w", ErrCannotSave)
	}
	values := make(map[string]any, len(t.changes))
	for k, c := range t.changes {
		values[k] = c.Value
	}
	if err := t.saver.SavePreferences(values); err != nil {
		return fmt.Errorf("preferences.Save: %w", err)
	}
	t.logger.Info("preferences saved", zap.Int("count", len(values)))
	t.clear()
	return nil
}

// CancelAll은 모든 변경을 버린다. 진행 중인 검증 결과도 이후 무시된다.
func (t *Tracker) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clear()
}

func (t *Tracker) clear() {
	t.changes = make(map[string]Change)
	t.watermark = t.highest
}

// ActiveTab은 현재 탭을 반환한다.
func (t *Tracker) ActiveTab() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeTab
}

// SelectTab은 변경이 없을 때만 탭을 바꾼다. 바뀌었으면 true.
func (t *Tracker) SelectTab(tab string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.changes) > 0 {
		return false
	}
	t.activeTab = tab
	return true
}
