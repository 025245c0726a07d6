package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hbjs97/kconn/internal/config"
	"github.com/hbjs97/kconn/internal/connections"
	"github.com/hbjs97/kconn/internal/localstore"
	"github.com/hbjs97/kconn/internal/preferences"
)

// 선택/연결 상태는 명령 사이에 유지되도록 목록과 별도 key에 저장한다.
const (
	activeKey    = "activeConnection"
	connectedKey = "connectedConnection"
)

func (a *App) newConnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conn",
		Short: "커널 연결 목록을 관리한다",
	}
	cmd.AddCommand(
		a.newConnListCmd(),
		a.newConnAddCmd(),
		a.newConnRmCmd(),
		a.newConnSelectCmd(),
		a.newConnSetCmd(),
		a.newConnConnectCmd(),
		a.newConnDisconnectCmd(),
	)
	return cmd
}

type connSession struct {
	app    *App
	cfg    *config.Config
	store  *connections.Store
	local  localstore.Store
	logger *zap.Logger
}

// withConnections는 Store를 열고 이전 선택/연결 상태를 복원한 뒤 fn을 실행한다.
// fn이 끝나면 선택/연결 상태를 저장하고 localstore를 닫는다.
func (a *App) withConnections(fn func(s *connSession) error) (err error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	store, local, err := a.openConnections(cfg)
	if err != nil {
		return err
	}
	s := &connSession{app: a, cfg: cfg, store: store, local: local, logger: a.logger().Named("cli")}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	s.restore()
	return fn(s)
}

func (s *connSession) restore() {
	var active, connected string
	if _, err := s.local.Get(activeKey, &active); err != nil {
		s.logger.Warn("failed to read active connection", zap.Error(err))
	}
	if _, err := s.local.Get(connectedKey, &connected); err != nil {
		s.logger.Warn("failed to read connected connection", zap.Error(err))
	}
	// replayed through the reducer so stale ids are dropped
	if active != "" {
		s.store.Dispatch(connections.SelectConnection{ID: active})
	}
	if connected != "" {
		s.store.Dispatch(connections.Connected{ID: connected})
	}
}

func (s *connSession) close() error {
	st := s.store.State()
	err := errors.Join(
		s.local.Set(activeKey, st.Active),
		s.local.Set(connectedKey, st.Connected),
	)
	if cerr := s.local.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		return fmt.Errorf("cli.conn: %w", err)
	}
	return nil
}

// resolveID는 전체 ID 또는 유일한 ID prefix를 레코드 ID로 바꾼다.
func resolveID(st connections.State, arg string) (string, error) {
	if st.IndexOf(arg) >= 0 {
		return arg, nil
	}
	var matches []string
	for _, r := range st.List {
		if arg != "" && strings.HasPrefix(r.ID, arg) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("cli.conn: %w: %s", connections.ErrNotFound, arg)
	default:
		return "", fmt.Errorf("cli.conn: ID prefix %q가 %d개 연결과 일치합니다", arg, len(matches))
	}
}

func (a *App) newConnListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "연결 목록을 표시한다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnections(func(s *connSession) error {
				printConnections(cmd.OutOrStdout(), s.store, s.store.State())
				return nil
			})
		},
	}
}

func (a *App) newConnAddCmd() *cobra.Command {
	var connType string
	cmd := &cobra.Command{
		Use:   "add [key=value...]",
		Short: "새 연결을 추가하고 선택한다",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnections(func(s *connSession) error {
				if connType != "" && s.store.Definitions().Type(connType) == nil {
					return fmt.Errorf("cli.conn: 알 수 없는 연결 유형 %q", connType)
				}
				st, err := s.store.AddConnection()
				if err != nil {
					return err
				}
				id := st.Active
				if connType != "" {
					if _, err := s.store.Dispatch(connections.AddChange{ID: id, Key: "type", Value: connType}); err != nil {
						return err
					}
				}
				if err := s.applyFields(cmd.Context(), cmd.OutOrStdout(), id, args); err != nil {
					if _, rmErr := s.store.Dispatch(connections.RemoveConnection{ID: id}); rmErr != nil {
						err = errors.Join(err, rmErr)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&connType, "type", "", "연결 유형 (기본: definitions의 defaultType)")
	return cmd
}

func (a *App) newConnRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm id",
		Short: "연결을 삭제한다",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnections(func(s *connSession) error {
				id, err := resolveID(s.store.State(), args[0])
				if err != nil {
					return err
				}
				st, err := s.store.Dispatch(connections.RemoveConnection{ID: id})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "삭제됨: %s\n", id)
				if st.Active != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "선택됨: %s\n", st.Active)
				}
				return nil
			})
		},
	}
}

func (a *App) newConnSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select id",
		Short: "연결을 선택한다",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnections(func(s *connSession) error {
				id, err := resolveID(s.store.State(), args[0])
				if err != nil {
					return err
				}
				if _, err := s.store.Dispatch(connections.SelectConnection{ID: id}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "선택됨: %s\n", id)
				return nil
			})
		},
	}
}

func (a *App) newConnSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set id key=value...",
		Short: "연결 필드를 변경한다",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnections(func(s *connSession) error {
				id, err := resolveID(s.store.State(), args[0])
				if err != nil {
					return err
				}
				if err := s.applyFields(cmd.Context(), cmd.OutOrStdout(), id, args[1:]); err != nil {
					return err
				}
				r, _ := s.store.State().Find(id)
				printRecord(cmd.OutOrStdout(), s.store, r, " ")
				return nil
			})
		},
	}
}

func (a *App) newConnConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect [id]",
		Short: "연결의 python 명령을 확인하고 연결 상태로 만든다",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnections(func(s *connSession) error {
				st := s.store.State()
				id := st.Active
				if len(args) == 1 {
					var err error
					if id, err = resolveID(st, args[0]); err != nil {
						return err
					}
				}
				if id == "" {
					return fmt.Errorf("cli.conn: %w: 선택된 연결이 없습니다", connections.ErrNotFound)
				}

				st, err := s.store.Connect(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(st.Errors) > 0 {
					return fmt.Errorf("cli.conn: 연결 실패: %s", st.Errors[0].Message)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "연결됨: %s\n", id)
				return nil
			})
		},
	}
}

func (a *App) newConnDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "현재 연결을 해제한다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnections(func(s *connSession) error {
				prev := s.store.State().Connected
				if _, err := s.store.Disconnect(); err != nil {
					return err
				}
				if prev == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "연결된 커널이 없습니다")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "연결 해제됨: %s\n", prev)
				return nil
			})
		},
	}
}

type fieldChange struct {
	key, value string
}

// applyFields는 key=value 인자를 레코드 id에 적용한다.
// pythonCmd/folder 유형 필드는 먼저 검증하고, 하나라도 invalid이면 아무것도 적용하지 않는다.
func (s *connSession) applyFields(ctx context.Context, out io.Writer, id string, pairs []string) error {
	fields := make([]fieldChange, 0, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return fmt.Errorf("cli.conn: 잘못된 인자 %q (key=value)", p)
		}
		switch key {
		case "id", "closeable":
			return fmt.Errorf("cli.conn: %s는 변경할 수 없습니다", key)
		}
		fields = append(fields, fieldChange{key: key, value: value})
	}

	if err := s.validateFields(ctx, out, id, fields); err != nil {
		return err
	}
	for _, f := range fields {
		if _, err := s.store.Dispatch(connections.AddChange{ID: id, Key: f.key, Value: f.value}); err != nil {
			return err
		}
	}
	return nil
}

func (s *connSession) validateFields(ctx context.Context, out io.Writer, id string, fields []fieldChange) error {
	r, _ := s.store.State().Find(id)
	def := s.store.Definitions().Type(r.Type)
	if def == nil {
		return nil
	}

	tracker := preferences.NewTracker(nil, "", s.logger)
	validator := preferences.NewValidator(s.app.kernels(), s.app.host(s.cfg), tracker, s.logger)
	for _, f := range fields {
		for _, fd := range def.Fields {
			typ := preferences.Type(fd.Type)
			if fd.Key != f.key || (typ != preferences.TypePythonCmd && typ != preferences.TypeFolder) {
				continue
			}
			validator.Add(ctx, preferences.NewChange(f.key, typ, f.value))
		}
	}
	validator.Wait()

	var invalid []preferences.Change
	for _, c := range tracker.Changes() {
		if c.State != preferences.StateValid {
			invalid = append(invalid, c)
		}
	}
	if len(invalid) > 0 {
		printChanges(out, invalid)
		return fmt.Errorf("cli.conn: %w", preferences.ErrCannotSave)
	}
	return nil
}

func printConnections(out io.Writer, store *connections.Store, st connections.State) {
	if len(st.List) == 0 {
		fmt.Fprintln(out, "연결이 없습니다. 'kconn conn add'로 추가하세요.")
		return
	}
	for _, r := range st.List {
		marker := " "
		switch r.ID {
		case st.Connected:
			marker = "+"
		case st.Active:
			marker = "*"
		}
		printRecord(out, store, r, marker)
	}
	for _, e := range st.Errors {
		fmt.Fprintf(out, "error: %s\n", e.Message)
	}
}

func printRecord(out io.Writer, store *connections.Store, r connections.Record, marker string) {
	fmt.Fprintf(out, "%s %s  %s\n", marker, r.ID, r.Type)

	keys := make([]string, 0, len(r.Fields))
	seen := make(map[string]bool)
	if t := store.Definitions().Type(r.Type); t != nil {
		for _, f := range t.Fields {
			keys = append(keys, f.Key)
			seen[f.Key] = true
		}
	}
	var extra []string
	for k := range r.Fields {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	for _, k := range keys {
		if v := store.Field(r, k); v != "" {
			fmt.Fprintf(out, "    %s = %s\n", k, v)
		}
	}
}
