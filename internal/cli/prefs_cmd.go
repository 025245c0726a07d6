package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hbjs97/kconn/internal/config"
	"github.com/hbjs97/kconn/internal/preferences"
)

func (a *App) newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "설정 값을 검증하고 저장한다",
	}
	cmd.AddCommand(
		a.newPrefsTabsCmd(),
		a.newPrefsShowCmd(),
		a.newPrefsCheckCmd(),
		a.newPrefsSetCmd(),
		a.newPrefsPickCmd(),
	)
	return cmd
}

// prefsSession은 명령 하나 동안의 설정 편집 상태다.
type prefsSession struct {
	cfg       *config.Config
	defs      *preferences.Definitions
	tracker   *preferences.Tracker
	validator *preferences.Validator
}

func (a *App) openPrefs() (*prefsSession, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	defs, err := preferences.LoadDefinitions()
	if err != nil {
		return nil, fmt.Errorf("cli.prefs: %w", err)
	}
	logger := a.logger().Named("preferences")
	tracker := preferences.NewTracker(config.PreferenceSaver{Path: a.CfgPath}, defs.DefaultTab, logger)
	validator := preferences.NewValidator(a.kernels(), a.host(cfg), tracker, logger)
	return &prefsSession{cfg: cfg, defs: defs, tracker: tracker, validator: validator}, nil
}

// value는 저장된 값, 없으면 정의의 기본값을 반환한다.
func (s *prefsSession) value(it preferences.Item) string {
	if it.Key == "pythonCmd" {
		return s.cfg.PythonCmd
	}
	if v, ok := s.cfg.Preference(it.Key); ok {
		return v
	}
	return it.Default
}

func (a *App) newPrefsTabsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tabs",
		Short: "설정 탭 목록을 표시한다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := preferences.LoadDefinitions()
			if err != nil {
				return fmt.Errorf("cli.prefs: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, tab := range defs.Tabs {
				marker := " "
				if tab.ID == defs.DefaultTab {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-8s %s (%d)\n", marker, tab.ID, tab.Label, len(tab.Items))
			}
			return nil
		},
	}
}

func (a *App) newPrefsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [tab]",
		Short: "현재 설정 값을 표시한다",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openPrefs()
			if err != nil {
				return err
			}
			tabs := s.defs.Tabs
			if len(args) == 1 {
				tab, ok := s.defs.Tab(args[0])
				if !ok {
					return fmt.Errorf("cli.prefs: 알 수 없는 탭 %q", args[0])
				}
				tabs = []preferences.Tab{tab}
			}
			out := cmd.OutOrStdout()
			for _, tab := range tabs {
				fmt.Fprintf(out, "[%s]\n", tab.Label)
				for _, it := range tab.Items {
					fmt.Fprintf(out, "  %s (%s) = %s\n", it.Key, it.Type, s.value(it))
				}
			}
			return nil
		},
	}
}

func (a *App) newPrefsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check key=value...",
		Short: "설정 변경을 검증만 하고 저장하지 않는다",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openPrefs()
			if err != nil {
				return err
			}
			if err := s.apply(cmd.Context(), args); err != nil {
				return err
			}
			printChanges(cmd.OutOrStdout(), s.tracker.Changes())
			if !s.tracker.CanSave() {
				return fmt.Errorf("cli.prefs: %w", preferences.ErrCannotSave)
			}
			return nil
		},
	}
}

func (a *App) newPrefsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set key=value...",
		Short: "설정 변경을 검증하고 모두 valid이면 저장한다",
		Long: "각 key=value를 검증한다. environmentVariables처럼 값을 조회하는 항목은 key만 적는다.\n" +
			"하나라도 invalid이면 아무것도 저장하지 않는다.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openPrefs()
			if err != nil {
				return err
			}
			if err := s.apply(cmd.Context(), args); err != nil {
				return err
			}
			return s.save(cmd.OutOrStdout())
		},
	}
}

func (a *App) newPrefsPickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pick key",
		Short: "파일/폴더 선택기로 경로 설정을 고른다",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openPrefs()
			if err != nil {
				return err
			}
			it, ok := s.defs.Item(args[0])
			if !ok {
				return fmt.Errorf("cli.prefs: 알 수 없는 설정 %q", args[0])
			}
			change := preferences.NewChange(it.Key, it.Type, s.value(it))

			var picked bool
			switch it.Type {
			case preferences.TypeFile:
				_, picked = s.validator.SelectFile(cmd.Context(), change)
			case preferences.TypeFolder:
				_, picked = s.validator.SelectFolder(cmd.Context(), change)
			default:
				return fmt.Errorf("cli.prefs: %s는 경로 설정이 아닙니다 (%s)", it.Key, it.Type)
			}
			if !picked {
				fmt.Fprintln(cmd.OutOrStdout(), "선택이 취소되었습니다")
				return nil
			}
			s.validator.Wait()
			return s.save(cmd.OutOrStdout())
		},
	}
}

// apply는 key=value 인자마다 Change를 만들어 검증을 시작하고 모두 끝날 때까지 기다린다.
func (s *prefsSession) apply(ctx context.Context, args []string) error {
	for _, arg := range args {
		key, value, _ := strings.Cut(arg, "=")
		if key == "" {
			return fmt.Errorf("cli.prefs: 잘못된 인자 %q (key=value)", arg)
		}
		change, err := s.defs.NewChange(key, value)
		if err != nil {
			return fmt.Errorf("cli.prefs: %w", err)
		}
		s.validator.Add(ctx, change)
	}
	s.validator.Wait()
	return nil
}

func (s *prefsSession) save(out io.Writer) error {
	printChanges(out, s.tracker.Changes())
	if err := s.tracker.Save(); err != nil {
		return fmt.Errorf("cli.prefs: %w", err)
	}
	fmt.Fprintln(out, "저장되었습니다")
	return nil
}

func printChanges(out io.Writer, changes []preferences.Change) {
	for _, c := range changes {
		fmt.Fprintf(out, "  [%s] %s = %s\n", c.State, c.Key, displayValue(c))
		if c.CheckKernel != nil && c.CheckKernel.Version != "" {
			fmt.Fprintf(out, "      python %s (%s)\n", c.CheckKernel.Version, c.CheckKernel.Executable)
		}
		for _, e := range c.Errors {
			fmt.Fprintf(out, "      %s\n", e.Message)
		}
	}
}

func displayValue(c preferences.Change) string {
	if m, ok := c.Value.(map[string]string); ok {
		return fmt.Sprintf("<%d variables>", len(m))
	}
	return c.StringValue()
}
