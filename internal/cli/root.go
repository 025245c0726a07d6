package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hbjs97/kconn/internal/cmdexec"
	"github.com/hbjs97/kconn/internal/config"
	"github.com/hbjs97/kconn/internal/connections"
	"github.com/hbjs97/kconn/internal/env"
	"github.com/hbjs97/kconn/internal/host"
	"github.com/hbjs97/kconn/internal/kernel"
	"github.com/hbjs97/kconn/internal/localstore"
)

// App은 CLI 명령이 공유하는 의존성이다. 테스트에서는 필드를 직접 주입한다.
type App struct {
	CfgPath   string
	Verbose   bool
	Commander cmdexec.Commander
	Logger    *zap.Logger
	Dialog    host.Dialog
}

// NewRootCmd는 실제 프로세스 실행과 터미널 다이얼로그를 사용하는 루트 명령을 생성한다.
func NewRootCmd() *cobra.Command {
	app := &App{
		Commander: &cmdexec.RealCommander{},
		Dialog:    &host.HuhDialog{},
	}
	return app.NewRootCmd()
}

// NewRootCmd는 kconn CLI의 루트 명령을 생성한다.
func (a *App) NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "kconn",
		Short:        "커널 연결과 설정을 관리한다",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.Logger != nil {
				return nil
			}
			logger, err := newLogger(a.Verbose)
			if err != nil {
				return fmt.Errorf("cli: logger 생성 실패: %w", err)
			}
			a.Logger = logger
			return nil
		},
	}

	defaultCfg := a.CfgPath
	if defaultCfg == "" {
		defaultCfg = config.DefaultPath()
	}
	cmd.PersistentFlags().StringVar(&a.CfgPath, "config", defaultCfg, "설정 파일 경로")
	cmd.PersistentFlags().BoolVar(&a.Verbose, "verbose", false, "상세 출력")

	cmd.AddCommand(
		a.newEnvCmd(),
		a.newPrefsCmd(),
		a.newConnCmd(),
		a.newDoctorCmd(),
		a.newAboutCmd(),
	)
	return cmd
}

// newLogger builds a stderr logger; stdout is reserved for command output.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(a.CfgPath)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(a.CfgPath); statErr == nil {
		if err := config.ValidateFilePermissions(a.CfgPath); err != nil {
			a.logger().Warn("config file permissions are too open", zap.Error(err))
		}
	}
	return cfg, nil
}

func (a *App) sniffer(cfg *config.Config) *env.Sniffer {
	s := env.NewSniffer(a.Commander, a.logger().Named("env"))
	s.Shell = cfg.ResolvedShell()
	s.Timeout = time.Duration(cfg.EnvTimeoutSec) * time.Second
	return s
}

func (a *App) host(cfg *config.Config) *host.Local {
	return &host.Local{Dialog: a.Dialog, Sniffer: a.sniffer(cfg)}
}

func (a *App) kernels() *kernel.Checker {
	return kernel.NewChecker(a.Commander)
}

// openConnections는 연결 Store와 그 아래 localstore를 연다. 호출자가 localstore를 닫는다.
func (a *App) openConnections(cfg *config.Config) (*connections.Store, localstore.Store, error) {
	local, err := localstore.Open(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("cli: %w", err)
	}
	defs, err := connections.LoadDefinitions()
	if err != nil {
		local.Close()
		return nil, nil, fmt.Errorf("cli: %w", err)
	}
	store, err := connections.NewStore(local, defs, a.logger().Named("connections"))
	if err != nil {
		local.Close()
		return nil, nil, fmt.Errorf("cli: %w", err)
	}
	store.Checker = a.kernels()
	store.Env = a.sniffer(cfg)
	return store, local, nil
}
