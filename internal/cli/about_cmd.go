package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version은 빌드 시 -ldflags "-X github.com/hbjs97/kconn/internal/cli.Version=..."로 주입된다.
var Version = "dev"

func (a *App) newAboutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "about",
		Short: "버전과 실행 환경 정보를 표시한다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "kconn %s\n", version())
			fmt.Fprintf(out, "  go:       %s\n", runtime.Version())
			fmt.Fprintf(out, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "  config:   %s\n", a.CfgPath)
			fmt.Fprintf(out, "  store:    %s (%s)\n", cfg.StorePath, cfg.StoreBackend)
			fmt.Fprintf(out, "  shell:    %s\n", cfg.ResolvedShell())
			return nil
		},
	}
}

func version() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
