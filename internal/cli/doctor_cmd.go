package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hbjs97/kconn/internal/config"
	"github.com/hbjs97/kconn/internal/connections"
	"github.com/hbjs97/kconn/internal/doctor"
)

func (a *App) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "환경 설정을 진단한다",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDoctor(cmd)
		},
	}
}

func (a *App) runDoctor(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	cfg, err := config.LoadOrDefault(a.CfgPath)
	if err != nil {
		fmt.Fprintf(out, "[FAIL] config: %v\n", err)
		fmt.Fprintln(out, "      Fix: 설정 파일 확인")
		// basic checks still run against defaults
		cfg = config.Default()
	}

	results := doctor.RunAll(cmd.Context(), doctor.Deps{
		Commander: a.Commander,
		Kernels:   a.kernels(),
		Env:       a.sniffer(cfg),
		Config:    cfg,
		CfgPath:   a.CfgPath,
		StoreKey:  connections.StorageKey,
	})
	printDiagResults(out, results)
	return nil
}

// printDiagResults는 진단 결과 목록을 출력한다.
func printDiagResults(out io.Writer, results []doctor.DiagResult) {
	for _, r := range results {
		icon := statusIcon(r.Status)
		fmt.Fprintf(out, "  [%s] %s: %s\n", icon, r.Name, r.Message)
		if r.Fix != "" {
			fmt.Fprintf(out, "      Fix: %s\n", r.Fix)
		}
	}
}

func statusIcon(s doctor.Status) string {
	switch s {
	case doctor.StatusOK:
		return "OK"
	case doctor.StatusWarn:
		return "!!"
	case doctor.StatusFail:
		return "FAIL"
	default:
		return "??"
	}
}
