package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hbjs97/kconn/internal/env"
)

func (a *App) newEnvCmd() *cobra.Command {
	var (
		asJSON      bool
		showSecrets bool
	)
	cmd := &cobra.Command{
		Use:   "env",
		Short: "login 셸 환경변수를 현재 환경과 합쳐 표시한다",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			vars := a.sniffer(cfg).GetEnv(cmd.Context())
			if !showSecrets {
				vars = env.Masked(vars)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(vars)
			}
			for _, k := range env.Keys(vars) {
				fmt.Fprintf(out, "%s=%s\n", k, vars[k])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON으로 출력")
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "토큰/비밀번호 값을 가리지 않는다")
	return cmd
}
