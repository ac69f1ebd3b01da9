package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/permscan/cmd/rules"
	"github.com/scan-io-git/permscan/cmd/scan"
	"github.com/scan-io-git/permscan/cmd/version"
	"github.com/scan-io-git/permscan/pkg/shared/config"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "permscan [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "Permscan finds risky permission grants in CI workflow files.",
		Long: `Permscan scans CI workflow definitions for dangerous permission grants,
such as 'id-token: write', and reports every occurrence as a SARIF 2.1.0 log.
`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", fmt.Sprintf("Path to the YAML config file (default is %s when present).", config.DefaultConfigFile))
	rootCmd.AddCommand(scan.ScanCmd)
	rootCmd.AddCommand(rules.RulesCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
// Findings never affect the exit code, only failures do.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		return scanerrors.ExitCode(err)
	}
	return scanerrors.ExitOK
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return scanerrors.NewCommandError(fmt.Errorf("initializing config file function is crashed: %w", err), scanerrors.ExitUsage)
	}
	if err := config.ApplyEnv(cfg, nil); err != nil {
		return scanerrors.NewCommandError(err, scanerrors.ExitUsage)
	}

	AppConfig = cfg
	scan.Init(AppConfig)
	rules.Init(AppConfig)
	return nil
}
