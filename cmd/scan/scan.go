package scan

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/scan-io-git/permscan/internal/rules"
	"github.com/scan-io-git/permscan/internal/scanner"
	"github.com/scan-io-git/permscan/internal/watch"
	"github.com/scan-io-git/permscan/pkg/shared/config"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
	"github.com/scan-io-git/permscan/pkg/shared/logger"
)

// RunOptionsScan holds the arguments for the scan command.
type RunOptionsScan struct {
	OutputPath          string
	Extensions          []string
	Rules               []string
	Concurrency         int
	Timeout             time.Duration
	TolerateMissingRoot bool
	Recursive           bool
	SourceRoot          string
	VCSProvenance       bool
	Watch               bool
}

// Global variables for configuration and command arguments
var (
	AppConfig        *config.Config
	scanOptions      RunOptionsScan
	exampleScanUsage = `  # Scanning the default .github/workflows directory of the current repository
  permscan scan

  # Scanning a specific directory and writing the report to a file
  permscan scan /path/to/repo/.github/workflows --output /tmp/permscan.sarif

  # Streaming the report to stdout
  permscan scan --output - > results.sarif

  # Scanning nested directories with several workers and a custom timeout
  permscan scan ci/ --recursive --extensions yml,yaml,json -j 4 --timeout 30s

  # Running only selected rules and attaching repository provenance
  permscan scan --rules github-actions/id-token-write --vcs-provenance

  # Rescanning on every change until interrupted
  permscan scan --watch --output -`
)

// ScanCmd represents the scan command.
var ScanCmd = &cobra.Command{
	Use:                   "scan [--output/-o PATH] [--extensions LIST] [--rules LIST] [-j CONCURRENCY] [--timeout DURATION] [ROOT]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleScanUsage,
	Short:                 "Scans workflow files for dangerous permission grants and writes a SARIF report",
	Long: fmt.Sprintf(`Scans workflow files under ROOT (default %s) for dangerous permission grants.

Every occurrence of a configured construct becomes a SARIF result. Files that cannot
be decoded are skipped and reported as tool notifications. Findings do not change the
exit code; only failures do.`, config.DefaultRoot),
	RunE: runScanCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runScanCommand executes the scan command.
func runScanCommand(cmd *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-scan")

	if err := validateScanArgs(&scanOptions, args); err != nil {
		logger.Error("invalid scan arguments", "error", err)
		return scanerrors.NewCommandError(err, scanerrors.ExitUsage)
	}

	cfg := applyFlags(AppConfig, &scanOptions, cmd.Flags(), args)
	if err := config.ValidateConfig(cfg); err != nil {
		logger.Error("invalid configuration", "error", err)
		return scanerrors.NewCommandError(err, scanerrors.ExitUsage)
	}

	catalog, err := rules.Build(cfg)
	if err != nil {
		logger.Error("failed to build the rule catalog", "error", err)
		return scanerrors.NewCommandError(err, scanerrors.ExitUsage)
	}

	s := scanner.New(prepareScannerOptions(cfg, catalog, cmd.OutOrStdout()), logger)
	if scanOptions.Watch {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watch.Run(ctx, watch.Options{
			Root:                cfg.Scan.Root,
			Recursive:           cfg.Scan.Recursive,
			Extensions:          cfg.Scan.Extensions,
			TolerateMissingRoot: config.TolerateMissingRoot(cfg),
		}, func(ctx context.Context) error {
			summary, err := s.Run(ctx)
			if err != nil {
				return err
			}
			logSummary(logger, summary)
			return nil
		}, logger)
	}

	summary, err := s.Run(cmd.Context())
	if err != nil {
		logger.Error("scan command failed", "error", err)
		return err
	}

	logSummary(logger, summary)
	return nil
}

// Initialize flags for the scan command.
func init() {
	registerFlags(ScanCmd.Flags(), &scanOptions)
	ScanCmd.Flags().BoolP("help", "h", false, "Show help for the scan command.")
}

func registerFlags(flags *pflag.FlagSet, options *RunOptionsScan) {
	flags.StringVarP(&options.OutputPath, "output", "o", config.DefaultOutput, "Path to the SARIF report. An existing directory or a path ending in a separator receives results.sarif. Use '-' to write to stdout.")
	flags.StringSliceVar(&options.Extensions, "extensions", append([]string(nil), config.DefaultExtensions...), "Comma-separated list of file extensions to scan.")
	flags.StringSliceVar(&options.Rules, "rules", nil, "Comma-separated list of rule IDs to run. All rules run when empty.")
	flags.IntVarP(&options.Concurrency, "concurrency", "j", config.DefaultConcurrency, "Number of files processed concurrently.")
	flags.DurationVar(&options.Timeout, "timeout", config.DefaultTimeout, "Time budget for the whole scan.")
	flags.BoolVar(&options.TolerateMissingRoot, "tolerate-missing-root", true, "Treat a missing root directory as an empty one.")
	flags.BoolVarP(&options.Recursive, "recursive", "r", false, "Descend into subdirectories of the root.")
	flags.StringVar(&options.SourceRoot, "source-root", config.DefaultSourceRoot, "Directory that artifact URIs in the report are relative to.")
	flags.BoolVar(&options.VCSProvenance, "vcs-provenance", false, "Attach repository URL, revision and branch to the report.")
	flags.BoolVarP(&options.Watch, "watch", "w", false, "Keep running and rescan whenever a workflow file under the root changes.")
}
