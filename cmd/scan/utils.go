package scan

import (
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/scan-io-git/permscan/cmd/version"
	"github.com/scan-io-git/permscan/internal/rules"
	"github.com/scan-io-git/permscan/internal/sarif"
	"github.com/scan-io-git/permscan/internal/scanner"
	"github.com/scan-io-git/permscan/pkg/shared/config"
)

// Tool identity written to the report.
const (
	ToolName           = "permscan"
	ToolInformationURI = "https://github.com/scan-io-git/permscan"
)

// applyFlags returns a copy of cfg overlaid with the positional root and every flag set explicitly.
func applyFlags(cfg *config.Config, options *RunOptionsScan, flags *pflag.FlagSet, args []string) *config.Config {
	var merged config.Config
	if cfg != nil {
		merged = *cfg
	} else {
		merged = *config.Default()
	}

	if len(args) == 1 {
		merged.Scan.Root = args[0]
	}
	if flags.Changed("output") {
		merged.Report.Output = options.OutputPath
	}
	if flags.Changed("extensions") {
		merged.Scan.Extensions = append([]string(nil), options.Extensions...)
	}
	if flags.Changed("rules") {
		merged.Scan.EnabledRules = append([]string(nil), options.Rules...)
	}
	if flags.Changed("concurrency") {
		merged.Scan.Concurrency = options.Concurrency
	}
	if flags.Changed("timeout") {
		merged.Scan.Timeout = options.Timeout
	}
	if flags.Changed("tolerate-missing-root") {
		tolerate := options.TolerateMissingRoot
		merged.Scan.TolerateMissingRoot = &tolerate
	}
	if flags.Changed("recursive") {
		merged.Scan.Recursive = options.Recursive
	}
	if flags.Changed("source-root") {
		merged.Scan.SourceRoot = options.SourceRoot
	}
	if flags.Changed("vcs-provenance") {
		merged.Report.VCSProvenance = options.VCSProvenance
	}
	return &merged
}

// prepareScannerOptions converts a validated configuration into scanner options.
func prepareScannerOptions(cfg *config.Config, catalog *rules.Catalog, stdout io.Writer) scanner.Options {
	return scanner.Options{
		Root:                cfg.Scan.Root,
		Extensions:          cfg.Scan.Extensions,
		Recursive:           cfg.Scan.Recursive,
		TolerateMissingRoot: config.TolerateMissingRoot(cfg),
		SourceRoot:          cfg.Scan.SourceRoot,
		Concurrency:         cfg.Scan.Concurrency,
		Timeout:             cfg.Scan.Timeout,
		Output:              cfg.Report.Output,
		Tool: sarif.ToolMetadata{
			Name:           ToolName,
			Version:        version.CoreVersion,
			InformationURI: ToolInformationURI,
		},
		VCSProvenance: cfg.Report.VCSProvenance,
		Catalog:       catalog,
		Stdout:        stdout,
	}
}

func logSummary(logger hclog.Logger, summary scanner.Summary) {
	logger.Info("scan completed",
		"files", summary.FilesFound,
		"scanned", summary.FilesScanned,
		"skipped", summary.FilesSkipped,
		"findings", summary.Findings,
		"errors", summary.Severity["error"],
		"warnings", summary.Severity["warning"],
		"notes", summary.Severity["note"],
		"output", summary.Output,
	)
}
