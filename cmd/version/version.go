package version

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/permscan/internal/rules"
)

// Set at build time with -ldflags "-X github.com/scan-io-git/permscan/cmd/version.CoreVersion=...".
var (
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
)

// Versions holds version information for the core application.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
}

// CoreVersions extends Versions with the rules the binary ships with.
type CoreVersions struct {
	Versions     Versions `json:"versions"`
	BuiltinRules []string `json:"builtin_rules"`
}

var jsonOutput bool

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application and its built-in rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			version := Current()
			if jsonOutput {
				return printVersionJSON(cmd.OutOrStdout(), &version)
			}
			printVersionInfo(cmd.OutOrStdout(), &version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print version information as JSON.")
	return cmd
}

// Current collects the version of this build.
func Current() CoreVersions {
	var ids []string
	for _, r := range rules.Builtin() {
		ids = append(ids, r.ID)
	}
	return CoreVersions{
		Versions: Versions{
			Version:       CoreVersion,
			GolangVersion: GolangVersion,
			BuildTime:     BuildTime,
		},
		BuiltinRules: ids,
	}
}

func printVersionJSON(w io.Writer, versions *CoreVersions) error {
	data, err := json.MarshalIndent(versions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode version information: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printVersionInfo prints the version information for the core application and its rules.
func printVersionInfo(w io.Writer, versions *CoreVersions) {
	fmt.Fprintf(w, "Core Version: v%s\n", versions.Versions.Version)
	fmt.Fprintln(w, "Built-in Rules:")
	for _, id := range versions.BuiltinRules {
		fmt.Fprintf(w, "  %s\n", id)
	}
	fmt.Fprintf(w, "Go Version: %s\n", versions.Versions.GolangVersion)
	fmt.Fprintf(w, "Build Time: %s\n", versions.Versions.BuildTime)
}
