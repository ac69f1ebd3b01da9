package rules

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/scan-io-git/permscan/internal/rules"
	"github.com/scan-io-git/permscan/pkg/shared/config"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
	"github.com/scan-io-git/permscan/pkg/shared/logger"
)

// RunOptionsRules holds the arguments for the rules command.
type RunOptionsRules struct {
	JSON bool
}

// RuleInfo is the printable description of a catalog entry.
type RuleInfo struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Severity  string   `json:"severity"`
	Matcher   string   `json:"matcher"`
	Construct string   `json:"construct,omitempty"`
	HelpURI   string   `json:"help_uri,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

var (
	AppConfig    *config.Config
	rulesOptions RunOptionsRules
)

// RulesCmd represents the rules command.
var RulesCmd = &cobra.Command{
	Use:                   "rules [--json]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Lists the rules a scan with the current configuration would run",
	RunE:                  runRulesCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runRulesCommand(cmd *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-rules")

	cfg := AppConfig
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.ValidateConfig(cfg); err != nil {
		logger.Error("invalid configuration", "error", err)
		return scanerrors.NewCommandError(err, scanerrors.ExitUsage)
	}

	catalog, err := rules.Build(cfg)
	if err != nil {
		logger.Error("failed to build the rule catalog", "error", err)
		return scanerrors.NewCommandError(err, scanerrors.ExitUsage)
	}

	infos := describe(catalog)
	logger.Debug("rule catalog built", "rules", len(infos))
	if rulesOptions.JSON {
		return printJSON(cmd.OutOrStdout(), infos)
	}
	printTable(cmd.OutOrStdout(), infos)
	return nil
}

func describe(catalog *rules.Catalog) []RuleInfo {
	infos := make([]RuleInfo, 0, catalog.Len())
	for _, r := range catalog.Rules() {
		infos = append(infos, RuleInfo{
			ID:        r.ID,
			Name:      r.DisplayName(),
			Severity:  string(r.Severity),
			Matcher:   r.Matcher.Kind(),
			Construct: r.Construct,
			HelpURI:   r.HelpURI,
			Tags:      r.Tags,
		})
	}
	return infos
}

func printJSON(w io.Writer, infos []RuleInfo) error {
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printTable(w io.Writer, infos []RuleInfo) {
	width := len("ID")
	for _, info := range infos {
		if len(info.ID) > width {
			width = len(info.ID)
		}
	}
	title := cases.Title(language.Und)
	fmt.Fprintf(w, "%-*s  %-8s  %-6s  %s\n", width, "ID", "SEVERITY", "KIND", "NAME")
	for _, info := range infos {
		fmt.Fprintf(w, "%-*s  %-8s  %-6s  %s\n", width, info.ID, title.String(info.Severity), info.Matcher, info.Name)
		if len(info.Tags) > 0 {
			fmt.Fprintf(w, "%-*s  tags: %s\n", width, "", strings.Join(info.Tags, ", "))
		}
	}
}

func init() {
	RulesCmd.Flags().BoolVar(&rulesOptions.JSON, "json", false, "Print the rules as JSON.")
	RulesCmd.Flags().BoolP("help", "h", false, "Show help for the rules command.")
}
