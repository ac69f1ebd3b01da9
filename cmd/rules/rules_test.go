package rules

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/permscan/pkg/shared/config"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
)

func runRules(t *testing.T, cfg *config.Config, asJSON bool) (string, error) {
	t.Helper()
	prevCfg, prevOpts := AppConfig, rulesOptions
	t.Cleanup(func() { AppConfig, rulesOptions = prevCfg, prevOpts })
	Init(cfg)
	rulesOptions = RunOptionsRules{JSON: asJSON}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	err := runRulesCommand(cmd, nil)
	return out.String(), err
}

func TestRulesCommandTable(t *testing.T) {
	out, err := runRules(t, config.Default(), false)
	require.NoError(t, err)
	assert.Contains(t, out, "github-actions/id-token-write")
	assert.Contains(t, out, "Error")
	assert.Contains(t, out, "tags: security, github-actions")
}

func TestRulesCommandJSONWithCustomRules(t *testing.T) {
	cfg := config.Default()
	cfg.Rules = []config.RuleConfig{{
		ID:       "custom/write-all",
		Matcher:  "yaml",
		Key:      "permissions",
		Value:    "write-all",
		Severity: "note",
	}}

	out, err := runRules(t, cfg, true)
	require.NoError(t, err)

	var infos []RuleInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "github-actions/id-token-write", infos[0].ID)
	assert.Equal(t, "text", infos[0].Matcher)
	assert.Equal(t, RuleInfo{
		ID:        "custom/write-all",
		Name:      "permissions: write-all detected",
		Severity:  "note",
		Matcher:   "yaml",
		Construct: "permissions: write-all",
	}, infos[1])
}

func TestRulesCommandRejectsUnknownSelection(t *testing.T) {
	cfg := config.Default()
	cfg.Scan.EnabledRules = []string{"missing/rule"}

	_, err := runRules(t, cfg, false)
	require.Error(t, err)
	assert.Equal(t, scanerrors.ExitUsage, scanerrors.ExitCode(err))
}
