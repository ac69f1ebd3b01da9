package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
)

func TestExecuteExitCodes(t *testing.T) {
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	t.Run("version", func(t *testing.T) {
		rootCmd.SetArgs([]string{"version"})
		assert.Equal(t, scanerrors.ExitOK, Execute())
		assert.NotNil(t, AppConfig)
	})

	t.Run("unknown command", func(t *testing.T) {
		rootCmd.SetArgs([]string{"no-such-command"})
		assert.Equal(t, scanerrors.ExitUsage, Execute())
	})

	t.Run("invalid environment override", func(t *testing.T) {
		t.Setenv("PERMSCAN_CONCURRENCY", "many")
		rootCmd.SetArgs([]string{"rules"})
		assert.Equal(t, scanerrors.ExitUsage, Execute())
	})

	t.Run("missing config file", func(t *testing.T) {
		rootCmd.SetArgs([]string{"rules", "--config", "does-not-exist.yml"})
		assert.Equal(t, scanerrors.ExitUsage, Execute())
	})
}
