package logger

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/scan-io-git/permscan/pkg/shared/config"
)

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		cfgLevel string
		want     hclog.Level
	}{
		{name: "default", want: hclog.Info},
		{name: "config debug", cfgLevel: "debug", want: hclog.Debug},
		{name: "env wins over config", env: "error", cfgLevel: "debug", want: hclog.Error},
		{name: "unknown falls back to info", cfgLevel: "loud", want: hclog.Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(config.EnvLogLevel, tt.env)
			cfg := config.Default()
			cfg.Logger.Level = tt.cfgLevel
			assert.Equal(t, tt.want, determineLogLevel(cfg))
		})
	}
}

func TestNewLoggerJSONFormat(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "")
	enabled := true
	cfg := config.Default()
	cfg.Logger.JSONFormat = &enabled

	var buf bytes.Buffer
	log := newLogger(cfg, "core-scan", &buf)
	log.Info("scan finished", "findings", 2)

	assert.Contains(t, buf.String(), `"@message":"scan finished"`)
	assert.Contains(t, buf.String(), `"@module":"core-scan"`)
	assert.Contains(t, buf.String(), `"findings":2`)
}
