package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secwallet/internal/config"
)

const validYAML = `
version: 1
endpoint: inproc://secwallet
swsAgentName: sws-agent
camsAgentName: cams-agent
srrAgentName: srr-agent
walletDatabasePath: /var/lib/secwallet/database.json
walletConfigurationPath: /etc/secwallet/configuration.json
mappingDatabasePath: /var/lib/secwallet/mapping.json
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secwalletd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadValidConfiguration(t *testing.T) {
	cfg := config.New(writeConfig(t, validYAML))
	require.NoError(t, cfg.Load())

	assert.Equal(t, "inproc://secwallet", cfg.Definition.Endpoint)
	assert.Equal(t, "sws-agent", cfg.Definition.SWSAgentName)
	assert.False(t, cfg.Definition.MetricsEnabled)
}

func TestLoadMissingFile(t *testing.T) {
	cfg := config.New(filepath.Join(t.TempDir(), "missing.yaml"))
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadInvalidYAML(t *testing.T) {
	cfg := config.New(writeConfig(t, "not: [valid yaml"))
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	cfg := config.New(writeConfig(t, "version: 2\nendpoint: x\n"))
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported configuration version")
}

func TestLoadRequiresEveryField(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing endpoint", "version: 1\n", "endpoint must be set"},
		{
			"missing sws agent name",
			"version: 1\nendpoint: x\n",
			"swsAgentName must be set",
		},
		{
			"missing wallet database path",
			"version: 1\nendpoint: x\nswsAgentName: a\ncamsAgentName: b\nsrrAgentName: c\n",
			"walletDatabasePath must be set",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.New(writeConfig(t, tc.yaml))
			err := cfg.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadAcceptsMetricsFields(t *testing.T) {
	withMetrics := validYAML + "metricsEnabled: true\nmetricsAddr: \":9091\"\n"
	cfg := config.New(writeConfig(t, withMetrics))
	require.NoError(t, cfg.Load())

	assert.True(t, cfg.Definition.MetricsEnabled)
	assert.Equal(t, ":9091", cfg.Definition.MetricsAddr)
}
