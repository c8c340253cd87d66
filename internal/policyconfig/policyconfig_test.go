package policyconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secwallet/internal/policyconfig"
)

const sample = `[
	{
		"portfolio_name": "default",
		"usages": [{"usage_id": "discovery_monitoring", "supported_types": ["Snmpv3"]}],
		"consumers": [{"client_regex": "s1", "usages": ["A"]}],
		"producers": [{"client_regex": "discovery-agent-.*", "usages": ["discovery_monitoring"]}]
	}
]`

func TestAllowedUsagesUnion(t *testing.T) {
	configs, err := policyconfig.ParseConfigs([]byte(sample))
	require.NoError(t, err)
	require.Len(t, configs, 1)

	cfg := configs[0]
	producerUsages := cfg.AllowedUsages("discovery-agent-7", policyconfig.RoleProducer)
	_, ok := producerUsages["discovery_monitoring"]
	assert.True(t, ok)

	consumerUsages := cfg.AllowedUsages("s1", policyconfig.RoleConsumer)
	_, ok = consumerUsages["A"]
	assert.True(t, ok)
}

func TestRegexIsFullStringAnchored(t *testing.T) {
	configs, err := policyconfig.ParseConfigs([]byte(sample))
	require.NoError(t, err)
	cfg := configs[0]

	usages := cfg.AllowedUsages("prefix-s1-suffix", policyconfig.RoleConsumer)
	assert.Empty(t, usages, "partial match must not grant usages")
}

func TestNoMatchingRuleDeniesAccess(t *testing.T) {
	configs, err := policyconfig.ParseConfigs([]byte(sample))
	require.NoError(t, err)
	cfg := configs[0]

	usages := cfg.AllowedUsages("nobody", policyconfig.RoleConsumer)
	assert.Empty(t, usages)
}

func TestSupportsType(t *testing.T) {
	configs, err := policyconfig.ParseConfigs([]byte(sample))
	require.NoError(t, err)
	cfg := configs[0]

	assert.True(t, cfg.SupportsType("discovery_monitoring", "Snmpv3"))
	assert.False(t, cfg.SupportsType("discovery_monitoring", "Snmpv1"))
}
