package leaderduty_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agscheduler/leaderduty"
)

const validYAML = `
leader:
  min_active_nodes: 1
  max_weight_per_node: 100
  youngest_leader_age: 10s
  leader_also_worker: false
scale:
  min_nodes: 1
  max_nodes: 10
  cool_down_period: 60s
  scale_down_threshold: 40
  scale_up_threshold: 80
  evaluation_period: 30s
  scale_up_step: 3
  scale_down_step: 2
`

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := leaderduty.LoadConfig(strings.NewReader(validYAML))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Leader.MaxWeightPerNode)
	assert.Equal(t, 10*time.Second, cfg.Leader.YoungestLeaderAge)
	assert.Equal(t, 3, cfg.Scale.ScaleUpStep)
}

func TestLoadConfig_RejectsUnknownFields(t *testing.T) {
	_, err := leaderduty.LoadConfig(strings.NewReader(validYAML + "\nextra_field: true\n"))
	require.Error(t, err)
	var invalid *leaderduty.ConfigInvalid
	assert.ErrorAs(t, err, &invalid)
}

func TestConfig_Validate(t *testing.T) {
	base := leaderduty.Config{
		Leader: leaderduty.LeaderConfig{MaxWeightPerNode: 100},
		Scale: leaderduty.ScaleConfig{
			MinNodes: 1, MaxNodes: 10,
			ScaleDownThreshold: 40, ScaleUpThreshold: 80,
			ScaleUpStep: 1, ScaleDownStep: 1,
		},
	}
	require.NoError(t, base.Validate())

	cases := []struct {
		name   string
		mutate func(*leaderduty.Config)
	}{
		{"dead band inverted", func(c *leaderduty.Config) { c.Scale.ScaleDownThreshold = 90 }},
		{"dead band equal", func(c *leaderduty.Config) { c.Scale.ScaleDownThreshold = 80 }},
		{"maxNodes below minNodes", func(c *leaderduty.Config) { c.Scale.MaxNodes = 0 }},
		{"negative minNodes", func(c *leaderduty.Config) { c.Scale.MinNodes = -1 }},
		{"zero scaleUpStep", func(c *leaderduty.Config) { c.Scale.ScaleUpStep = 0 }},
		{"zero scaleDownStep", func(c *leaderduty.Config) { c.Scale.ScaleDownStep = 0 }},
		{"zero maxWeightPerNode", func(c *leaderduty.Config) { c.Leader.MaxWeightPerNode = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
