package leaderduty

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// LeaderConfig holds leader-election and assignment settings
// (spec §6).
type LeaderConfig struct {
	MinActiveNodes    int           `yaml:"min_active_nodes"`
	MaxWeightPerNode  int           `yaml:"max_weight_per_node"`
	YoungestLeaderAge time.Duration `yaml:"youngest_leader_age"`
	LeaderAlsoWorker  bool          `yaml:"leader_also_worker"`
}

// ScaleConfig holds the hysteretic autoscaler's settings (spec §6).
// Thresholds are integer percentages; ScaleDownThreshold must be
// strictly less than ScaleUpThreshold or the dead band is empty and
// the controller will oscillate.
type ScaleConfig struct {
	MinNodes           int           `yaml:"min_nodes"`
	MaxNodes           int           `yaml:"max_nodes"`
	CoolDownPeriod     time.Duration `yaml:"cool_down_period"`
	ScaleDownThreshold int           `yaml:"scale_down_threshold"`
	ScaleUpThreshold   int           `yaml:"scale_up_threshold"`
	EvaluationPeriod   time.Duration `yaml:"evaluation_period"`
	ScaleUpStep        int           `yaml:"scale_up_step"`
	ScaleDownStep      int           `yaml:"scale_down_step"`
}

// Config is the top-level configuration document (spec §6).
type Config struct {
	Leader LeaderConfig `yaml:"leader"`
	Scale  ScaleConfig  `yaml:"scale"`
}

// LoadConfig parses and validates a yaml configuration document.
// ConfigInvalid is fatal at startup (spec §7); callers should refuse
// to run rather than retry.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, &ConfigInvalid{Reason: err.Error()}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the combinations of settings that can never be made
// to work, independent of how the Config was constructed.
func (c Config) Validate() error {
	if c.Scale.ScaleDownThreshold >= c.Scale.ScaleUpThreshold {
		return &ConfigInvalid{Reason: "scaleDownThreshold must be < scaleUpThreshold"}
	}
	if c.Scale.MaxNodes < c.Scale.MinNodes {
		return &ConfigInvalid{Reason: "maxNodes must be >= minNodes"}
	}
	if c.Scale.MinNodes < 0 {
		return &ConfigInvalid{Reason: "minNodes must be >= 0"}
	}
	if c.Scale.ScaleUpStep <= 0 {
		return &ConfigInvalid{Reason: "scaleUpStep must be > 0"}
	}
	if c.Scale.ScaleDownStep <= 0 {
		return &ConfigInvalid{Reason: "scaleDownStep must be > 0"}
	}
	if c.Leader.MaxWeightPerNode <= 0 {
		return &ConfigInvalid{Reason: "maxWeightPerNode must be > 0"}
	}
	return nil
}
