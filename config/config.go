// Package config holds the run profile for a stress session: how much
// memory to exercise, with how many workers, for how long, and where state
// and reports go. Profiles load from a config file with environment and flag
// overrides layered on top.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/franksops/memstress/checksum"
	"github.com/franksops/memstress/pattern"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "MEMSTRESS"

// RunConfig holds the settings for one stress run.
type RunConfig struct {
	// RegionBytes is the size of each region pair's buffers.
	RegionBytes int `mapstructure:"region_bytes"`

	// Regions is how many region jobs the run fans out.
	Regions int `mapstructure:"regions"`

	// Workers is the number of concurrent stress workers.
	Workers int `mapstructure:"workers"`

	// Iterations is the copy-and-verify pass count per region.
	Iterations int `mapstructure:"iterations"`

	// Strategy selects the copy strategy: baseline, warm or fast.
	Strategy string `mapstructure:"strategy"`

	// Patterns names the fill patterns to cycle through; empty means all.
	Patterns []string `mapstructure:"patterns"`

	// Seed makes region fills reproducible across runs.
	Seed uint64 `mapstructure:"seed"`

	// StateDir is where the bbolt state database lives.
	StateDir string `mapstructure:"state_dir"`

	// Export is the report destination: a directory or s3://bucket/prefix.
	// Empty disables export.
	Export string `mapstructure:"export"`

	// Debug enables debug-level logging.
	Debug bool `mapstructure:"debug"`

	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"log_format"`

	// TUI enables the live terminal UI.
	TUI bool `mapstructure:"tui"`
}

// Default returns the defaults a run starts from before file, env and flag
// overrides.
func Default() RunConfig {
	return RunConfig{
		RegionBytes: 1 * 1024 * 1024,
		Regions:     8,
		Workers:     4,
		Iterations:  1000,
		Strategy:    "fast",
		Seed:        1,
		StateDir:    "./.memstress-state",
		LogFormat:   "text",
		TUI:         true,
	}
}

// Load reads the run profile. cfgFile may be empty, in which case only
// defaults and environment overrides apply.
func Load(cfgFile string) (RunConfig, error) {
	v := viper.New()

	cfg := Default()
	v.SetDefault("region_bytes", cfg.RegionBytes)
	v.SetDefault("regions", cfg.Regions)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("iterations", cfg.Iterations)
	v.SetDefault("strategy", cfg.Strategy)
	v.SetDefault("seed", cfg.Seed)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("tui", cfg.TUI)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return RunConfig{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return RunConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}

	return cfg, nil
}

// Validate checks the profile against the copy contract: region sizes must
// satisfy the checksummed-copy preconditions before any worker touches them.
func (c RunConfig) Validate() error {
	if c.RegionBytes <= 0 || c.RegionBytes%32 != 0 {
		return fmt.Errorf("region_bytes must be a positive multiple of 32, got %d", c.RegionBytes)
	}
	if c.RegionBytes/8 >= checksum.MaxWords {
		return fmt.Errorf("region_bytes must be under %d bytes to stay within the checksum size gate, got %d",
			checksum.MaxWords*8, c.RegionBytes)
	}
	if c.Regions <= 0 {
		return fmt.Errorf("regions must be positive, got %d", c.Regions)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if _, err := checksum.Strategy(c.Strategy); err != nil {
		return err
	}
	for _, name := range c.Patterns {
		if _, err := pattern.ByName(name); err != nil {
			return err
		}
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// PatternSet resolves the configured pattern names, falling back to the full
// set when none are named.
func (c RunConfig) PatternSet() ([]pattern.Pattern, error) {
	if len(c.Patterns) == 0 {
		return pattern.All(), nil
	}
	out := make([]pattern.Pattern, 0, len(c.Patterns))
	for _, name := range c.Patterns {
		p, err := pattern.ByName(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
