// Package config loads the YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds
const (
	SourceSamples   = "samples"
	SourceRecording = "recording"
	SourceBeast     = "beast"
)

// Defaults
const (
	DefaultSourceKind    = SourceSamples
	DefaultSourcePath    = "-"
	DefaultLogDir        = "./logs"
	DefaultReplaySpeed   = 1.0
	DefaultPurgeInterval = time.Second
	DefaultCacheTTL      = 10 * time.Minute
	DefaultStatsInterval = 30 * time.Second
)

type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Replay   ReplayConfig   `yaml:"replay"`
	Record   RecordConfig   `yaml:"record"`
	Output   OutputConfig   `yaml:"output"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Registry RegistryConfig `yaml:"registry"`
	Stats    StatsConfig    `yaml:"stats"`
	Verbose  bool           `yaml:"verbose"`
}

type SourceConfig struct {
	Kind string `yaml:"kind"`
	// Path is a file, "-" for standard input, or tcp://host:port for beast
	Path string `yaml:"path"`
}

type ReplayConfig struct {
	Speed    float64 `yaml:"speed"`
	Realtime bool    `yaml:"realtime"`
}

type RecordConfig struct {
	Path string `yaml:"path"`
}

type OutputConfig struct {
	LogDir string `yaml:"log_dir"`
	UTC    bool   `yaml:"utc"`
	Stdout bool   `yaml:"stdout"`
}

type TrackerConfig struct {
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

type RegistryConfig struct {
	Path     string        `yaml:"path"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type StatsConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used without a file
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// Load reads path, fills unset keys with defaults and validates the result.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills every unset key
func (c *Config) ApplyDefaults() {
	if c.Source.Kind == "" {
		c.Source.Kind = DefaultSourceKind
	}
	if c.Source.Path == "" {
		c.Source.Path = DefaultSourcePath
	}
	if c.Replay.Speed == 0 {
		c.Replay.Speed = DefaultReplaySpeed
	}
	if c.Output.LogDir == "" {
		c.Output.LogDir = DefaultLogDir
	}
	if c.Tracker.PurgeInterval == 0 {
		c.Tracker.PurgeInterval = DefaultPurgeInterval
	}
	if c.Registry.CacheTTL == 0 {
		c.Registry.CacheTTL = DefaultCacheTTL
	}
	if c.Stats.Interval == 0 {
		c.Stats.Interval = DefaultStatsInterval
	}
}

// Validate checks a configuration after defaults were applied
func (c Config) Validate() error {
	switch c.Source.Kind {
	case SourceSamples, SourceRecording, SourceBeast:
	default:
		return fmt.Errorf("source.kind must be one of %s, %s, %s", SourceSamples, SourceRecording, SourceBeast)
	}
	if c.Source.Path == "" {
		return fmt.Errorf("source.path is required")
	}
	if c.Replay.Speed <= 0 {
		return fmt.Errorf("replay.speed must be > 0")
	}
	if c.Replay.Realtime && c.Source.Kind != SourceRecording {
		return fmt.Errorf("replay.realtime requires source.kind=%s", SourceRecording)
	}
	if c.Record.Path != "" && c.Record.Path == c.Source.Path {
		return fmt.Errorf("record.path cannot be the source file")
	}
	if c.Output.LogDir == "" {
		return fmt.Errorf("output.log_dir is required")
	}
	if c.Tracker.PurgeInterval <= 0 {
		return fmt.Errorf("tracker.purge_interval must be > 0")
	}
	if c.Registry.CacheTTL <= 0 {
		return fmt.Errorf("registry.cache_ttl must be > 0")
	}
	if c.Stats.Interval <= 0 {
		return fmt.Errorf("stats.interval must be > 0")
	}
	return nil
}
