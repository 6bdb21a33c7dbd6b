package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 0.016
	DefaultDuration    = 30.0
	DefaultBeamRate    = 10.0
	DefaultArrangement = "Z"
	DefaultPreparation = "z+"
	DefaultSource      = "beam"
)

// Config describes one simulation run. Blocking holds one mode per
// apparatus ("none", "up", "down"); missing entries mean none.
type Config struct {
	Arrangement string   `yaml:"arrangement"`
	Source      string   `yaml:"source"`
	BeamRate    float64  `yaml:"beam_rate"`
	Dt          float64  `yaml:"dt"`
	Duration    float64  `yaml:"duration"`
	Seed        int64    `yaml:"seed"`
	Preparation string   `yaml:"preparation"`
	UpFraction  float64  `yaml:"up_fraction"`
	Blocking    []string `yaml:"blocking"`
}

func DefaultConfig() *Config {
	return &Config{
		Arrangement: DefaultArrangement,
		Source:      DefaultSource,
		BeamRate:    DefaultBeamRate,
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		Preparation: DefaultPreparation,
		UpFraction:  1.0,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate catches values no run could use; arrangement and
// preparation strings are checked where they are parsed.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %f", c.Duration)
	}
	if c.BeamRate < 0 {
		return fmt.Errorf("config: beam rate must not be negative, got %f", c.BeamRate)
	}
	if c.Source != "beam" && c.Source != "single" {
		return fmt.Errorf("config: source must be beam or single, got %q", c.Source)
	}
	if c.UpFraction < 0 || c.UpFraction > 1 {
		return fmt.Errorf("config: up_fraction must be in [0,1], got %f", c.UpFraction)
	}
	return nil
}
