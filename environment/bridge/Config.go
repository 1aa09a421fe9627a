package bridge

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values. Step and reset timeouts default to
// generous multiples of typical control periods; deployments tune them
// per robot.
const (
	DefaultStepTimeout         = 500 * time.Millisecond
	DefaultResetTimeout        = 5 * time.Second
	DefaultMinDispatchInterval = time.Duration(0)
	DefaultDiscount            = 1.0
)

// Config holds the bridge's timing and episode parameters.
//
// MaxEpisodeSteps of zero means no cap. MinDispatchInterval of zero
// disables action pacing.
type Config struct {
	StepTimeout         time.Duration
	ResetTimeout        time.Duration
	MinDispatchInterval time.Duration
	MaxEpisodeSteps     int
	Discount            float64
}

// DefaultConfig returns a Config with every field at its default
func DefaultConfig() Config {
	return Config{
		StepTimeout:         DefaultStepTimeout,
		ResetTimeout:        DefaultResetTimeout,
		MinDispatchInterval: DefaultMinDispatchInterval,
		MaxEpisodeSteps:     0,
		Discount:            DefaultDiscount,
	}
}

// Validate checks the Config for values the bridge cannot run with
func (c Config) Validate() error {
	if c.StepTimeout <= 0 {
		return fmt.Errorf("config: step timeout must be positive, got %v",
			c.StepTimeout)
	}
	if c.ResetTimeout <= 0 {
		return fmt.Errorf("config: reset timeout must be positive, got %v",
			c.ResetTimeout)
	}
	if c.MinDispatchInterval < 0 {
		return fmt.Errorf("config: min dispatch interval must be "+
			"non-negative, got %v", c.MinDispatchInterval)
	}
	if c.MaxEpisodeSteps < 0 {
		return fmt.Errorf("config: max episode steps must be non-negative, "+
			"got %v", c.MaxEpisodeSteps)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("config: discount must be in [0, 1], got %v",
			c.Discount)
	}
	return nil
}

// yamlConfig is the on-disk form of Config. Durations are strings in
// time.ParseDuration syntax ("500ms", "2s").
type yamlConfig struct {
	StepTimeout         string  `yaml:"step_timeout"`
	ResetTimeout        string  `yaml:"reset_timeout"`
	MinDispatchInterval string  `yaml:"min_dispatch_interval"`
	MaxEpisodeSteps     int     `yaml:"max_episode_steps"`
	Discount            float64 `yaml:"discount"`
}

// UnmarshalYAML fills the Config from its on-disk form. Omitted fields
// keep their defaults.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	*c = DefaultConfig()

	var raw yamlConfig
	raw.Discount = c.Discount
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	parse := func(name, s string, into *time.Duration) error {
		if s == "" {
			return nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: bad %v %q: %w", name, s, err)
		}
		*into = d
		return nil
	}

	if err := parse("step_timeout", raw.StepTimeout,
		&c.StepTimeout); err != nil {
		return err
	}
	if err := parse("reset_timeout", raw.ResetTimeout,
		&c.ResetTimeout); err != nil {
		return err
	}
	if err := parse("min_dispatch_interval", raw.MinDispatchInterval,
		&c.MinDispatchInterval); err != nil {
		return err
	}
	c.MaxEpisodeSteps = raw.MaxEpisodeSteps
	c.Discount = raw.Discount

	return c.Validate()
}

// MarshalYAML writes the Config in its on-disk form
func (c Config) MarshalYAML() (interface{}, error) {
	return yamlConfig{
		StepTimeout:         c.StepTimeout.String(),
		ResetTimeout:        c.ResetTimeout.String(),
		MinDispatchInterval: c.MinDispatchInterval.String(),
		MaxEpisodeSteps:     c.MaxEpisodeSteps,
		Discount:            c.Discount,
	}, nil
}

// LoadConfig reads a Config from a YAML file at path
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: could not read %v: %w",
			path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	if c.StepTimeout == 0 {
		// Empty file: Unmarshal never called UnmarshalYAML.
		c = DefaultConfig()
	}
	return c, nil
}
