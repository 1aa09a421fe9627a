package bridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigDefaultsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero step timeout", func(c *Config) { c.StepTimeout = 0 }},
		{"negative reset timeout",
			func(c *Config) { c.ResetTimeout = -time.Second }},
		{"negative dispatch interval",
			func(c *Config) { c.MinDispatchInterval = -time.Millisecond }},
		{"negative step cap", func(c *Config) { c.MaxEpisodeSteps = -1 }},
		{"discount above one", func(c *Config) { c.Discount = 1.5 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := DefaultConfig()
			test.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfigUnmarshalYAML(t *testing.T) {
	data := []byte(`
step_timeout: 250ms
reset_timeout: 2s
min_dispatch_interval: 10ms
max_episode_steps: 500
discount: 0.99
`)

	var c Config
	require.NoError(t, yaml.Unmarshal(data, &c))
	assert.Equal(t, 250*time.Millisecond, c.StepTimeout)
	assert.Equal(t, 2*time.Second, c.ResetTimeout)
	assert.Equal(t, 10*time.Millisecond, c.MinDispatchInterval)
	assert.Equal(t, 500, c.MaxEpisodeSteps)
	assert.Equal(t, 0.99, c.Discount)
}

func TestConfigUnmarshalYAMLKeepsDefaults(t *testing.T) {
	var c Config
	require.NoError(t, yaml.Unmarshal([]byte(`step_timeout: 1s`), &c))
	assert.Equal(t, time.Second, c.StepTimeout)
	assert.Equal(t, DefaultResetTimeout, c.ResetTimeout)
}

func TestConfigUnmarshalYAMLBadDuration(t *testing.T) {
	var c Config
	err := yaml.Unmarshal([]byte(`step_timeout: eventually`), &c)
	require.Error(t, err)
}

func TestConfigRoundTrip(t *testing.T) {
	orig := Config{
		StepTimeout:         time.Second,
		ResetTimeout:        3 * time.Second,
		MinDispatchInterval: 5 * time.Millisecond,
		MaxEpisodeSteps:     100,
		Discount:            0.9,
	}

	data, err := yaml.Marshal(orig)
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, orig, back)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path,
		[]byte("step_timeout: 750ms\ndiscount: 0.95\n"), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, c.StepTimeout)
	assert.Equal(t, 0.95, c.Discount)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
