// Package envconfig provides configuration structs for constructing
// the environments in this module by name. Configurations are YAML
// serializable so experiment setups can live in files.
package envconfig

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r1"
	"gopkg.in/yaml.v3"

	env "github.com/samuelfneumann/roboenv/environment"
	"github.com/samuelfneumann/roboenv/environment/bridge"
	"github.com/samuelfneumann/roboenv/environment/cartpole"
	"github.com/samuelfneumann/roboenv/environment/rocketleague"
	"github.com/samuelfneumann/roboenv/environment/snake"
	"github.com/samuelfneumann/roboenv/transport"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Cartpole       EnvName = "Cartpole"
	CartpoleDirect EnvName = "CartpoleDirect"
	Snake          EnvName = "Snake"
	RocketLeague   EnvName = "RocketLeague"
)

// Start-state bound for the direct cartpole's uniform starter
const directCartpoleStart = 0.05

// Config implements a specific configuration of a specific environment.
// The Bridge section applies to transport-backed environments; Seed
// applies to in-process ones.
type Config struct {
	Environment EnvName       `yaml:"environment"`
	Bridge      bridge.Config `yaml:"bridge"`
	Seed        uint64        `yaml:"seed"`
}

// NewConfig returns a new environment Config
func NewConfig(envName EnvName, bridgeConfig bridge.Config,
	seed uint64) Config {
	return Config{
		Environment: envName,
		Bridge:      bridgeConfig,
		Seed:        seed,
	}
}

// Load reads a Config from a YAML file at path
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("envconfig: could not read %v: %w",
			path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("envconfig: %w", err)
	}
	return c, nil
}

// bridgeConfig returns the configured bridge parameters, or defaults if
// the Bridge section was omitted
func (c Config) bridgeConfig() bridge.Config {
	if c.Bridge == (bridge.Config{}) {
		return bridge.DefaultConfig()
	}
	return c.Bridge
}

// Create returns the environment described by the Config. trans is the
// transport the environment is bridged over; the CartpoleDirect
// environment runs in-process and ignores it (it may be nil).
func (c Config) Create(trans transport.Transport,
	opts ...bridge.Option) (env.Environment, error) {
	cfg := c.bridgeConfig()

	switch c.Environment {
	case Cartpole:
		return cartpole.New(trans, cfg, opts...)

	case CartpoleDirect:
		bounds := r1.Interval{Min: -directCartpoleStart,
			Max: directCartpoleStart}
		starter := env.NewUniformStarter(
			[]r1.Interval{bounds, bounds, bounds, bounds}, c.Seed)
		return cartpole.NewDirect(starter, cfg.Discount,
			cfg.MaxEpisodeSteps), nil

	case Snake:
		return snake.New(trans, cfg, opts...)

	case RocketLeague:
		return rocketleague.New(trans, cfg, opts...)

	default:
		return nil, fmt.Errorf("envconfig: unknown environment %q",
			c.Environment)
	}
}
