// Package roboenv presents reinforcement-learning environments over
// asynchronous robot control networks through a synchronous
// reset/step interface.
//
// The package re-exports the module's public surface: the base
// Interface every environment satisfies, the Bridge that converts
// push-based state messages into blocking step calls, and the four
// concrete environment adapters.
package roboenv

import (
	"github.com/samuelfneumann/roboenv/environment"
	"github.com/samuelfneumann/roboenv/environment/bridge"
	"github.com/samuelfneumann/roboenv/environment/cartpole"
	"github.com/samuelfneumann/roboenv/environment/rocketleague"
	"github.com/samuelfneumann/roboenv/environment/snake"
)

// Interface is the synchronous episode contract shared by every
// environment
type Interface = environment.Environment

// Bridge is the asynchronous-to-synchronous core the adapters are
// built on
type Bridge = bridge.Bridge

// The four environment adapters
type (
	CartpoleInterface       = cartpole.Cartpole
	CartpoleDirectInterface = cartpole.Direct
	SnakeInterface          = snake.Snake
	RocketLeagueInterface   = rocketleague.RocketLeague
)

// Constructors for the adapters
var (
	NewCartpole       = cartpole.New
	NewCartpoleDirect = cartpole.NewDirect
	NewSnake          = snake.New
	NewRocketLeague   = rocketleague.New
)
