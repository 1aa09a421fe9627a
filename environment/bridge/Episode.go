package bridge

import (
	"fmt"

	"github.com/google/uuid"
)

// State is the lifecycle state of an episode
type State int

const (
	// Idle is the initial state, before the first Reset
	Idle State = iota

	// Running means an episode is in progress and Step is legal
	Running

	// Terminal means the episode has ended; only Reset is legal
	Terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	default:
		return "Terminal"
	}
}

// Episode tracks one bounded interaction session: its id, lifecycle
// state, step counter, and accumulated reward. The accumulated reward
// is tracked for diagnostics only; reward semantics belong to domains.
//
// Episode is owned by the foreground (stepping) goroutine and is not
// safe for concurrent use.
type Episode struct {
	state  State
	id     uuid.UUID
	number int
	steps  int
	reward float64
}

// NewEpisode returns an Episode in the Idle state
func NewEpisode() *Episode {
	return &Episode{state: Idle}
}

// State returns the current lifecycle state
func (e *Episode) State() State { return e.state }

// ID returns the current episode's id. Zero before the first Begin.
func (e *Episode) ID() uuid.UUID { return e.id }

// Number returns how many episodes have begun, starting at 1 for the
// first
func (e *Episode) Number() int { return e.number }

// Steps returns the number of steps taken this episode. It is zero
// immediately after Begin and increases by exactly one per Advance.
func (e *Episode) Steps() int { return e.steps }

// TotalReward returns the reward accumulated this episode
func (e *Episode) TotalReward() float64 { return e.reward }

// Begin starts a new episode: fresh id, step counter zeroed, state
// Running. Legal from any state; beginning over a Running episode
// abandons it.
func (e *Episode) Begin() {
	e.id = uuid.New()
	e.number++
	e.steps = 0
	e.reward = 0
	e.state = Running
}

// CheckStep returns nil when a Step is legal, or ErrInvalidState
// describing the violation. It never mutates the episode.
func (e *Episode) CheckStep() error {
	if e.state != Running {
		return fmt.Errorf("%w: state is %v", ErrInvalidState, e.state)
	}
	return nil
}

// Advance records one completed step. done moves the episode to
// Terminal; otherwise it stays Running.
func (e *Episode) Advance(reward float64, done bool) {
	e.steps++
	e.reward += reward
	if done {
		e.state = Terminal
	}
}

// Fault forces the episode to Terminal without counting a step, used
// when the environment rather than the domain ends the episode (e.g. an
// observation timeout).
func (e *Episode) Fault() {
	e.state = Terminal
}
