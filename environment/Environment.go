// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/roboenv/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments that run in-process
type Starter interface {
	Start() mat.Vector
}

// Ender determines when an episode should end. Enders may inspect the
// timestep and, when ending it, must set the timestep's StepType to
// timestep.Last along with the appropriate EndType.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Environment is the synchronous episode contract shared by every
// environment in this module, whether it is backed by a message
// transport or runs fully in-process.
//
// Reset begins a new episode and blocks until the environment's first
// observation is available. Step dispatches an action and blocks until
// the resulting observation arrives, returning the transition, a flag
// indicating episode termination, and an error. After a step returns
// done == true, Step must not be called again until Reset.
//
// Exactly one goroutine may call Reset and Step.
type Environment interface {
	Reset() (timestep.TimeStep, error)
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)

	// CurrentTimeStep returns the last timestep produced by Reset or
	// Step without mutating episode state.
	CurrentTimeStep() timestep.TimeStep

	ObservationSpec() Spec
	ActionSpec() Spec
	DiscountSpec() Spec

	// Close releases the environment's resources and unblocks any
	// pending Reset or Step wait. Safe to call more than once.
	Close() error
}

// Renderer is implemented by environments that can draw their current
// state. Rendering must not mutate episode state.
type Renderer interface {
	Render(path string) error
}
