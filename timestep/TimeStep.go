// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either a first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes why an episode ended. An episode may end because a
// terminal state was reached, because a step or time cutoff was hit, or
// because the environment faulted (e.g. no observation arrived in time).
// Cutoffs and faults are not terminal states of the underlying MDP, so
// agents may wish to treat them differently when bootstrapping.
type EndType int

const (
	// TerminalStateEnd indicates the domain's done predicate fired
	TerminalStateEnd EndType = iota

	// CutoffEnd indicates a step-count or time budget was exceeded
	CutoffEnd

	// FaultEnd indicates an environment fault, such as an observation
	// timeout or a transport disconnection
	FaultEnd

	// NoEnd indicates the episode has not ended
	NoEnd
)

func (e EndType) String() string {
	switch e {
	case TerminalStateEnd:
		return "TerminalState"
	case CutoffEnd:
		return "Cutoff"
	case FaultEnd:
		return "Fault"
	default:
		return "NoEnd"
	}
}

// Info is an open mapping of diagnostic key/value pairs attached to a
// TimeStep. Keys are adapter- or bridge-defined; consumers must not
// rely on any key being present.
type Info map[string]interface{}

// TimeStep packages together a single timestep in an environment.
//
// Number counts steps within the current episode and is zero for the
// first step after a reset. Seq is the sequence number of the
// observation the step was built from; sequence numbers are monotonic
// for the lifetime of an environment and are never reset between
// episodes.
type TimeStep struct {
	StepType    StepType
	Reward      float64
	Discount    float64
	Observation *mat.VecDense
	Number      int
	Seq         uint64
	EndType     EndType
	Info        Info
}

// New constructs a new TimeStep with no diagnostic info
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{
		StepType:    t,
		Reward:      r,
		Discount:    d,
		Observation: o,
		Number:      n,
		EndType:     NoEnd,
		Info:        make(Info),
	}
}

// First returns whether a TimeStep is the first in an episode
func (t TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an episode
func (t TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an episode
func (t TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd marks the TimeStep as the last of its episode with the given
// end type
func (t *TimeStep) SetEnd(e EndType) {
	t.StepType = Last
	t.EndType = e
}

// TerminalState returns whether the TimeStep ended its episode in a
// terminal state of the underlying MDP, as opposed to a cutoff or fault
func (t TimeStep) TerminalState() bool {
	return t.StepType == Last && t.EndType == TerminalStateEnd
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v  |  Seq:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number, t.Seq)
}
