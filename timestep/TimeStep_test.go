package timestep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestStepTypePredicates(t *testing.T) {
	obs := mat.NewVecDense(1, []float64{0})

	first := New(First, 0, 1, obs, 0)
	assert.True(t, first.First())
	assert.False(t, first.Last())

	mid := New(Mid, 1, 1, obs, 3)
	assert.True(t, mid.Mid())
	assert.False(t, mid.Last())
}

// The read-only predicates take value receivers so they can be chained
// onto non-addressable return values, e.g. env.CurrentTimeStep().Last().
func TestPredicatesOnReturnedValue(t *testing.T) {
	obs := mat.NewVecDense(1, []float64{0})

	last := func() TimeStep {
		step := New(Mid, 0, 1, obs, 5)
		step.SetEnd(TerminalStateEnd)
		return step
	}

	assert.True(t, last().Last())
	assert.True(t, last().TerminalState())
	assert.False(t, New(First, 0, 1, obs, 0).Mid())
}

func TestSetEnd(t *testing.T) {
	obs := mat.NewVecDense(1, []float64{0})

	step := New(Mid, 1, 1, obs, 7)
	assert.Equal(t, NoEnd, step.EndType)

	step.SetEnd(CutoffEnd)
	assert.True(t, step.Last())
	assert.Equal(t, CutoffEnd, step.EndType)
	assert.False(t, step.TerminalState(),
		"a cutoff is not a terminal state of the MDP")

	terminal := New(Mid, -1, 1, obs, 9)
	terminal.SetEnd(TerminalStateEnd)
	assert.True(t, terminal.TerminalState())
}
