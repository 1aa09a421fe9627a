package cartpole

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/roboenv/timestep"
)

// zeroStarter always starts the cart at rest, pole upright
type zeroStarter struct{}

func (zeroStarter) Start() mat.Vector {
	return mat.NewVecDense(4, nil)
}

func TestDirectRestingStateIsStable(t *testing.T) {
	env := NewDirect(zeroStarter{}, 1.0, 0)

	first, err := env.Reset()
	require.NoError(t, err)
	assert.Equal(t, 0, first.Number)

	// Doing nothing from perfect rest changes nothing.
	step, done, err := env.Step(mat.NewVecDense(1, []float64{1}))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, []float64{0, 0, 0, 0}, step.Observation.RawVector().Data)
	assert.Equal(t, 1.0, step.Reward)
}

func TestDirectForceDirections(t *testing.T) {
	env := NewDirect(zeroStarter{}, 1.0, 0)
	_, err := env.Reset()
	require.NoError(t, err)

	// Pushing right accelerates the cart right and tips the pole left.
	step, _, err := env.Step(mat.NewVecDense(1, []float64{2}))
	require.NoError(t, err)
	assert.Greater(t, step.Observation.AtVec(1), 0.0, "cart speed")
	assert.Less(t, step.Observation.AtVec(3), 0.0, "pole angular velocity")

	_, err = env.Reset()
	require.NoError(t, err)
	step, _, err = env.Step(mat.NewVecDense(1, []float64{0}))
	require.NoError(t, err)
	assert.Less(t, step.Observation.AtVec(1), 0.0, "cart speed")
	assert.Greater(t, step.Observation.AtVec(3), 0.0, "pole angular velocity")
}

func TestDirectConstantPushEndsEpisode(t *testing.T) {
	env := NewDirect(zeroStarter{}, 1.0, 0)
	_, err := env.Reset()
	require.NoError(t, err)

	push := mat.NewVecDense(1, []float64{0})
	var done bool
	steps := 0
	for !done {
		var err error
		_, done, err = env.Step(push)
		require.NoError(t, err)
		steps++
		require.Less(t, steps, 500, "constant push must topple the pole")
	}

	assert.True(t, env.CurrentTimeStep().TerminalState())

	// The terminal episode rejects further steps until reset.
	_, _, err = env.Step(push)
	require.Error(t, err)

	first, err := env.Reset()
	require.NoError(t, err)
	assert.Equal(t, 0, first.Number)
}

func TestDirectStepLimitCutsOff(t *testing.T) {
	env := NewDirect(zeroStarter{}, 1.0, 5)
	_, err := env.Reset()
	require.NoError(t, err)

	nothing := mat.NewVecDense(1, []float64{1})
	var step ts.TimeStep
	var done bool
	for i := 0; i < 5; i++ {
		step, done, err = env.Step(nothing)
		require.NoError(t, err)
	}
	assert.True(t, done)
	assert.Equal(t, ts.CutoffEnd, step.EndType)
	assert.Equal(t, 5, step.Number)
}

func TestDirectSeqMonotonicAcrossResets(t *testing.T) {
	env := NewDirect(zeroStarter{}, 1.0, 2)

	var last uint64
	for episode := 0; episode < 3; episode++ {
		step, err := env.Reset()
		require.NoError(t, err)
		assert.Greater(t, step.Seq, last)
		last = step.Seq

		for {
			next, done, err := env.Step(mat.NewVecDense(1, []float64{1}))
			require.NoError(t, err)
			assert.Greater(t, next.Seq, last)
			last = next.Seq
			if done {
				break
			}
		}
	}
}

func TestDirectStepBeforeResetFails(t *testing.T) {
	env := NewDirect(zeroStarter{}, 1.0, 0)
	_, _, err := env.Step(mat.NewVecDense(1, []float64{1}))
	require.Error(t, err)
}
