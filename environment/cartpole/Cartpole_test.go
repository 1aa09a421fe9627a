package cartpole

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/roboenv/environment/bridge"
	"github.com/samuelfneumann/roboenv/transport"
)

func stateJSON(x, xDot, theta, thetaDot float64) []byte {
	payload, _ := json.Marshal(stateMsg{
		X: x, XDot: xDot, Theta: theta, ThetaDot: thetaDot,
	})
	return payload
}

func TestDecodeState(t *testing.T) {
	obs, err := domain{}.Decode(transport.Message{
		Payload: stateJSON(0.1, -0.2, 0.05, 1.5),
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, -0.2, 0.05, 1.5}, obs.RawVector().Data)

	_, err = domain{}.Decode(transport.Message{Payload: []byte("not json")})
	assert.Error(t, err)
}

// TestActionRoundTrip checks that a validated action survives encoding:
// the payload decodes back to the same semantic value the validator
// checked.
func TestActionRoundTrip(t *testing.T) {
	d := domain{}
	for a := MinDiscreteAction; a <= MaxDiscreteAction; a++ {
		vec := mat.NewVecDense(1, []float64{float64(a)})
		require.NoError(t, d.ValidateAction(vec))

		topic, payload, err := d.EncodeAction(vec)
		require.NoError(t, err)
		assert.Equal(t, ActionTopic, topic)

		var decoded actionMsg
		require.NoError(t, json.Unmarshal(payload, &decoded))
		assert.Equal(t, a, decoded.Action)
	}
}

func TestValidateAction(t *testing.T) {
	d := domain{}

	bad := []*mat.VecDense{
		mat.NewVecDense(1, []float64{-1}),
		mat.NewVecDense(1, []float64{3}),
		mat.NewVecDense(1, []float64{1.5}),
		mat.NewVecDense(2, []float64{0, 1}),
	}
	for i, a := range bad {
		assert.Error(t, d.ValidateAction(a), "case %v", i)
	}
}

func TestRewardAndDone(t *testing.T) {
	d := domain{}
	a := mat.NewVecDense(1, []float64{1})

	upright := mat.NewVecDense(4, []float64{0, 0, 0, 0})
	assert.Equal(t, 1.0, d.Reward(upright, a, upright))
	assert.False(t, d.Done(upright, a, upright))

	fallen := mat.NewVecDense(4, []float64{0, 0, FailAngle * 1.1, 0})
	assert.Equal(t, -1.0, d.Reward(upright, a, fallen))
	assert.True(t, d.Done(upright, a, fallen))

	offTrack := mat.NewVecDense(4, []float64{FailPosition * 1.1, 0, 0, 0})
	assert.True(t, d.Done(upright, a, offTrack))
}

// TestCartpoleOverTransport runs the adapter against a scripted backend
// on a loopback transport.
func TestCartpoleOverTransport(t *testing.T) {
	loop := transport.NewLoopback()

	// Backend: upright on reset, then a widening tilt per action.
	theta := 0.0
	require.NoError(t, loop.Subscribe(ResetTopic,
		func(transport.Message) {
			theta = 0
			loop.Publish(StateTopic, stateJSON(0, 0, theta, 0))
		}))
	require.NoError(t, loop.Subscribe(ActionTopic,
		func(transport.Message) {
			theta += 0.08
			loop.Publish(StateTopic, stateJSON(0, 0, theta, 0))
		}))

	cfg := bridge.DefaultConfig()
	cfg.StepTimeout = 100 * time.Millisecond
	cfg.ResetTimeout = 100 * time.Millisecond

	env, err := New(loop, cfg)
	require.NoError(t, err)
	defer env.Close()

	first, err := env.Reset()
	require.NoError(t, err)
	assert.Equal(t, 0, first.Number)
	assert.Equal(t, 4, first.Observation.Len())

	var done bool
	steps := 0
	for !done {
		var err error
		_, done, err = env.Step(mat.NewVecDense(1, []float64{1}))
		require.NoError(t, err)
		steps++
		require.Less(t, steps, 10, "tilting pole must end the episode")
	}

	// 0.08 per step crosses FailAngle (~0.209) on the third step.
	assert.Equal(t, 3, steps)
	last := env.CurrentTimeStep()
	assert.Equal(t, -1.0, last.Reward)
	assert.True(t, last.TerminalState())
}

func TestSpecs(t *testing.T) {
	d := domain{}

	obsSpec := d.ObservationSpec()
	assert.Equal(t, 4, obsSpec.Shape.Len())

	actionSpec := d.ActionSpec()
	assert.Equal(t, 1, actionSpec.Shape.Len())
	assert.Equal(t, float64(MinDiscreteAction),
		actionSpec.LowerBound.AtVec(0))
	assert.Equal(t, float64(MaxDiscreteAction),
		actionSpec.UpperBound.AtVec(0))
}

// Guards against the wire format drifting: external backends depend on
// these exact field names.
func TestWireFormat(t *testing.T) {
	payload, err := json.Marshal(stateMsg{X: 1, XDot: 2, Theta: 3,
		ThetaDot: 4})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"x":1,"x_dot":2,"theta":3,"theta_dot":4}`,
		string(payload))
}
