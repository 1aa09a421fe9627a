package snake

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/roboenv/environment/bridge"
	"github.com/samuelfneumann/roboenv/transport"
)

func stateJSON(t *testing.T, x, y, theta, gx, gy float64, score int,
	alive bool) []byte {
	t.Helper()
	var s stateMsg
	s.Pose.X, s.Pose.Y, s.Pose.Theta = x, y, theta
	s.Goal.X, s.Goal.Y = gx, gy
	s.Score, s.Alive = score, alive

	payload, err := json.Marshal(s)
	require.NoError(t, err)
	return payload
}

func TestDecodeState(t *testing.T) {
	obs, err := domain{}.Decode(transport.Message{
		Payload: stateJSON(t, 1, 2, 0.5, 8, 9, 3, true),
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, obs.AtVec(HeadX))
	assert.Equal(t, 2.0, obs.AtVec(HeadY))
	assert.Equal(t, 0.5, obs.AtVec(Heading))
	assert.Equal(t, 8.0, obs.AtVec(GoalX))
	assert.Equal(t, 9.0, obs.AtVec(GoalY))
	assert.Equal(t, 3.0, obs.AtVec(Score))
	assert.Equal(t, 1.0, obs.AtVec(Alive))

	_, err = domain{}.Decode(transport.Message{Payload: []byte("{")})
	assert.Error(t, err)
}

func TestValidateAction(t *testing.T) {
	d := domain{}

	require.NoError(t, d.ValidateAction(
		mat.NewVecDense(2, []float64{1.0, -2.0})))

	bad := []*mat.VecDense{
		mat.NewVecDense(1, []float64{1}),
		mat.NewVecDense(2, []float64{-0.5, 0}),                     // reverse
		mat.NewVecDense(2, []float64{MaxLinearVelocity + 1, 0}),    // too fast
		mat.NewVecDense(2, []float64{1, MaxAngularVelocity + 0.1}), // spin
	}
	for i, a := range bad {
		assert.Error(t, d.ValidateAction(a), "case %v", i)
	}
}

func TestReward(t *testing.T) {
	d := domain{}
	a := mat.NewVecDense(2, []float64{1, 0})

	decode := func(score int, alive bool) *mat.VecDense {
		obs, err := d.Decode(transport.Message{
			Payload: stateJSON(t, 5, 5, 0, 1, 1, score, alive),
		})
		require.NoError(t, err)
		return obs
	}

	// Eating the goal is worth ScoreReward minus the step penalty.
	assert.InDelta(t, ScoreReward-StepPenalty,
		d.Reward(decode(0, true), a, decode(1, true)), 1e-9)

	// An uneventful step costs the step penalty.
	assert.InDelta(t, -StepPenalty,
		d.Reward(decode(2, true), a, decode(2, true)), 1e-9)
}

func TestDone(t *testing.T) {
	d := domain{}
	a := mat.NewVecDense(2, []float64{1, 0})

	alive, err := d.Decode(transport.Message{
		Payload: stateJSON(t, 5, 5, 0, 1, 1, 0, true)})
	require.NoError(t, err)
	dead, err := d.Decode(transport.Message{
		Payload: stateJSON(t, 5, 5, 0, 1, 1, 0, false)})
	require.NoError(t, err)

	assert.False(t, d.Done(alive, a, alive))
	assert.True(t, d.Done(alive, a, dead))
}

func TestSnakeOverTransport(t *testing.T) {
	loop := transport.NewLoopback()

	// Backend: the snake eats on the second action and dies on the
	// third.
	actions := 0
	require.NoError(t, loop.Subscribe(ResetTopic,
		func(transport.Message) {
			actions = 0
			loop.Publish(StateTopic, stateJSON(t, 5, 5, 0, 7, 7, 0, true))
		}))
	require.NoError(t, loop.Subscribe(ActionTopic,
		func(transport.Message) {
			actions++
			score := 0
			if actions >= 2 {
				score = 1
			}
			loop.Publish(StateTopic,
				stateJSON(t, 5, 6, 0, 7, 7, score, actions < 3))
		}))

	cfg := bridge.DefaultConfig()
	cfg.StepTimeout = 100 * time.Millisecond
	cfg.ResetTimeout = 100 * time.Millisecond

	env, err := New(loop, cfg)
	require.NoError(t, err)
	defer env.Close()

	_, err = env.Reset()
	require.NoError(t, err)

	forward := mat.NewVecDense(2, []float64{1, 0})

	step, done, err := env.Step(forward)
	require.NoError(t, err)
	assert.False(t, done)
	assert.InDelta(t, -StepPenalty, step.Reward, 1e-9)

	step, done, err = env.Step(forward)
	require.NoError(t, err)
	assert.False(t, done)
	assert.InDelta(t, ScoreReward-StepPenalty, step.Reward, 1e-9)

	_, done, err = env.Step(forward)
	require.NoError(t, err)
	assert.True(t, done, "death ends the episode")
}

func TestRenderWritesPNG(t *testing.T) {
	loop := transport.NewLoopback()
	require.NoError(t, loop.Subscribe(ResetTopic,
		func(transport.Message) {
			loop.Publish(StateTopic, stateJSON(t, 5, 5, 0.3, 2, 8, 0, true))
		}))

	cfg := bridge.DefaultConfig()
	cfg.ResetTimeout = 100 * time.Millisecond

	env, err := New(loop, cfg)
	require.NoError(t, err)
	defer env.Close()

	// Rendering before any observation fails cleanly.
	path := filepath.Join(t.TempDir(), "snake.png")
	require.Error(t, env.Render(path))

	before, err := env.Reset()
	require.NoError(t, err)

	require.NoError(t, env.Render(path))
	assert.FileExists(t, path)

	// Rendering must not mutate episode state.
	assert.Equal(t, before.Seq, env.CurrentTimeStep().Seq)
	assert.Equal(t, before.Number, env.CurrentTimeStep().Number)
}
