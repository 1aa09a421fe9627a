// Package snake implements the adapter for the snake game backend. The
// backend owns the game rules; this package only decodes its state
// stream, encodes velocity commands, and scores transitions.
package snake

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/roboenv/environment"
	"github.com/samuelfneumann/roboenv/environment/bridge"
	"github.com/samuelfneumann/roboenv/transport"
)

// Playfield and command bounds
const (
	FieldWidth  float64 = 10.0
	FieldHeight float64 = 10.0

	MaxLinearVelocity  float64 = 3.0
	MaxAngularVelocity float64 = 3.0
)

// Observation feature indices
const (
	HeadX = iota
	HeadY
	Heading
	GoalX
	GoalY
	Score
	Alive

	numFeatures
)

// Reward shaping: one point of score is worth ScoreReward; every step
// costs StepPenalty to discourage stalling.
const (
	ScoreReward float64 = 10.0
	StepPenalty float64 = 0.01
)

// Topics used by the snake backend
const (
	StateTopic  = "snake/state"
	ActionTopic = "snake/cmd_vel"
	ResetTopic  = "snake/reset"
)

// stateMsg is the wire form of a snake state message
type stateMsg struct {
	Pose struct {
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Theta float64 `json:"theta"`
	} `json:"pose"`
	Goal struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"goal"`
	Score int  `json:"score"`
	Alive bool `json:"alive"`
}

// actionMsg is the wire form of a snake velocity command
type actionMsg struct {
	Linear  float64 `json:"linear"`
	Angular float64 `json:"angular"`
}

// Snake drives the snake game over a transport. Observations are the
// 7-vector (head x, head y, heading, goal x, goal y, score, alive);
// actions are (linear velocity, angular velocity) commands. Reward is
// the score gained since the previous observation, minus a small
// per-step penalty; episodes end when the snake dies.
type Snake struct {
	*bridge.Bridge
}

// New constructs a transport-backed Snake
func New(trans transport.Transport, config bridge.Config,
	opts ...bridge.Option) (*Snake, error) {
	b, err := bridge.New(domain{}, trans, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("snake: %w", err)
	}
	return &Snake{b}, nil
}

type domain struct{}

func (domain) Name() string       { return "snake" }
func (domain) StateTopic() string { return StateTopic }

func (domain) Decode(msg transport.Message) (*mat.VecDense, error) {
	var s stateMsg
	if err := json.Unmarshal(msg.Payload, &s); err != nil {
		return nil, fmt.Errorf("snake: bad state message: %w", err)
	}

	alive := 0.0
	if s.Alive {
		alive = 1.0
	}

	obs := mat.NewVecDense(numFeatures, nil)
	obs.SetVec(HeadX, s.Pose.X)
	obs.SetVec(HeadY, s.Pose.Y)
	obs.SetVec(Heading, s.Pose.Theta)
	obs.SetVec(GoalX, s.Goal.X)
	obs.SetVec(GoalY, s.Goal.Y)
	obs.SetVec(Score, float64(s.Score))
	obs.SetVec(Alive, alive)

	return obs, nil
}

func (domain) EncodeAction(a *mat.VecDense) (string, []byte, error) {
	payload, err := json.Marshal(actionMsg{
		Linear:  a.AtVec(0),
		Angular: a.AtVec(1),
	})
	if err != nil {
		return "", nil, err
	}
	return ActionTopic, payload, nil
}

func (d domain) ValidateAction(a *mat.VecDense) error {
	if a.Len() != 2 {
		return fmt.Errorf("snake: action must have 2 elements, got %v",
			a.Len())
	}
	if !d.ActionSpec().Contains(a) {
		return fmt.Errorf(
			"snake: velocity command (%v, %v) ∉ [0, %v] × [-%v, %v]",
			a.AtVec(0), a.AtVec(1), MaxLinearVelocity,
			MaxAngularVelocity, MaxAngularVelocity)
	}
	return nil
}

func (domain) ResetMessage() (string, []byte, bool) {
	return ResetTopic, []byte(`{}`), true
}

func (domain) Reward(prev, _, next *mat.VecDense) float64 {
	scored := next.AtVec(Score) - prev.AtVec(Score)
	return scored*ScoreReward - StepPenalty
}

func (domain) Done(_, _, next *mat.VecDense) bool {
	return next.AtVec(Alive) == 0
}

func (domain) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(numFeatures, nil)
	lower := mat.NewVecDense(numFeatures, []float64{
		0, 0, -math.Pi, 0, 0, 0, 0,
	})
	upper := mat.NewVecDense(numFeatures, []float64{
		FieldWidth, FieldHeight, math.Pi, FieldWidth, FieldHeight,
		math.MaxFloat64, 1,
	})

	return env.NewSpec(shape, env.Observation, lower, upper, env.Continuous)
}

func (domain) ActionSpec() env.Spec {
	shape := mat.NewVecDense(2, nil)
	lower := mat.NewVecDense(2, []float64{0, -MaxAngularVelocity})
	upper := mat.NewVecDense(2, []float64{MaxLinearVelocity,
		MaxAngularVelocity})

	return env.NewSpec(shape, env.Action, lower, upper, env.Continuous)
}
