// Package rocketleague implements the adapter for the rocket-league
// robot environment: a single car pushing a ball toward a goal on a
// small field, driven by a simulator or real hardware behind a
// transport.
package rocketleague

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/roboenv/environment"
	"github.com/samuelfneumann/roboenv/environment/bridge"
	"github.com/samuelfneumann/roboenv/transport"
)

// Field geometry in metres (10 ft × 14 ft field, goals on the ±y ends)
const (
	FieldWidth  float64 = 3.048
	FieldLength float64 = 4.2672
	GoalWidth   float64 = 0.8

	// Car command bounds
	MaxThrottle float64 = 1.0
	MaxSteering float64 = 1.0

	// Physical speed bound used for observation specs
	MaxSpeed float64 = 5.0
)

// Observation feature indices
const (
	CarX = iota
	CarY
	CarTheta
	CarVx
	CarVy
	CarOmega
	BallX
	BallY
	BallVx
	BallVy

	numFeatures
)

// Reward constants. Scoring dominates; approach shaping keeps the
// gradient alive early in training.
const (
	GoalReward     float64 = 100.0
	ConcedePenalty float64 = -100.0
	ApproachWeight float64 = 1.0
	StepPenalty    float64 = 0.01
)

// Topics used by the rocket-league backend
const (
	StateTopic  = "rocket_league/state"
	ActionTopic = "rocket_league/effort"
	ResetTopic  = "rocket_league/reset"
)

// pose2D is a planar pose-and-twist on the wire
type pose2D struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
	Vx    float64 `json:"vx"`
	Vy    float64 `json:"vy"`
	Omega float64 `json:"omega"`
}

// stateMsg is the wire form of a rocket-league state message
type stateMsg struct {
	Car  pose2D `json:"car"`
	Ball pose2D `json:"ball"`
}

// actionMsg is the wire form of a car effort command
type actionMsg struct {
	Throttle float64 `json:"throttle"`
	Steering float64 `json:"steering"`
}

// RocketLeague drives the rocket-league environment over a transport.
// Observations are the 10-vector (car x, y, θ, ẋ, ẏ, ω, ball x, y, ẋ,
// ẏ); actions are (throttle, steering), both in [-1, 1]. The agent
// attacks the goal at +y and defends the goal at -y. Reward is
// dominated by scoring and conceding, with dense shaping for moving the
// ball toward the goal; episodes end when the ball crosses either goal
// line.
type RocketLeague struct {
	*bridge.Bridge
}

// New constructs a transport-backed RocketLeague
func New(trans transport.Transport, config bridge.Config,
	opts ...bridge.Option) (*RocketLeague, error) {
	b, err := bridge.New(domain{}, trans, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("rocketleague: %w", err)
	}
	return &RocketLeague{b}, nil
}

type domain struct{}

func (domain) Name() string       { return "rocket_league" }
func (domain) StateTopic() string { return StateTopic }

func (domain) Decode(msg transport.Message) (*mat.VecDense, error) {
	var s stateMsg
	if err := json.Unmarshal(msg.Payload, &s); err != nil {
		return nil, fmt.Errorf("rocketleague: bad state message: %w", err)
	}

	obs := mat.NewVecDense(numFeatures, nil)
	obs.SetVec(CarX, s.Car.X)
	obs.SetVec(CarY, s.Car.Y)
	obs.SetVec(CarTheta, s.Car.Theta)
	obs.SetVec(CarVx, s.Car.Vx)
	obs.SetVec(CarVy, s.Car.Vy)
	obs.SetVec(CarOmega, s.Car.Omega)
	obs.SetVec(BallX, s.Ball.X)
	obs.SetVec(BallY, s.Ball.Y)
	obs.SetVec(BallVx, s.Ball.Vx)
	obs.SetVec(BallVy, s.Ball.Vy)

	return obs, nil
}

func (domain) EncodeAction(a *mat.VecDense) (string, []byte, error) {
	payload, err := json.Marshal(actionMsg{
		Throttle: a.AtVec(0),
		Steering: a.AtVec(1),
	})
	if err != nil {
		return "", nil, err
	}
	return ActionTopic, payload, nil
}

func (d domain) ValidateAction(a *mat.VecDense) error {
	if a.Len() != 2 {
		return fmt.Errorf("rocketleague: action must have 2 elements, "+
			"got %v", a.Len())
	}
	if !d.ActionSpec().Contains(a) {
		return fmt.Errorf("rocketleague: effort (%v, %v) ∉ [-1, 1]²",
			a.AtVec(0), a.AtVec(1))
	}
	return nil
}

func (domain) ResetMessage() (string, []byte, bool) {
	return ResetTopic, []byte(`{}`), true
}

// ballToGoal returns the distance from the ball to the centre of the
// attacked goal mouth
func ballToGoal(obs *mat.VecDense) float64 {
	dx := obs.AtVec(BallX)
	dy := FieldLength/2 - obs.AtVec(BallY)
	return math.Hypot(dx, dy)
}

// scored reports whether the ball has crossed a goal line, and which
func scored(obs *mat.VecDense) (won, lost bool) {
	if math.Abs(obs.AtVec(BallX)) > GoalWidth/2 {
		return false, false
	}
	switch {
	case obs.AtVec(BallY) >= FieldLength/2:
		return true, false
	case obs.AtVec(BallY) <= -FieldLength/2:
		return false, true
	}
	return false, false
}

func (domain) Reward(prev, _, next *mat.VecDense) float64 {
	if won, lost := scored(next); won {
		return GoalReward
	} else if lost {
		return ConcedePenalty
	}

	// Dense shaping: positive when the ball moved toward the goal.
	progress := ballToGoal(prev) - ballToGoal(next)
	return progress*ApproachWeight - StepPenalty
}

func (domain) Done(_, _, next *mat.VecDense) bool {
	won, lost := scored(next)
	return won || lost
}

func (domain) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(numFeatures, nil)
	lower := mat.NewVecDense(numFeatures, []float64{
		-FieldWidth / 2, -FieldLength / 2, -math.Pi,
		-MaxSpeed, -MaxSpeed, -math.MaxFloat64,
		-FieldWidth / 2, -FieldLength / 2, -MaxSpeed, -MaxSpeed,
	})
	upper := mat.NewVecDense(numFeatures, []float64{
		FieldWidth / 2, FieldLength / 2, math.Pi,
		MaxSpeed, MaxSpeed, math.MaxFloat64,
		FieldWidth / 2, FieldLength / 2, MaxSpeed, MaxSpeed,
	})

	return env.NewSpec(shape, env.Observation, lower, upper, env.Continuous)
}

func (domain) ActionSpec() env.Spec {
	shape := mat.NewVecDense(2, nil)
	lower := mat.NewVecDense(2, []float64{-MaxThrottle, -MaxSteering})
	upper := mat.NewVecDense(2, []float64{MaxThrottle, MaxSteering})

	return env.NewSpec(shape, env.Action, lower, upper, env.Continuous)
}
