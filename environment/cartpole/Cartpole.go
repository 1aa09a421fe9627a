// Package cartpole implements the cartpole environment in two forms: a
// transport-backed adapter that drives a cartpole running behind a
// message bus (simulated or real), and a direct variant that steps the
// classic closed-form dynamics in-process.
package cartpole

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/roboenv/environment"
	"github.com/samuelfneumann/roboenv/environment/bridge"
	"github.com/samuelfneumann/roboenv/transport"
	"github.com/samuelfneumann/roboenv/utils/floatutils"
)

const (
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Bounds (+/-) on state variables
	PositionBounds        float64 = 4.8
	SpeedBounds           float64 = math.MaxFloat64
	AngleBounds           float64 = math.Pi
	AngularVelocityBounds float64 = math.MaxFloat64

	// Failure thresholds ending an episode
	FailPosition float64 = 2.4
	FailAngle    float64 = 12 * 2 * math.Pi / 360

	// Discrete actions
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 2
)

// Topics used by the transport-backed adapter
const (
	StateTopic  = "cartpole/state"
	ActionTopic = "cartpole/action"
	ResetTopic  = "cartpole/reset"
)

// stateMsg is the wire form of a cartpole state message
type stateMsg struct {
	X        float64 `json:"x"`
	XDot     float64 `json:"x_dot"`
	Theta    float64 `json:"theta"`
	ThetaDot float64 `json:"theta_dot"`
}

// actionMsg is the wire form of a cartpole action command
type actionMsg struct {
	Action int `json:"action"`
}

// Cartpole drives a cartpole backend over a transport. The observation
// is the 4-vector (x, ẋ, θ, θ̇); actions are discrete forces:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Do nothing
//	  2		Accelerate right
//
// Rewards are +1 while the pole is within the failure angle and -1
// otherwise. Episodes end when the cart leaves ±FailPosition or the
// pole falls past ±FailAngle.
type Cartpole struct {
	*bridge.Bridge
}

// New constructs a transport-backed Cartpole
func New(trans transport.Transport, config bridge.Config,
	opts ...bridge.Option) (*Cartpole, error) {
	b, err := bridge.New(domain{}, trans, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("cartpole: %w", err)
	}
	return &Cartpole{b}, nil
}

// domain supplies the cartpole codecs and semantics to the bridge
type domain struct{}

func (domain) Name() string       { return "cartpole" }
func (domain) StateTopic() string { return StateTopic }

func (domain) Decode(msg transport.Message) (*mat.VecDense, error) {
	var s stateMsg
	if err := json.Unmarshal(msg.Payload, &s); err != nil {
		return nil, fmt.Errorf("cartpole: bad state message: %w", err)
	}
	return mat.NewVecDense(4, []float64{s.X, s.XDot, s.Theta,
		s.ThetaDot}), nil
}

func (domain) EncodeAction(a *mat.VecDense) (string, []byte, error) {
	payload, err := json.Marshal(actionMsg{Action: int(a.AtVec(0))})
	if err != nil {
		return "", nil, err
	}
	return ActionTopic, payload, nil
}

func (d domain) ValidateAction(a *mat.VecDense) error {
	if a.Len() != 1 {
		return fmt.Errorf("cartpole: action must have 1 element, got %v",
			a.Len())
	}
	action := a.AtVec(0)
	if action != math.Trunc(action) {
		return fmt.Errorf("cartpole: action must be an integer, got %v",
			action)
	}
	if !d.ActionSpec().Contains(a) {
		return fmt.Errorf("cartpole: action %v ∉ {0, 1, 2}", int(action))
	}
	return nil
}

func (domain) ResetMessage() (string, []byte, bool) {
	return ResetTopic, []byte(`{}`), true
}

func (domain) Reward(_, _, next *mat.VecDense) float64 {
	// Angle of 0 is pointing straight up, so we want angles to be
	// less than the fail angle
	if math.Abs(next.AtVec(2)) < FailAngle {
		return 1.0
	}
	return -1.0
}

func (domain) Done(_, _, next *mat.VecDense) bool {
	return !floatutils.WithinInterval(next.AtVec(0),
		r1.Interval{Min: -FailPosition, Max: FailPosition}) ||
		!floatutils.WithinInterval(next.AtVec(2),
			r1.Interval{Min: -FailAngle, Max: FailAngle})
}

func (domain) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(4, nil)
	lower := mat.NewVecDense(4, []float64{-PositionBounds, -SpeedBounds,
		-AngleBounds, -AngularVelocityBounds})
	upper := mat.NewVecDense(4, []float64{PositionBounds, SpeedBounds,
		AngleBounds, AngularVelocityBounds})

	return env.NewSpec(shape, env.Observation, lower, upper, env.Continuous)
}

func (domain) ActionSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lower := mat.NewVecDense(1, []float64{float64(MinDiscreteAction)})
	upper := mat.NewVecDense(1, []float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lower, upper, env.Discrete)
}
