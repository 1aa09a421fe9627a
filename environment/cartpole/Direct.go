package cartpole

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/roboenv/environment"
	ts "github.com/samuelfneumann/roboenv/timestep"
	"github.com/samuelfneumann/roboenv/utils/floatutils"
)

// Direct steps the classic cartpole dynamics in-process, with the same
// observation layout, action set, and reward scheme as the
// transport-backed Cartpole. It exists for fast local iteration: no
// backend, no transport, fully deterministic given a seeded Starter.
//
// Because there is no asynchronous data source, Step never blocks and
// never times out.
type Direct struct {
	starter env.Starter
	enders  []env.Ender
	dom     domain // reward/done semantics shared with the adapter

	discount float64
	seq      uint64
	started  bool
	lastStep ts.TimeStep
}

// NewDirect constructs a Direct cartpole. Start states are drawn from
// starter; episodes end on the shared failure thresholds or after
// maxEpisodeSteps (zero for no cap).
func NewDirect(starter env.Starter, discount float64,
	maxEpisodeSteps int) *Direct {
	enders := []env.Ender{
		env.NewIntervalLimit(
			[]r1.Interval{
				{Min: -FailPosition, Max: FailPosition},
				{Min: -FailAngle, Max: FailAngle},
			},
			[]int{0, 2},
			ts.TerminalStateEnd,
		),
		env.NewStepLimit(maxEpisodeSteps),
	}

	return &Direct{
		starter:  starter,
		enders:   enders,
		discount: discount,
	}
}

// Reset starts a new episode from a freshly sampled start state
func (d *Direct) Reset() (ts.TimeStep, error) {
	start := d.starter.Start()
	state := mat.NewVecDense(4, nil)
	state.CopyVec(start)

	if err := validateState(state); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	d.seq++
	step := ts.New(ts.First, 0, d.discount, state, 0)
	step.Seq = d.seq
	d.lastStep = step
	d.started = true

	return step, nil
}

// Step takes one environmental step given action a and returns the
// resulting timestep and whether the episode ended
func (d *Direct) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if !d.started || d.lastStep.Last() {
		return ts.TimeStep{}, false, fmt.Errorf(
			"step: no running episode; call Reset")
	}
	if err := d.dom.ValidateAction(a); err != nil {
		return ts.TimeStep{}, false, err
	}

	// Get state variables
	state := d.lastStep.Observation
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	// Magnify the action force in the appropriate direction
	var force float64
	switch int(a.AtVec(0)) {
	case 0:
		force = -ForceMag
	case 2:
		force = ForceMag
	default:
		force = 0.0 // No action taken
	}

	// Calculate physical variables to determine next state
	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)

	totalMass := PoleMass + CartMass
	poleMassOverLength := PoleMass / HalfPoleLength

	temp := (force + poleMassOverLength*thDot*thDot*sinTheta) / totalMass
	thAcc := (Gravity*sinTheta - cosTheta*temp) / (HalfPoleLength *
		(4.0/3.0 - PoleMass*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassOverLength*thAcc*cosTheta/totalMass

	// Update state variables using Euler kinematic integration
	x += Dt * xDot
	x = floatutils.ClipInterval(x,
		r1.Interval{Min: -PositionBounds, Max: PositionBounds})

	xDot += Dt * xAcc

	th += Dt * thDot
	th = normalizeAngle(th, r1.Interval{Min: -AngleBounds, Max: AngleBounds})

	thDot += Dt * thAcc

	newState := mat.NewVecDense(4, []float64{x, xDot, th, thDot})
	reward := d.dom.Reward(state, a, newState)

	d.seq++
	nextStep := ts.New(ts.Mid, reward, d.discount, newState,
		d.lastStep.Number+1)
	nextStep.Seq = d.seq

	for _, ender := range d.enders {
		if ender.End(&nextStep) {
			break
		}
	}

	d.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// CurrentTimeStep returns the last timestep produced by Reset or Step
func (d *Direct) CurrentTimeStep() ts.TimeStep {
	return d.lastStep
}

// ObservationSpec returns the observation specification of the
// environment
func (d *Direct) ObservationSpec() env.Spec {
	return d.dom.ObservationSpec()
}

// ActionSpec returns the action specification of the environment
func (d *Direct) ActionSpec() env.Spec {
	return d.dom.ActionSpec()
}

// DiscountSpec returns the discounting specification of the environment
func (d *Direct) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{d.discount})

	return env.NewSpec(shape, env.Discount, bound, bound, env.Continuous)
}

// Close implements environment.Environment. Direct holds no resources.
func (d *Direct) Close() error { return nil }

func (d *Direct) String() string {
	msg := "Cartpole  |  Position: %v  | Speed: %v  |  Angle: %v" +
		"  |  Angular Velocity: %v"

	state := d.lastStep.Observation
	return fmt.Sprintf(msg, state.AtVec(0), state.AtVec(1), state.AtVec(2),
		state.AtVec(3))
}

// validateState ensures that a state observation is between the
// physical bounds of the cartpole
func validateState(obs mat.Vector) error {
	if obs.Len() != 4 {
		return fmt.Errorf("state must have 4 features, got %v", obs.Len())
	}
	if !floatutils.WithinInterval(obs.AtVec(0),
		r1.Interval{Min: -PositionBounds, Max: PositionBounds}) {
		return fmt.Errorf("position %v is not within ±%v", obs.AtVec(0),
			PositionBounds)
	}
	if !floatutils.WithinInterval(obs.AtVec(2),
		r1.Interval{Min: -AngleBounds, Max: AngleBounds}) {
		return fmt.Errorf("angle %v is not within ±%v", obs.AtVec(2),
			AngleBounds)
	}
	return nil
}

// normalizeAngle normalizes the pole angle to the appropriate limits
func normalizeAngle(th float64, angleBounds r1.Interval) float64 {
	if angleBounds.Max != -angleBounds.Min {
		panic("angle bounds should be centered around 0")
	}

	if th > angleBounds.Max {
		divisor := int(th / angleBounds.Max)
		return -math.Pi + th - (angleBounds.Max * float64(divisor))
	} else if th < angleBounds.Min {
		divisor := int(th / angleBounds.Min)
		return math.Pi + th - (angleBounds.Min * float64(divisor))
	}
	return th
}
