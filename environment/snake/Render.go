package snake

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"
)

// Rendering parameters
const (
	pixelsPerMetre = 64.0
	headRadius     = 0.25 // metres
	goalRadius     = 0.15 // metres
)

// Render draws the playfield, snake head, heading, and goal from the
// latest observation and writes it to a PNG at path. It reads episode
// state but never mutates it, so it is safe to call between steps.
func (s *Snake) Render(path string) error {
	step := s.CurrentTimeStep()
	if step.Observation == nil {
		return fmt.Errorf("render: no observation to draw")
	}
	obs := step.Observation

	dc := gg.NewContext(int(FieldWidth*pixelsPerMetre),
		int(FieldHeight*pixelsPerMetre))

	// Field
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.Clear()

	// Flip y so the field origin is bottom-left.
	toPx := func(x, y float64) (float64, float64) {
		return x * pixelsPerMetre, (FieldHeight - y) * pixelsPerMetre
	}

	// Goal
	gx, gy := toPx(obs.AtVec(GoalX), obs.AtVec(GoalY))
	dc.SetRGB(0.9, 0.2, 0.2)
	dc.DrawCircle(gx, gy, goalRadius*pixelsPerMetre)
	dc.Fill()

	// Head and heading tick
	hx, hy := toPx(obs.AtVec(HeadX), obs.AtVec(HeadY))
	dc.SetRGB(0.2, 0.8, 0.2)
	dc.DrawCircle(hx, hy, headRadius*pixelsPerMetre)
	dc.Fill()

	theta := obs.AtVec(Heading)
	tipX := hx + math.Cos(theta)*2*headRadius*pixelsPerMetre
	tipY := hy - math.Sin(theta)*2*headRadius*pixelsPerMetre
	dc.SetLineWidth(2)
	dc.DrawLine(hx, hy, tipX, tipY)
	dc.Stroke()

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("render: could not save %v: %w", path, err)
	}
	return nil
}
