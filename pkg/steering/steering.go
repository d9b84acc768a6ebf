// Package steering swings the wheels between the two drive geometries by
// sweeping the steering servo while the wheels roll slowly.
package steering

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/faults"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/hardware"
)

const (
	DefaultPrimaryPosition   = 131.0
	DefaultAlternatePosition = 41.0
)

// Calibration holds the servo positions for each orientation.
type Calibration struct {
	PrimaryPosition   float64 `yaml:"primary_position"`
	AlternatePosition float64 `yaml:"alternate_position"`
}

func DefaultCalibration() Calibration {
	return Calibration{
		PrimaryPosition:   DefaultPrimaryPosition,
		AlternatePosition: DefaultAlternatePosition,
	}
}

func (c Calibration) Validate() error {
	if c.PrimaryPosition == c.AlternatePosition {
		return fmt.Errorf("primary and alternate positions are both %v", c.PrimaryPosition)
	}
	for _, p := range []float64{c.PrimaryPosition, c.AlternatePosition} {
		if math.IsNaN(p) || p < 0 || p > 180 {
			return fmt.Errorf("servo position %v outside 0-180", p)
		}
	}
	return nil
}

// SweepEnd is where a sweep from one orientation to the other in steps of
// step finishes, including any overshoot of the last step.
func (c Calibration) SweepEnd(from, to drivetrain.Orientation, step float64) float64 {
	start, end := c.Position(from), c.Position(to)
	if start == end {
		return start
	}
	direction := 1.0
	if end < start {
		direction = -1.0
	}
	steps := math.Ceil(direction * (end - start) / step)
	return start + direction*steps*step
}

// CheckStep rejects a step size whose overshoot would drive the servo past
// its 0-180 range in either direction.
func (c Calibration) CheckStep(step float64) error {
	if math.IsNaN(step) || math.IsInf(step, 0) || step <= 0 {
		return faults.Invalid("step size %v must be positive", step)
	}
	for _, from := range []drivetrain.Orientation{drivetrain.Primary, drivetrain.Alternate} {
		if p := c.SweepEnd(from, from.Other(), step); p < 0 || p > 180 {
			return faults.Invalid("step size %v overshoots to %v degrees switching to %v", step, p, from.Other())
		}
	}
	return nil
}

func (c Calibration) Position(o drivetrain.Orientation) float64 {
	if o == drivetrain.Alternate {
		return c.AlternatePosition
	}
	return c.PrimaryPosition
}

type Switcher struct {
	HW          hardware.DriveHardware
	Servo       hardware.Actuator
	Wheels      []hardware.Wheel
	Calibration Calibration
	// Drive power while sweeping; sign is chosen by the direction of the sweep.
	Power  func() float64
	Status interface{ Status(string) }
	Log    *zap.SugaredLogger

	// Iterations taken by the last sweep.
	Iterations int
}

// Switch sweeps from the from endpoint to the to endpoint in steps of step
// degrees and returns the new orientation.  The last step may overshoot the
// endpoint; there's no position feedback, so completion is by step count.
// On error the wheels are stopped and from is returned.
func (s *Switcher) Switch(ctx context.Context, from, to drivetrain.Orientation, step float64) (o drivetrain.Orientation, err error) {
	s.Iterations = 0
	if err := s.Calibration.CheckStep(step); err != nil {
		return from, err
	}
	if from == to {
		s.logger().Infow("Already in orientation", "orientation", to)
		return to, nil
	}

	start, end := s.Calibration.Position(from), s.Calibration.Position(to)
	direction := 1.0
	if end < start {
		direction = -1.0
	}
	power := drivetrain.Clamp(direction * s.power())
	s.logger().Infow("Switching orientation", "from", from, "to", to, "start", start, "end", end, "step", step)

	defer func() {
		var stopErr error
		for _, w := range s.Wheels {
			if e := s.HW.Stop(w); e != nil {
				stopErr = multierr.Append(stopErr, faults.Hardware("stop", w.String(), e))
			}
		}
		if stopErr != nil {
			err = multierr.Combine(err, stopErr)
		}
		if err != nil {
			o = from
		}
	}()

	for _, w := range s.Wheels {
		if err := s.HW.SetPower(w, power); err != nil {
			return from, faults.Hardware("set power", w.String(), err)
		}
	}

	position := start
	for direction*(end-position) > 0 {
		if err := ctx.Err(); err != nil {
			return from, err
		}
		position += direction * step
		s.Iterations++
		if s.Status != nil {
			s.Status.Status(fmt.Sprintf("Steering position: %.1f", position))
		}
		if err := s.Servo.SetPosition(position); err != nil {
			return from, faults.Hardware("set position", "", err)
		}
	}
	s.logger().Infow("Orientation switched", "orientation", to, "position", position, "iterations", s.Iterations)
	return to, nil
}

func (s *Switcher) power() float64 {
	if s.Power == nil {
		return drivetrain.DefaultSwitchPower
	}
	return s.Power()
}

func (s *Switcher) logger() *zap.SugaredLogger {
	if s.Log == nil {
		return zap.NewNop().Sugar()
	}
	return s.Log
}
