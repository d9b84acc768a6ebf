// Package course runs a scripted sequence of motions.
package course

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/faults"
)

type Action string

const (
	Forward  Action = "forward"
	Backward Action = "backward"
	Left     Action = "left"
	Right    Action = "right"
	Switch   Action = "switch"
	Pause    Action = "pause"
)

// Step is one line of a course script.  Which fields matter depends on the
// action: forward and backward take percent and inches, left and right take
// percent and degrees, switch takes a servo step size and pause a duration.
type Step struct {
	Action   Action        `yaml:"action"`
	Percent  float64       `yaml:"percent,omitempty"`
	Inches   float64       `yaml:"inches,omitempty"`
	Degrees  float64       `yaml:"degrees,omitempty"`
	Step     float64       `yaml:"step,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"`
}

func (s Step) String() string {
	switch s.Action {
	case Forward, Backward:
		return fmt.Sprintf("%s %.0f%% %.1fin", s.Action, s.Percent, s.Inches)
	case Left, Right:
		return fmt.Sprintf("%s %.0f%% %.0fdeg", s.Action, s.Percent, s.Degrees)
	case Switch:
		return fmt.Sprintf("switch step %.1f", s.Step)
	case Pause:
		return fmt.Sprintf("pause %v", s.Duration)
	}
	return string(s.Action)
}

func (s Step) Validate() error {
	switch s.Action {
	case Forward, Backward:
		if err := drivetrain.ValidatePercent(s.Percent); err != nil {
			return err
		}
		if s.Inches < 0 {
			return faults.Invalid("distance %v inches", s.Inches)
		}
	case Left, Right:
		if err := drivetrain.ValidatePercent(s.Percent); err != nil {
			return err
		}
		if s.Degrees < 0 {
			return faults.Invalid("rotation %v degrees", s.Degrees)
		}
	case Switch:
		if !(s.Step > 0) {
			return faults.Invalid("step size %v must be positive", s.Step)
		}
	case Pause:
		if s.Duration < 0 {
			return faults.Invalid("pause %v must not be negative", s.Duration)
		}
	default:
		return faults.Invalid("unknown action %q", s.Action)
	}
	return nil
}

// Validate checks every step so that a bad script is rejected before the
// robot moves.
func Validate(steps []Step) error {
	for i, s := range steps {
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "step %d (%s)", i+1, s.Action)
		}
	}
	return nil
}

// Default is the standard run: out and back along both axes at half power,
// switching orientation between legs.
func Default() []Step {
	pause := Step{Action: Pause, Duration: 2 * time.Second}
	sw := Step{Action: Switch, Step: 2.0}
	return []Step{
		{Action: Forward, Percent: 50, Inches: 15},
		pause, sw, pause,
		{Action: Forward, Percent: 50, Inches: 15},
		pause, sw, pause,
		{Action: Backward, Percent: 50, Inches: 15},
		pause, sw, pause,
		{Action: Backward, Percent: 50, Inches: 15},
	}
}

// Driver is the motion interface a course is run against.
type Driver interface {
	MoveForward(ctx context.Context, percent, inches float64) error
	MoveBackward(ctx context.Context, percent, inches float64) error
	RotateLeft(ctx context.Context, percent, degrees float64) error
	RotateRight(ctx context.Context, percent, degrees float64) error
	SwitchOrientation(ctx context.Context, step float64) error
	Orientation() drivetrain.Orientation
}

type Runner struct {
	Driver Driver
	Clock  clock.Clock
	Log    *zap.SugaredLogger
	Status interface{ Status(string) }
	// OnStep, if set, is called before each step starts.
	OnStep func(i int, s Step)
}

// Run validates the script and then executes it, stopping at the first error.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	if err := Validate(steps); err != nil {
		return err
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	for i, s := range steps {
		if r.OnStep != nil {
			r.OnStep(i, s)
		}
		log.Infow("Course step", "n", i+1, "of", len(steps), "step", s.String(), "orientation", r.Driver.Orientation())
		if r.Status != nil {
			r.Status.Status(fmt.Sprintf("%d/%d %v", i+1, len(steps), s))
		}
		if err := r.step(ctx, s); err != nil {
			return errors.Wrapf(err, "step %d (%v)", i+1, s)
		}
	}
	log.Infow("Course complete", "steps", len(steps))
	return nil
}

func (r *Runner) step(ctx context.Context, s Step) error {
	switch s.Action {
	case Forward:
		return r.Driver.MoveForward(ctx, s.Percent, s.Inches)
	case Backward:
		return r.Driver.MoveBackward(ctx, s.Percent, s.Inches)
	case Left:
		return r.Driver.RotateLeft(ctx, s.Percent, s.Degrees)
	case Right:
		return r.Driver.RotateRight(ctx, s.Percent, s.Degrees)
	case Switch:
		return r.Driver.SwitchOrientation(ctx, s.Step)
	case Pause:
		clk := r.Clock
		if clk == nil {
			clk = clock.New()
		}
		timer := clk.Timer(s.Duration)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	return faults.Invalid("unknown action %q", s.Action)
}
