package motion

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/faults"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/steering"
)

// Controller is what the course script drives.  Every call blocks until the
// motion is finished and leaves all motors stopped.
type Controller struct {
	geometry    chassis.Geometry
	loop        *Loop
	switcher    *steering.Switcher
	orientation drivetrain.Orientation
	log         *zap.SugaredLogger
}

func NewController(
	geometry chassis.Geometry,
	loop *Loop,
	switcher *steering.Switcher,
	initial drivetrain.Orientation,
	log *zap.SugaredLogger,
) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{
		geometry:    geometry,
		loop:        loop,
		switcher:    switcher,
		orientation: initial,
		log:         log,
	}
}

func (c *Controller) Orientation() drivetrain.Orientation {
	return c.orientation
}

func (c *Controller) MoveForward(ctx context.Context, percent, inches float64) error {
	return c.translate(ctx, drivetrain.Forward, percent, inches)
}

func (c *Controller) MoveBackward(ctx context.Context, percent, inches float64) error {
	return c.translate(ctx, drivetrain.Backward, percent, inches)
}

func (c *Controller) RotateLeft(ctx context.Context, percent, degrees float64) error {
	return c.rotate(ctx, drivetrain.RotateLeft, percent, degrees)
}

func (c *Controller) RotateRight(ctx context.Context, percent, degrees float64) error {
	return c.rotate(ctx, drivetrain.RotateRight, percent, degrees)
}

func (c *Controller) translate(ctx context.Context, m drivetrain.Motion, percent, inches float64) error {
	target, err := c.geometry.CountsForDistance(inches)
	if err != nil {
		return err
	}
	c.log.Infow("Moving", "motion", m, "percent", percent, "inches", inches, "counts", target)
	return c.run(ctx, m, percent, target)
}

func (c *Controller) rotate(ctx context.Context, m drivetrain.Motion, percent, degrees float64) error {
	target, err := c.geometry.CountsForRotation(degrees)
	if err != nil {
		return err
	}
	c.log.Infow("Turning", "motion", m, "percent", percent, "degrees", degrees, "counts", target)
	return c.run(ctx, m, percent, target)
}

func (c *Controller) run(ctx context.Context, m drivetrain.Motion, percent float64, target int64) error {
	res, err := c.loop.Run(ctx, Request{
		Motion:      m,
		Percent:     percent,
		Target:      target,
		Orientation: c.orientation,
	})
	if err != nil {
		c.log.Errorw("Motion failed", "motion", m, "error", err, "counts", res.Counts)
		return err
	}
	c.log.Infow("Motion done", "motion", m, "iterations", res.Iterations, "corrections", res.Corrections)
	return nil
}

// SwitchOrientation swings the wheels into the other drive geometry.
func (c *Controller) SwitchOrientation(ctx context.Context, step float64) error {
	o, err := c.switcher.Switch(ctx, c.orientation, c.orientation.Other(), step)
	c.orientation = o
	return err
}

// Stop zeroes every motor.
func (c *Controller) Stop() error {
	var err error
	for _, w := range c.loop.Mapper.Topology.Driven {
		if e := c.loop.HW.Stop(w); e != nil {
			err = multierr.Append(err, faults.Hardware("stop", w.String(), e))
		}
	}
	return err
}
