// Package motion runs the encoder feedback loop that carries out a single
// translation or rotation, and the Controller the course script drives.
package motion

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/faults"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/hardware"
)

const (
	DefaultStallIterations = 2000
	DefaultStatusEvery     = 50
)

// StatusSink receives human-readable progress.  It has no effect on control.
type StatusSink interface {
	Status(msg string)
}

type State int

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Band is the state of the three-band drift corrector.
type Band int

const (
	BandNominal Band = iota
	BandDecrease
	BandIncrease
)

func (b Band) String() string {
	switch b {
	case BandDecrease:
		return "decrease"
	case BandIncrease:
		return "increase"
	}
	return "nominal"
}

// CorrectionBand compares the two reference encoders: when the front-right
// count leads the back-left one by more than margin the trimmed pair is slowed,
// when it trails by more than margin it is sped up.
func CorrectionBand(frontRight, backLeft, margin int64) Band {
	switch d := frontRight - backLeft; {
	case d > margin:
		return BandDecrease
	case d < -margin:
		return BandIncrease
	}
	return BandNominal
}

// LoopConfig bounds the convergence loop.
type LoopConfig struct {
	// Poll interval between iterations.  Zero polls flat out.
	PollInterval time.Duration `yaml:"poll_interval"`
	// Give up after this many consecutive iterations without any reference
	// encoder advancing.
	StallIterations int `yaml:"stall_iterations"`
	// Give up if a single motion takes longer than this.  Zero disables.
	MaxDuration time.Duration `yaml:"max_duration"`
	// Report status every this many iterations.
	StatusEvery int `yaml:"status_every"`
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		PollInterval:    5 * time.Millisecond,
		StallIterations: DefaultStallIterations,
		MaxDuration:     30 * time.Second,
		StatusEvery:     DefaultStatusEvery,
	}
}

func (c LoopConfig) Validate() error {
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval %v must not be negative", c.PollInterval)
	}
	if c.StallIterations <= 0 {
		return fmt.Errorf("stall_iterations %v must be positive", c.StallIterations)
	}
	if c.MaxDuration < 0 {
		return fmt.Errorf("max_duration %v must not be negative", c.MaxDuration)
	}
	return nil
}

// Request is one motion command.
type Request struct {
	Motion      drivetrain.Motion
	Percent     float64
	Target      int64
	Orientation drivetrain.Orientation
}

// Result describes how a motion finished.
type Result struct {
	Iterations  int
	Counts      hardware.PerWheel[int64]
	Corrections int
}

// Loop is the convergence loop for one drivetrain.
type Loop struct {
	HW     hardware.DriveHardware
	Mapper *drivetrain.Mapper
	Config LoopConfig
	Clock  clock.Clock
	Status StatusSink
	Log    *zap.SugaredLogger

	// OnIteration, if set, is called after each iteration's counts are
	// read and the corrector has run.
	OnIteration func(it Iteration)
}

// Iteration is a snapshot of one pass round the loop.
type Iteration struct {
	N      int
	State  State
	Counts hardware.PerWheel[int64]
	Band   Band
	Powers hardware.PerWheel[float64]
}

func (l *Loop) Run(ctx context.Context, req Request) (res Result, err error) {
	if err := drivetrain.ValidatePercent(req.Percent); err != nil {
		return res, err
	}
	if req.Target < 0 {
		req.Target = 0
	}
	powers, err := l.Mapper.Map(req.Motion, req.Percent, req.Orientation)
	if err != nil {
		return res, err
	}
	topo := l.Mapper.Topology
	log := l.logger().With("motion", req.Motion, "target", req.Target)

	// From here on every exit path leaves the motors stopped.
	defer func() {
		if stopErr := l.stopAll(); stopErr != nil {
			err = multierr.Combine(err, stopErr)
		}
		l.status(fmt.Sprintf("%v done after %d iterations: %v", req.Motion, res.Iterations, res.Counts))
	}()

	for _, w := range topo.Driven {
		if err := l.HW.ResetCount(w); err != nil && contains(topo.Reference, w) {
			return res, faults.Hardware("reset count", w.String(), err)
		}
	}
	if req.Target == 0 {
		// Nothing to travel, so the motors are never energised.
		powers = hardware.PerWheel[float64]{}
	}
	for _, w := range topo.Driven {
		if err := l.HW.SetPower(w, powers[w]); err != nil {
			return res, faults.Hardware("set power", w.String(), err)
		}
	}
	log.Debugw("Motion started", "powers", powers)
	l.status(fmt.Sprintf("%v %.0f%% to %d counts", req.Motion, req.Percent, req.Target))

	correcting := topo.HasCorrection() && req.Motion == drivetrain.Forward && req.Percent > 0
	nominal, _ := l.Mapper.Nominal(req.Motion, req.Percent, req.Orientation)
	band := BandNominal

	clk := l.clock()
	start := clk.Now()
	var lastRef hardware.PerWheel[int64]
	sinceProgress := 0

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := l.HW.Poll(); err != nil {
			return res, faults.Hardware("poll", "", err)
		}
		for _, w := range topo.Driven {
			c, err := l.HW.Count(w)
			if err != nil {
				if !contains(topo.Reference, w) {
					// Counts off the reference pair are informational.
					continue
				}
				return res, faults.Hardware("read count", w.String(), err)
			}
			res.Counts[w] = c
		}

		state := Running
		if req.Percent == 0 || reached(topo.Reference, res.Counts, req.Target) {
			state = Stopped
		}
		res.Iterations++

		if state == Running && correcting {
			newBand := CorrectionBand(res.Counts[hardware.FrontRight], res.Counts[hardware.BackLeft],
				int64(l.Mapper.Tuning.CorrectionMargin.Get()))
			if newBand != band {
				if err := l.applyBand(newBand, nominal, req, &powers); err != nil {
					return res, err
				}
				log.Debugw("Correction band changed", "band", newBand, "counts", res.Counts)
				band = newBand
				res.Corrections++
			}
		}

		if l.OnIteration != nil {
			l.OnIteration(Iteration{N: res.Iterations, State: state, Counts: res.Counts, Band: band, Powers: powers})
		}
		if state == Stopped {
			log.Debugw("Motion complete", "iterations", res.Iterations, "counts", res.Counts)
			return res, nil
		}

		if progressed(topo.Reference, lastRef, res.Counts, req.Target) {
			sinceProgress = 0
		} else {
			sinceProgress++
		}
		lastRef = res.Counts
		if sinceProgress >= l.Config.StallIterations {
			return res, errors.Wrapf(faults.ErrStalledMotion,
				"no encoder progress for %d iterations at %v", sinceProgress, res.Counts)
		}
		if l.Config.MaxDuration > 0 && clk.Since(start) > l.Config.MaxDuration {
			return res, errors.Wrapf(faults.ErrStalledMotion,
				"motion took longer than %v at %v", l.Config.MaxDuration, res.Counts)
		}

		if l.Config.StatusEvery > 0 && res.Iterations%l.Config.StatusEvery == 0 {
			l.status(fmt.Sprintf("%v target %d: %v", req.Motion, req.Target, refCounts(topo.Reference, res.Counts)))
		}
		if l.Config.PollInterval > 0 {
			clk.Sleep(l.Config.PollInterval)
		}
	}
}

func (l *Loop) applyBand(b Band, nominal float64, req Request, powers *hardware.PerWheel[float64]) error {
	magnitude := nominal
	step := l.Mapper.Tuning.CorrectionStep.Get()
	switch b {
	case BandDecrease:
		magnitude -= step
	case BandIncrease:
		magnitude += step
	}
	for _, w := range l.Mapper.Topology.Corrected {
		p := drivetrain.Clamp(l.Mapper.Sign(w, req.Motion, req.Orientation) * magnitude)
		if err := l.HW.SetPower(w, p); err != nil {
			return faults.Hardware("set power", w.String(), err)
		}
		powers[w] = p
	}
	return nil
}

// stopAll zeroes every driven motor, carrying on past failures.
func (l *Loop) stopAll() error {
	var err error
	for _, w := range l.Mapper.Topology.Driven {
		if stopErr := l.HW.Stop(w); stopErr != nil {
			err = multierr.Append(err, faults.Hardware("stop", w.String(), stopErr))
		}
	}
	return err
}

func (l *Loop) status(msg string) {
	if l.Status != nil {
		l.Status.Status(msg)
	}
}

func (l *Loop) clock() clock.Clock {
	if l.Clock == nil {
		return clock.New()
	}
	return l.Clock
}

func (l *Loop) logger() *zap.SugaredLogger {
	if l.Log == nil {
		return zap.NewNop().Sugar()
	}
	return l.Log
}

func reached(ref []hardware.Wheel, counts hardware.PerWheel[int64], target int64) bool {
	for _, w := range ref {
		if counts[w] < target {
			return false
		}
	}
	return true
}

// progressed reports whether any wheel still short of the target has moved.
// A wheel that has finished can't mask one that is stuck.
func progressed(ref []hardware.Wheel, before, after hardware.PerWheel[int64], target int64) bool {
	for _, w := range ref {
		if before[w] < target && after[w] > before[w] {
			return true
		}
	}
	return false
}

func refCounts(ref []hardware.Wheel, counts hardware.PerWheel[int64]) string {
	s := ""
	for i, w := range ref {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%v=%d", w, counts[w])
	}
	return s
}

func contains(ws []hardware.Wheel, w hardware.Wheel) bool {
	for _, x := range ws {
		if x == w {
			return true
		}
	}
	return false
}
