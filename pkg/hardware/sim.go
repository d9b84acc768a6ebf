package hardware

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// DefaultCountsPerPercent gives 5 counts per poll at 50% power.
const DefaultCountsPerPercent = 0.1

// Command records one motor write made to the simulator.
type Command struct {
	Poll    int
	Wheel   Wheel
	Percent float64
}

// Sim is a simulated drivetrain and steering servo.  Each Poll advances every
// encoder in proportion to the power applied to its motor.  It is not safe
// for concurrent use; the control loops drive it from a single goroutine.
type Sim struct {
	CountsPerPercent float64
	// Scale multiplies each wheel's speed, to simulate mismatched motors.
	Scale   PerWheel[float64]
	Stalled PerWheel[bool]

	// BeforePoll, if set, runs at the start of every Poll.
	BeforePoll func(s *Sim)

	// Fault injection.  PollFault is returned by every Poll after
	// FaultAfterPolls successful ones.
	PollFault       error
	FaultAfterPolls int
	SetPowerFault   error
	ActuatorFault   error

	Powers    PerWheel[float64]
	Commands  []Command
	Resets    PerWheel[int]
	Polls     int
	Position  float64
	Positions []float64

	counts PerWheel[float64]
	log    *zap.SugaredLogger
}

func NewSim(log *zap.SugaredLogger) *Sim {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Sim{
		CountsPerPercent: DefaultCountsPerPercent,
		log:              log,
	}
	for w := range s.Scale {
		s.Scale[w] = 1
	}
	return s
}

var (
	_ DriveHardware = (*Sim)(nil)
	_ Actuator      = (*Sim)(nil)
)

func (s *Sim) ResetCount(w Wheel) error {
	if !w.Valid() {
		return fmt.Errorf("no such wheel %v", w)
	}
	s.counts[w] = 0
	s.Resets[w]++
	return nil
}

func (s *Sim) Count(w Wheel) (int64, error) {
	if !w.Valid() {
		return 0, fmt.Errorf("no such wheel %v", w)
	}
	return int64(math.Floor(s.counts[w])), nil
}

// SetCount overrides an encoder reading.
func (s *Sim) SetCount(w Wheel, count int64) {
	s.counts[w] = float64(count)
}

func (s *Sim) SetPower(w Wheel, percent float64) error {
	if !w.Valid() {
		return fmt.Errorf("no such wheel %v", w)
	}
	if s.SetPowerFault != nil && percent != 0 {
		return s.SetPowerFault
	}
	if percent < -100 || percent > 100 {
		return fmt.Errorf("power %v out of range", percent)
	}
	s.log.Debugw("SetPower", "wheel", w, "percent", percent)
	s.Powers[w] = percent
	s.Commands = append(s.Commands, Command{Poll: s.Polls, Wheel: w, Percent: percent})
	return nil
}

func (s *Sim) Stop(w Wheel) error {
	return s.SetPower(w, 0)
}

func (s *Sim) Poll() error {
	if s.BeforePoll != nil {
		s.BeforePoll(s)
	}
	if s.PollFault != nil && s.Polls >= s.FaultAfterPolls {
		return s.PollFault
	}
	s.Polls++
	for w := range s.counts {
		if s.Stalled[w] {
			continue
		}
		s.counts[w] += math.Abs(s.Powers[w]) * s.CountsPerPercent * s.Scale[w]
	}
	return nil
}

func (s *Sim) SetPosition(degrees float64) error {
	if s.ActuatorFault != nil {
		return s.ActuatorFault
	}
	s.log.Debugw("SetPosition", "degrees", degrees)
	s.Position = degrees
	s.Positions = append(s.Positions, degrees)
	return nil
}

// AllStopped reports whether every motor is at zero power.
func (s *Sim) AllStopped() bool {
	for _, p := range s.Powers {
		if p != 0 {
			return false
		}
	}
	return true
}

// PowerHistory returns every power written to the wheel, in order.
func (s *Sim) PowerHistory(w Wheel) []float64 {
	var out []float64
	for _, c := range s.Commands {
		if c.Wheel == w {
			out = append(out, c.Percent)
		}
	}
	return out
}
