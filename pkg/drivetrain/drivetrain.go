// Package drivetrain maps a requested motion onto signed per-wheel motor
// powers for each supported wheel layout.
package drivetrain

import (
	"fmt"
	"math"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/faults"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/hardware"
)

type Motion int

const (
	Forward Motion = iota
	Backward
	RotateLeft
	RotateRight
)

func (m Motion) String() string {
	switch m {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case RotateLeft:
		return "rotate-left"
	case RotateRight:
		return "rotate-right"
	}
	return fmt.Sprintf("motion(%d)", int(m))
}

func (m Motion) IsRotation() bool {
	return m == RotateLeft || m == RotateRight
}

// Orientation is which of the two steering geometries the wheels are in.
// Primary has the wheels aligned with the course's Y axis.
type Orientation int

const (
	Primary Orientation = iota
	Alternate
)

func (o Orientation) String() string {
	switch o {
	case Primary:
		return "primary"
	case Alternate:
		return "alternate"
	}
	return fmt.Sprintf("orientation(%d)", int(o))
}

func (o Orientation) Other() Orientation {
	if o == Primary {
		return Alternate
	}
	return Primary
}

func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "primary", "vertical":
		return Primary, nil
	case "alternate", "horizontal":
		return Alternate, nil
	}
	return 0, fmt.Errorf("unknown orientation %q", s)
}

// Topology describes a wheel layout.
type Topology struct {
	Name string
	// Wheels with a motor.
	Driven []hardware.Wheel
	// Wheels whose encoders decide when a motion is complete.
	Reference []hardware.Wheel
	// Diagonal pair that carries the skew offset and the live correction.
	// Empty for layouts without one.
	Corrected []hardware.Wheel
	// Wheels that take the negative sign when driving forward in the
	// primary orientation.
	ForwardNegative []hardware.Wheel
}

var (
	// TwoWheel has motors and encoders on two opposite corners.
	TwoWheel = Topology{
		Name:            "two-wheel",
		Driven:          []hardware.Wheel{hardware.FrontRight, hardware.BackLeft},
		Reference:       []hardware.Wheel{hardware.FrontRight, hardware.BackLeft},
		ForwardNegative: []hardware.Wheel{hardware.FrontRight},
	}

	// FourWheel drives every corner; encoders are on the front-right /
	// back-left diagonal and the other diagonal is trimmed.
	FourWheel = Topology{
		Name:            "four-wheel",
		Driven:          hardware.AllWheels,
		Reference:       []hardware.Wheel{hardware.FrontRight, hardware.BackLeft},
		Corrected:       []hardware.Wheel{hardware.FrontLeft, hardware.BackRight},
		ForwardNegative: []hardware.Wheel{hardware.FrontRight, hardware.BackRight},
	}
)

func ParseTopology(name string) (Topology, error) {
	switch name {
	case TwoWheel.Name:
		return TwoWheel, nil
	case FourWheel.Name:
		return FourWheel, nil
	}
	return Topology{}, fmt.Errorf("unknown topology %q", name)
}

func (t Topology) HasCorrection() bool {
	return len(t.Corrected) > 0
}

func (t Topology) IsCorrected(w hardware.Wheel) bool {
	return contains(t.Corrected, w)
}

func contains(ws []hardware.Wheel, w hardware.Wheel) bool {
	for _, x := range ws {
		if x == w {
			return true
		}
	}
	return false
}

// Mapper turns motions into wheel powers for one topology.
type Mapper struct {
	Topology Topology
	Tuning   *Tuning
}

func NewMapper(t Topology, tuning *Tuning) *Mapper {
	return &Mapper{Topology: t, Tuning: tuning}
}

func ValidatePercent(percent float64) error {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return faults.Invalid("percent %v outside 0-100", percent)
	}
	return nil
}

// Map returns the signed power for every wheel.  Wheels the topology doesn't
// drive are left at zero.
func (m *Mapper) Map(motion Motion, percent float64, o Orientation) (hardware.PerWheel[float64], error) {
	var powers hardware.PerWheel[float64]
	if err := ValidatePercent(percent); err != nil {
		return powers, err
	}
	if percent == 0 {
		return powers, nil
	}
	nominal, err := m.Nominal(motion, percent, o)
	if err != nil {
		return powers, err
	}
	for _, w := range m.Topology.Driven {
		sign := m.Sign(w, motion, o)
		magnitude := percent
		if m.Topology.IsCorrected(w) {
			magnitude = nominal
		}
		powers[w] = Clamp(sign * magnitude)
	}
	return powers, nil
}

// Sign returns +1 or -1 for the wheel's direction of rotation.
func (m *Mapper) Sign(w hardware.Wheel, motion Motion, o Orientation) float64 {
	switch motion {
	case RotateLeft:
		return -1
	case RotateRight:
		return 1
	}
	sign := 1.0
	if contains(m.Topology.ForwardNegative, w) {
		sign = -sign
	}
	if o == Alternate {
		sign = -sign
	}
	if motion == Backward {
		sign = -sign
	}
	return sign
}

// Nominal is the unsigned power for the corrected pair: the requested
// percent plus the skew offset for this orientation and direction.
func (m *Mapper) Nominal(motion Motion, percent float64, o Orientation) (float64, error) {
	switch motion {
	case Forward, Backward:
	case RotateLeft, RotateRight:
		return percent, nil
	default:
		return 0, faults.Invalid("unknown motion %v", motion)
	}
	if !m.Topology.HasCorrection() || percent == 0 {
		return percent, nil
	}
	return percent + m.Tuning.Offset(o, motion), nil
}

func Clamp(percent float64) float64 {
	return math.Max(-100, math.Min(100, percent))
}
