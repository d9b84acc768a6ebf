package chassis

import (
	"math"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/faults"
)

const (
	DefaultWheelRadiusIn float64 = 1.375
	DefaultCountsPerRev          = 48
	DefaultRobotRadiusIn float64 = 4.0
)

// Geometry is the fixed physical description of the robot used to turn
// displacements into encoder counts.
type Geometry struct {
	WheelRadiusIn float64 `yaml:"wheel_radius_in"`
	CountsPerRev  int     `yaml:"counts_per_rev"`
	// Distance from the centre of rotation to the wheels.
	RobotRadiusIn float64 `yaml:"robot_radius_in"`
}

func Default() Geometry {
	return Geometry{
		WheelRadiusIn: DefaultWheelRadiusIn,
		CountsPerRev:  DefaultCountsPerRev,
		RobotRadiusIn: DefaultRobotRadiusIn,
	}
}

func (g Geometry) Validate() error {
	if !(g.WheelRadiusIn > 0) || math.IsInf(g.WheelRadiusIn, 0) {
		return faults.Invalid("wheel radius %v must be positive", g.WheelRadiusIn)
	}
	if g.CountsPerRev <= 0 {
		return faults.Invalid("counts per revolution %v must be positive", g.CountsPerRev)
	}
	if !(g.RobotRadiusIn > 0) || math.IsInf(g.RobotRadiusIn, 0) {
		return faults.Invalid("robot radius %v must be positive", g.RobotRadiusIn)
	}
	return nil
}

// WheelCircumIn is the distance covered by one wheel revolution.
func (g Geometry) WheelCircumIn() float64 {
	return 2 * math.Pi * g.WheelRadiusIn
}

// CountsForDistance returns the encoder count reached after a wheel has
// rolled the given distance.  Direction is carried separately so the
// distance must be a non-negative magnitude.
func (g Geometry) CountsForDistance(inches float64) (int64, error) {
	if inches < 0 || math.IsNaN(inches) || math.IsInf(inches, 0) {
		return 0, faults.Invalid("distance %v inches", inches)
	}
	return int64(math.Floor(inches * float64(g.CountsPerRev) / g.WheelCircumIn())), nil
}

// CountsForRotation converts a spin in place into the arc each wheel rolls
// at the robot radius, then into counts.
func (g Geometry) CountsForRotation(degrees float64) (int64, error) {
	if degrees < 0 || math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return 0, faults.Invalid("rotation %v degrees", degrees)
	}
	return g.CountsForDistance(g.RobotRadiusIn * degrees * math.Pi / 180)
}
