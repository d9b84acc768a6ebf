package hardware

import "fmt"

type Wheel int

const (
	FrontLeft Wheel = iota
	FrontRight
	BackLeft
	BackRight

	NumWheels = 4
)

var AllWheels = []Wheel{FrontLeft, FrontRight, BackLeft, BackRight}

func (w Wheel) String() string {
	switch w {
	case FrontLeft:
		return "FL"
	case FrontRight:
		return "FR"
	case BackLeft:
		return "BL"
	case BackRight:
		return "BR"
	}
	return fmt.Sprintf("wheel(%d)", int(w))
}

func (w Wheel) Valid() bool {
	return w >= FrontLeft && w <= BackRight
}

// PerWheel holds one value per wheel, indexed by Wheel.
type PerWheel[T any] [NumWheels]T

// DriveHardware is everything the motion loops need from the drivetrain.
// Wheels without a motor or encoder fitted may return errors; callers only
// touch the wheels their topology drives.
type DriveHardware interface {
	// ResetCount zeroes the wheel's encoder.
	ResetCount(w Wheel) error
	// Count returns the encoder count since the last reset.  It never
	// decreases, whichever way the wheel turns.
	Count(w Wheel) (int64, error)

	// SetPower sets the motor to a signed percentage, -100..100.
	SetPower(w Wheel, percent float64) error
	// Stop is equivalent to SetPower(w, 0).
	Stop(w Wheel) error

	// Poll is called once per control loop iteration before counts are
	// read.  It's where backends refresh cached state and report faults.
	Poll() error
}

// Actuator is the steering servo.  Positions are in calibrated degrees.
type Actuator interface {
	SetPosition(degrees float64) error
}

var wheelNames = map[string]Wheel{
	"front_left":  FrontLeft,
	"front_right": FrontRight,
	"back_left":   BackLeft,
	"back_right":  BackRight,
}

// ParseWheel accepts the config file spelling of a wheel, e.g. "front_right".
func ParseWheel(name string) (Wheel, error) {
	w, ok := wheelNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown wheel %q", name)
	}
	return w, nil
}
