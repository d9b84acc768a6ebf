package pca9685

import (
	"fmt"
	"time"
)

const (
	// Calibrated end stops for the steering servo.
	DefaultMinPulse = 725 * time.Microsecond
	DefaultMaxPulse = 2468 * time.Microsecond

	ServoRangeDegrees = 180.0
)

// Servo is a hobby servo on one port of the board, with its pulse widths
// calibrated so that 0 and 180 degrees are the mechanical end stops.
type Servo struct {
	Board    Interface
	Port     int
	MinPulse time.Duration
	MaxPulse time.Duration
}

func (s *Servo) PulseFor(degrees float64) (time.Duration, error) {
	if degrees < 0 || degrees > ServoRangeDegrees {
		return 0, fmt.Errorf("servo position %v outside 0-%v degrees", degrees, ServoRangeDegrees)
	}
	if s.MaxPulse <= s.MinPulse {
		return 0, fmt.Errorf("servo calibration min %v >= max %v", s.MinPulse, s.MaxPulse)
	}
	span := float64(s.MaxPulse - s.MinPulse)
	return s.MinPulse + time.Duration(span*degrees/ServoRangeDegrees), nil
}

func (s *Servo) SetPosition(degrees float64) error {
	pulse, err := s.PulseFor(degrees)
	if err != nil {
		return err
	}
	return s.Board.SetPulse(s.Port, pulse)
}
