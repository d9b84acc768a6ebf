package hardware

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/encoder"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/pca9685"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/picobldc"
)

// Wiring describes how the robot's devices are connected.
type Wiring struct {
	I2CBus string `yaml:"i2c_bus"`
	// Wheel name (front_right, ...) to GPIO pin name.
	Encoders      map[string]string `yaml:"encoders"`
	ServoPort     int               `yaml:"servo_port"`
	ServoMinPulse time.Duration     `yaml:"servo_min_pulse"`
	ServoMaxPulse time.Duration     `yaml:"servo_max_pulse"`
	// Motor controller stops the motors if not written within this time.
	Watchdog time.Duration `yaml:"watchdog"`
	// Print motor commands instead of driving the motor controller.
	DummyMotors bool `yaml:"dummy_motors"`
}

func DefaultWiring() Wiring {
	return Wiring{
		I2CBus: "/dev/i2c-1",
		Encoders: map[string]string{
			"front_right": "GPIO17",
			"back_left":   "GPIO27",
		},
		ServoPort:     7,
		ServoMinPulse: pca9685.DefaultMinPulse,
		ServoMaxPulse: pca9685.DefaultMaxPulse,
		Watchdog:      500 * time.Millisecond,
	}
}

func (w Wiring) Validate() error {
	for name := range w.Encoders {
		if _, err := ParseWheel(name); err != nil {
			return errors.Wrap(err, "encoders")
		}
	}
	if w.ServoPort < 0 || w.ServoPort >= pca9685.NumPorts {
		return fmt.Errorf("servo_port %d out of range", w.ServoPort)
	}
	if w.ServoMaxPulse <= w.ServoMinPulse {
		return fmt.Errorf("servo_max_pulse %v must exceed servo_min_pulse %v", w.ServoMaxPulse, w.ServoMinPulse)
	}
	if w.Watchdog < 0 {
		return fmt.Errorf("watchdog %v must not be negative", w.Watchdog)
	}
	return nil
}

// Robot is the real drivetrain: motors on the Pico-BLDC, digital encoders on
// GPIO pins and the steering servo on the PCA9685.
type Robot struct {
	motors   picobldc.Interface
	encoders PerWheel[*encoder.Counter]
	servoPWM pca9685.Interface
	servo    *pca9685.Servo

	powers PerWheel[float64]
	log    *zap.SugaredLogger
}

var (
	_ DriveHardware = (*Robot)(nil)
	_ Actuator      = (*Robot)(nil)
)

func Open(ctx context.Context, wiring Wiring, log *zap.SugaredLogger) (r *Robot, err error) {
	r = &Robot{log: log}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, r.Close())
			r = nil
		}
	}()

	if wiring.DummyMotors {
		r.motors = picobldc.Dummy()
	} else {
		pico, err := picobldc.New(wiring.I2CBus)
		if err != nil {
			return r, err
		}
		r.motors = pico
		if err := pico.SetWatchdog(wiring.Watchdog); err != nil {
			return r, errors.Wrap(err, "setting motor watchdog")
		}
	}

	for name, pin := range wiring.Encoders {
		w, err := ParseWheel(name)
		if err != nil {
			return r, err
		}
		log.Infow("Opening encoder", "wheel", w, "pin", pin)
		if r.encoders[w], err = encoder.Open(ctx, pin); err != nil {
			return r, err
		}
	}

	if r.servoPWM, err = pca9685.New(wiring.I2CBus); err != nil {
		return r, err
	}
	if err := r.servoPWM.Configure(); err != nil {
		return r, errors.Wrap(err, "configuring PCA9685")
	}
	r.servo = &pca9685.Servo{
		Board:    r.servoPWM,
		Port:     wiring.ServoPort,
		MinPulse: wiring.ServoMinPulse,
		MaxPulse: wiring.ServoMaxPulse,
	}
	return r, nil
}

func (r *Robot) ResetCount(w Wheel) error {
	e, err := r.encoder(w)
	if err != nil {
		return err
	}
	e.Reset()
	return nil
}

func (r *Robot) Count(w Wheel) (int64, error) {
	e, err := r.encoder(w)
	if err != nil {
		return 0, err
	}
	return e.Count(), nil
}

func (r *Robot) encoder(w Wheel) (*encoder.Counter, error) {
	if !w.Valid() || r.encoders[w] == nil {
		return nil, fmt.Errorf("no encoder fitted to wheel %v", w)
	}
	return r.encoders[w], nil
}

func (r *Robot) SetPower(w Wheel, percent float64) error {
	if !w.Valid() {
		return fmt.Errorf("no such wheel %v", w)
	}
	if percent < -100 || percent > 100 {
		return fmt.Errorf("power %v out of range", percent)
	}
	r.powers[w] = percent
	return r.writeSpeeds()
}

func (r *Robot) Stop(w Wheel) error {
	return r.SetPower(w, 0)
}

// StopAll zeroes every motor in one write.
func (r *Robot) StopAll() error {
	r.powers = PerWheel[float64]{}
	return r.writeSpeeds()
}

func (r *Robot) writeSpeeds() error {
	return r.motors.SetMotorSpeeds(
		picobldc.SpeedFromPercent(r.powers[FrontLeft]),
		picobldc.SpeedFromPercent(r.powers[FrontRight]),
		picobldc.SpeedFromPercent(r.powers[BackLeft]),
		picobldc.SpeedFromPercent(r.powers[BackRight]),
	)
}

func (r *Robot) Poll() error {
	// Rewriting the speeds keeps the motor watchdog fed.
	if err := r.writeSpeeds(); err != nil {
		return err
	}
	return r.motors.CheckStatus()
}

func (r *Robot) SetPosition(degrees float64) error {
	return r.servo.SetPosition(degrees)
}

func (r *Robot) Close() error {
	var err error
	if r.motors != nil {
		err = multierr.Append(err, r.StopAll())
		err = multierr.Append(err, r.motors.Close())
	}
	for _, e := range r.encoders {
		if e != nil {
			err = multierr.Append(err, e.Close())
		}
	}
	if r.servoPWM != nil {
		err = multierr.Append(err, r.servoPWM.Close())
	}
	return err
}

// BusVoltage reads the battery voltage from the motor controller, if it
// reports one.
func (r *Robot) BusVoltage() (float64, error) {
	v, ok := r.motors.(interface{ BattVolts() (float64, error) })
	if !ok {
		return 0, fmt.Errorf("motor controller doesn't report voltage")
	}
	return v.BattVolts()
}
