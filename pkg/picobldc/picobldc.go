// Package picobldc drives the four-channel Pico-BLDC motor controller over I2C.
package picobldc

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x42

	// Full scale motor speed in either direction.
	MotorFullRange = 0x1000
)

type Register byte

const (
	RegCtrl Register = iota
	RegStatus
	RegWatchdogTimeout
	RegFaultCount

	RegMot0V
	RegMot1V
	RegMot2V
	RegMot3V

	RegMot0Calib
	RegMot1Calib
	RegMot2Calib
	RegMot3Calib

	RegBattV // LSB=4mV
)

const BattVLSB = 0.004

const (
	RegCtrlEnableI2CControl uint16 = 1 << iota
	RegCtrlRun
	RegCtrlDoCalib
	RegCtrlReset
	RegCtrlWatchdogEnable
)

type StatusFlag uint16

const (
	RegStatusFault StatusFlag = 1 << iota
	RegStatusCalibDone
	RegStatusWatchdogExpired
)

var (
	ErrFault           = errors.New("Pico-BLDC reported a fault")
	ErrWatchdogExpired = errors.New("Pico-BLDC watchdog expired")
	ErrNotCalibrated   = errors.New("Pico-BLDC not calibrated")
)

type Interface interface {
	SetMotorSpeeds(frontLeft, frontRight, backLeft, backRight int16) error
	CheckStatus() error
	Close() error
}

type PicoBLDC struct {
	dev *i2c.Device

	lastConfigWord  uint16
	lastConfigTime  time.Time
	watchdogEnabled bool
}

var _ Interface = (*PicoBLDC)(nil)

func New(bus string) (*PicoBLDC, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: bus}, DefaultAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "opening Pico-BLDC on %s", bus)
	}
	return &PicoBLDC{dev: dev}, nil
}

// SpeedFromPercent scales a -100..100 percentage onto the controller's
// signed speed range.
func SpeedFromPercent(percent float64) int16 {
	multiplied := percent / 100 * MotorFullRange
	if multiplied <= math.MinInt16 {
		return math.MinInt16
	}
	if multiplied >= math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(multiplied)
}

// SetWatchdog makes the controller stop the motors if it isn't written to
// within the timeout.  Zero disables the watchdog.
func (p *PicoBLDC) SetWatchdog(timeout time.Duration) error {
	if timeout == 0 {
		p.watchdogEnabled = false
		return p.maybeConfigure(false, false)
	}

	ms := timeout.Milliseconds()
	if ms > math.MaxUint16 {
		ms = math.MaxUint16
	}
	if err := p.writeReg(RegWatchdogTimeout, uint16(ms)); err != nil {
		return err
	}
	p.watchdogEnabled = true
	return p.maybeConfigure(false, false)
}

func (p *PicoBLDC) SetMotorSpeeds(frontLeft, frontRight, backLeft, backRight int16) error {
	if err := p.maybeConfigure(false, true); err != nil {
		return err
	}
	// Channel wiring on the robot.
	for _, w := range []struct {
		reg   Register
		value int16
	}{
		{RegMot0V, backRight},
		{RegMot1V, frontRight},
		{RegMot2V, frontLeft},
		{RegMot3V, backLeft},
	} {
		if err := p.writeReg(w.reg, uint16(w.value)); err != nil {
			return err
		}
	}
	return nil
}

// CheckStatus turns the controller's status flags into an error.
func (p *PicoBLDC) CheckStatus() error {
	status, err := p.Status()
	if err != nil {
		return err
	}
	if status&RegStatusFault != 0 {
		return ErrFault
	}
	if p.watchdogEnabled && status&RegStatusWatchdogExpired != 0 {
		return ErrWatchdogExpired
	}
	return nil
}

func (p *PicoBLDC) Status() (StatusFlag, error) {
	raw, err := p.readReg(RegStatus)
	if err != nil {
		return 0, err
	}
	return StatusFlag(raw), nil
}

func (p *PicoBLDC) BattVolts() (float64, error) {
	raw, err := p.readReg(RegBattV)
	if err != nil {
		return 0, err
	}
	return float64(raw) * BattVLSB, nil
}

func (p *PicoBLDC) Close() error {
	err := p.maybeConfigure(true, false)
	if cerr := p.dev.Close(); err == nil {
		err = cerr
	}
	return err
}

func (p *PicoBLDC) maybeConfigure(resetMotorSpeeds bool, enableMotors bool) error {
	var configWord uint16 = RegCtrlEnableI2CControl
	if resetMotorSpeeds {
		configWord |= RegCtrlReset
	}
	if enableMotors {
		configWord |= RegCtrlRun
	}
	if p.watchdogEnabled {
		configWord |= RegCtrlWatchdogEnable
	}

	if configWord == p.lastConfigWord && time.Since(p.lastConfigTime) < 100*time.Millisecond {
		// Written recently.
		return nil
	}

	if p.lastConfigWord == 0 {
		// The controller calibrates on blocks at the bench; refuse to
		// spin uncalibrated motors on the course.
		calib, err := p.readReg(RegMot3Calib)
		if err != nil {
			return err
		}
		if calib == 0 {
			return ErrNotCalibrated
		}
	}

	if err := p.writeReg(RegCtrl, configWord); err != nil {
		return err
	}

	p.lastConfigTime = time.Now()
	p.lastConfigWord = configWord & (^RegCtrlReset) /* Reset flag is not persistent */
	return nil
}

func (p *PicoBLDC) writeReg(reg Register, value uint16) error {
	data := []byte{byte(reg), byte(value >> 8), byte(value)}
	var err error
	for tries := 0; tries < 5; tries++ {
		if err = p.dev.Write(data); err == nil {
			return nil
		}
		time.Sleep(1 * time.Millisecond)
	}
	return errors.Wrapf(err, "writing Pico-BLDC register %d", reg)
}

func (p *PicoBLDC) readReg(reg Register) (uint16, error) {
	var buf [2]byte
	if err := p.dev.ReadReg(byte(reg), buf[:]); err != nil {
		return 0, errors.Wrapf(err, "reading Pico-BLDC register %d", reg)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func Dummy() Interface {
	return &dummyPico{}
}

type dummyPico struct{}

func (p *dummyPico) SetMotorSpeeds(frontLeft, frontRight, backLeft, backRight int16) error {
	fmt.Printf("Dummy picobldc setting motors: fl=%v fr=%v bl=%v br=%v\n", frontLeft, frontRight, backLeft, backRight)
	return nil
}

func (p *dummyPico) CheckStatus() error {
	return nil
}

func (p *dummyPico) Close() error {
	return nil
}
