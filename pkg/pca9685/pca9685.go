package pca9685

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.

	PWMPeriod = 20 * time.Millisecond
	PWMMax    = 4095

	NumPorts = 16
)

type Interface interface {
	Configure() error
	SetPulse(port int, width time.Duration) error
	SetPWM(port int, value float64) error
	Close() error
}

type PCA9685 struct {
	dev *i2c.Device
}

func New(deviceFile string) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, DefaultAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "opening PCA9685 on %s", deviceFile)
	}
	return &PCA9685{dev: dev}, nil
}

func (p *PCA9685) Configure() (err error) {
	// Put device to sleep.
	if err = p.dev.WriteReg(RegMode1, []byte{0x11}); err != nil {
		return
	}
	// Update pre-scaler for 50Hz.
	if err = p.dev.WriteReg(RegPreScale, []byte{0x79}); err != nil {
		return
	}
	// Trigger a reset
	if err = p.dev.WriteReg(RegMode1, []byte{0x01}); err != nil {
		return
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable.
	return p.dev.WriteReg(RegMode1, []byte{0x81})
}

// SetPulse sets the high time of each 20ms period on the port.
func (p *PCA9685) SetPulse(port int, width time.Duration) error {
	if width < 0 || width > PWMPeriod {
		return fmt.Errorf("pulse width %v out of range", width)
	}
	return p.write(port, PulseTicks(width))
}

// SetPWM sets a raw duty cycle, 0..1.
func (p *PCA9685) SetPWM(port int, value float64) error {
	if value < 0 {
		value = 0
	} else if value > 1 {
		value = 1
	}
	return p.write(port, uint16(PWMMax*value))
}

func (p *PCA9685) write(port int, ticks uint16) error {
	if port < 0 || port >= NumPorts {
		return fmt.Errorf("PWM port %d out of range", port)
	}
	addr := RegLEDBase + port*4
	return p.dev.WriteReg(byte(addr), []byte{0, 0, byte(ticks & 0xff), byte(ticks >> 8)})
}

func (p *PCA9685) Close() error {
	return p.dev.Close()
}

// PulseTicks converts a pulse width to the off-time register value.
func PulseTicks(width time.Duration) uint16 {
	return uint16(math.Round(float64(PWMMax) * float64(width) / float64(PWMPeriod)))
}
