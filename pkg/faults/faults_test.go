package faults

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestHardwareWrapsOnce(t *testing.T) {
	test.That(t, Hardware("set power", "FR", nil), test.ShouldBeNil)

	err := Hardware("set power", "FR", io.ErrUnexpectedEOF)
	test.That(t, IsHardwareFault(err), test.ShouldBeTrue)
	test.That(t, errors.Is(err, io.ErrUnexpectedEOF), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldEqual, "hardware fault: set power FR: unexpected EOF")

	again := Hardware("stop", "BL", errors.Wrap(err, "stopping"))
	var hf *HardwareFault
	test.That(t, errors.As(again, &hf), test.ShouldBeTrue)
	test.That(t, hf.Op, test.ShouldEqual, "set power")
	test.That(t, hf.Wheel, test.ShouldEqual, "FR")
}

func TestInvalid(t *testing.T) {
	err := Invalid("percent %v out of range", 120)
	test.That(t, errors.Is(err, ErrInvalidParameter), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldEqual, "percent 120 out of range: invalid parameter")
	test.That(t, IsHardwareFault(err), test.ShouldBeFalse)

	err = Hardware("poll", "", io.EOF)
	test.That(t, err.Error(), test.ShouldEqual, "hardware fault: poll: EOF")
}
