package drivetrain

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/faults"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/tunable"
)

func newMapper(t Topology) *Mapper {
	return NewMapper(t, NewTuning(&tunable.Tunables{}))
}

func TestTwoWheelMapping(t *testing.T) {
	m := newMapper(TwoWheel)

	expectPowers(t, m, Forward, 50, Primary, hardware.PerWheel[float64]{0, -50, 50, 0})
	expectPowers(t, m, Forward, 50, Alternate, hardware.PerWheel[float64]{0, 50, -50, 0})
	expectPowers(t, m, Backward, 50, Primary, hardware.PerWheel[float64]{0, 50, -50, 0})
	expectPowers(t, m, Backward, 50, Alternate, hardware.PerWheel[float64]{0, -50, 50, 0})

	// Rotation ignores orientation.
	for _, o := range []Orientation{Primary, Alternate} {
		expectPowers(t, m, RotateLeft, 30, o, hardware.PerWheel[float64]{0, -30, -30, 0})
		expectPowers(t, m, RotateRight, 30, o, hardware.PerWheel[float64]{0, 30, 30, 0})
	}
}

func TestFourWheelDiagonalsOpposite(t *testing.T) {
	m := newMapper(FourWheel)

	p, err := m.Map(Forward, 50, Primary)
	test.That(t, err, test.ShouldBeNil)
	// Front-right / back-left diagonal.
	test.That(t, p[hardware.FrontRight], test.ShouldBeLessThan, 0)
	test.That(t, p[hardware.BackLeft], test.ShouldBeGreaterThan, 0)
	// Front-left / back-right diagonal.
	test.That(t, p[hardware.FrontLeft], test.ShouldBeGreaterThan, 0)
	test.That(t, p[hardware.BackRight], test.ShouldBeLessThan, 0)

	a, err := m.Map(Forward, 50, Alternate)
	test.That(t, err, test.ShouldBeNil)
	for _, w := range hardware.AllWheels {
		if math.Signbit(a[w]) == math.Signbit(p[w]) {
			t.Errorf("Wheel %v kept its sign across orientations: %v vs %v", w, p[w], a[w])
		}
	}
}

func TestFourWheelOffsets(t *testing.T) {
	m := newMapper(FourWheel)

	// Corrected diagonal carries the offset; divisors differ by
	// orientation and direction.
	expectPowers(t, m, Forward, 50, Primary, hardware.PerWheel[float64]{58, -50, 50, -58})
	expectPowers(t, m, Backward, 50, Primary, hardware.PerWheel[float64]{-(50 + 8.0/3), 50, -50, 50 + 8.0/3})
	expectPowers(t, m, Forward, 50, Alternate, hardware.PerWheel[float64]{-(50 + 8.0/3), 50, -50, 50 + 8.0/3})
	expectPowers(t, m, Backward, 50, Alternate, hardware.PerWheel[float64]{58, -50, 50, -58})

	// No offset when spinning.
	expectPowers(t, m, RotateLeft, 40, Primary, hardware.PerWheel[float64]{-40, -40, -40, -40})
	expectPowers(t, m, RotateRight, 40, Alternate, hardware.PerWheel[float64]{40, 40, 40, 40})

	// Offsets clamp at full power.
	expectPowers(t, m, Forward, 100, Primary, hardware.PerWheel[float64]{100, -100, 100, -100})
}

func TestTuningIsLive(t *testing.T) {
	ts := &tunable.Tunables{}
	m := NewMapper(FourWheel, NewTuning(ts))
	test.That(t, ts.Apply(map[string]float64{TunableOffset: 4}), test.ShouldBeNil)
	expectPowers(t, m, Forward, 50, Primary, hardware.PerWheel[float64]{54, -50, 50, -54})

	// A zero divisor disables the offset rather than dividing by zero.
	test.That(t, ts.Apply(map[string]float64{TunablePrimaryForwardDivisor: 0}), test.ShouldBeNil)
	expectPowers(t, m, Forward, 50, Primary, hardware.PerWheel[float64]{50, -50, 50, -50})
}

func TestZeroPercentIsAllStop(t *testing.T) {
	for _, topo := range []Topology{TwoWheel, FourWheel} {
		m := newMapper(topo)
		for _, motion := range []Motion{Forward, Backward, RotateLeft, RotateRight} {
			expectPowers(t, m, motion, 0, Primary, hardware.PerWheel[float64]{})
		}
	}
}

func TestRejectsBadPercent(t *testing.T) {
	m := newMapper(FourWheel)
	for _, pct := range []float64{-1, 100.5, math.NaN()} {
		_, err := m.Map(Forward, pct, Primary)
		test.That(t, errors.Is(err, faults.ErrInvalidParameter), test.ShouldBeTrue)
	}
	_, err := m.Map(Motion(12), 10, Primary)
	test.That(t, errors.Is(err, faults.ErrInvalidParameter), test.ShouldBeTrue)
}

func TestParsing(t *testing.T) {
	o, err := ParseOrientation("vertical")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o, test.ShouldEqual, Primary)
	o, err = ParseOrientation("alternate")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o, test.ShouldEqual, Alternate)
	test.That(t, o.Other(), test.ShouldEqual, Primary)
	_, err = ParseOrientation("sideways")
	test.That(t, err, test.ShouldNotBeNil)

	topo, err := ParseTopology("two-wheel")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, topo.HasCorrection(), test.ShouldBeFalse)
	_, err = ParseTopology("tricycle")
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, RotateLeft.String(), test.ShouldEqual, "rotate-left")
	test.That(t, RotateLeft.IsRotation(), test.ShouldBeTrue)
	test.That(t, Alternate.String(), test.ShouldEqual, "alternate")
}

func expectPowers(t *testing.T, m *Mapper, motion Motion, pct float64, o Orientation, expected hardware.PerWheel[float64]) {
	t.Helper()
	actual, err := m.Map(motion, pct, o)
	if err != nil {
		t.Fatalf("Map(%v, %v, %v) failed: %v", motion, pct, o, err)
	}
	for w := range actual {
		if math.Abs(actual[w]-expected[w]) > 1e-9 {
			t.Errorf("Map(%v, %v, %v) gave %v, expected %v", motion, pct, o, actual, expected)
			return
		}
	}
}
