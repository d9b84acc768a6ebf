package chassis

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/faults"
)

func TestCountsForDistance(t *testing.T) {
	g := Default()

	expectCounts(t, g.CountsForDistance, 0, 0)
	expectCounts(t, g.CountsForDistance, 15, 83)
	expectCounts(t, g.CountsForDistance, 0.1, 0)
	expectCounts(t, g.CountsForDistance, 24, 133)
}

func TestCountsForRotation(t *testing.T) {
	g := Default()

	expectCounts(t, g.CountsForRotation, 0, 0)
	// Quarter turn: arc of 2π inches at a 4 inch radius.
	expectCounts(t, g.CountsForRotation, 90, 34)
	expectCounts(t, g.CountsForRotation, 180, 69)
}

func TestCountsAreMonotonic(t *testing.T) {
	g := Default()
	var lastD, lastR int64
	for x := 0.0; x < 400; x += 0.25 {
		d, err := g.CountsForDistance(x)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, d, test.ShouldBeGreaterThanOrEqualTo, lastD)
		lastD = d

		r, err := g.CountsForRotation(x)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, r, test.ShouldBeGreaterThanOrEqualTo, lastR)
		lastR = r
	}
}

func TestRejectsBadInput(t *testing.T) {
	g := Default()
	for _, v := range []float64{-1, -0.001, math.NaN(), math.Inf(1)} {
		_, err := g.CountsForDistance(v)
		test.That(t, errors.Is(err, faults.ErrInvalidParameter), test.ShouldBeTrue)
		_, err = g.CountsForRotation(v)
		test.That(t, errors.Is(err, faults.ErrInvalidParameter), test.ShouldBeTrue)
	}
}

func TestValidate(t *testing.T) {
	test.That(t, Default().Validate(), test.ShouldBeNil)

	g := Default()
	g.WheelRadiusIn = 0
	test.That(t, errors.Is(g.Validate(), faults.ErrInvalidParameter), test.ShouldBeTrue)

	g = Default()
	g.CountsPerRev = -48
	test.That(t, errors.Is(g.Validate(), faults.ErrInvalidParameter), test.ShouldBeTrue)

	g = Default()
	g.RobotRadiusIn = math.NaN()
	test.That(t, errors.Is(g.Validate(), faults.ErrInvalidParameter), test.ShouldBeTrue)
}

func expectCounts(t *testing.T, f func(float64) (int64, error), in float64, expected int64) {
	t.Helper()
	actual, err := f(in)
	if err != nil {
		t.Fatalf("Unexpected error for %v: %v", in, err)
	}
	if actual != expected {
		t.Errorf("Wrong count for %v: got %v, expected %v", in, actual, expected)
	}
}
