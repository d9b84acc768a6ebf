package course

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/faults"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/motion"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/steering"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/tunable"
)

type fakeDriver struct {
	calls       []string
	orientation drivetrain.Orientation
	failOn      string
}

func (f *fakeDriver) record(call string) error {
	f.calls = append(f.calls, call)
	if call == f.failOn {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (f *fakeDriver) MoveForward(_ context.Context, _, _ float64) error  { return f.record("forward") }
func (f *fakeDriver) MoveBackward(_ context.Context, _, _ float64) error { return f.record("backward") }
func (f *fakeDriver) RotateLeft(_ context.Context, _, _ float64) error   { return f.record("left") }
func (f *fakeDriver) RotateRight(_ context.Context, _, _ float64) error  { return f.record("right") }

func (f *fakeDriver) SwitchOrientation(_ context.Context, _ float64) error {
	f.orientation = f.orientation.Other()
	return f.record("switch")
}

func (f *fakeDriver) Orientation() drivetrain.Orientation {
	return f.orientation
}

func TestDefaultIsValid(t *testing.T) {
	steps := Default()
	test.That(t, Validate(steps), test.ShouldBeNil)
	test.That(t, steps, test.ShouldHaveLength, 13)
	test.That(t, steps[0].String(), test.ShouldEqual, "forward 50% 15.0in")
	test.That(t, steps[1].String(), test.ShouldEqual, "pause 2s")
	test.That(t, steps[2].String(), test.ShouldEqual, "switch step 2.0")
}

func TestValidateRejectsBadSteps(t *testing.T) {
	for _, s := range []Step{
		{Action: Forward, Percent: 150, Inches: 1},
		{Action: Backward, Percent: 50, Inches: -1},
		{Action: Left, Percent: -1, Degrees: 90},
		{Action: Right, Percent: 50, Degrees: -90},
		{Action: Switch},
		{Action: Pause, Duration: -time.Second},
		{Action: "jump"},
	} {
		err := Validate([]Step{{Action: Forward, Percent: 10, Inches: 1}, s})
		test.That(t, errors.Is(err, faults.ErrInvalidParameter), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "step 2")
	}
}

func TestRunDispatches(t *testing.T) {
	d := &fakeDriver{}
	var seen []int
	r := &Runner{Driver: d, OnStep: func(i int, _ Step) { seen = append(seen, i) }}
	err := r.Run(context.Background(), []Step{
		{Action: Forward, Percent: 50, Inches: 10},
		{Action: Left, Percent: 50, Degrees: 90},
		{Action: Pause},
		{Action: Switch, Step: 2},
		{Action: Right, Percent: 50, Degrees: 90},
		{Action: Backward, Percent: 50, Inches: 10},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.calls, test.ShouldResemble, []string{"forward", "left", "switch", "right", "backward"})
	test.That(t, seen, test.ShouldResemble, []int{0, 1, 2, 3, 4, 5})
	test.That(t, d.orientation, test.ShouldEqual, drivetrain.Alternate)
}

func TestRunStopsAtFirstError(t *testing.T) {
	d := &fakeDriver{failOn: "left"}
	r := &Runner{Driver: d}
	err := r.Run(context.Background(), []Step{
		{Action: Forward, Percent: 50, Inches: 10},
		{Action: Left, Percent: 50, Degrees: 90},
		{Action: Right, Percent: 50, Degrees: 90},
	})
	test.That(t, errors.Is(err, io.ErrUnexpectedEOF), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "step 2")
	test.That(t, d.calls, test.ShouldResemble, []string{"forward", "left"})
}

func TestInvalidScriptNeverMoves(t *testing.T) {
	d := &fakeDriver{}
	r := &Runner{Driver: d}
	err := r.Run(context.Background(), []Step{
		{Action: Forward, Percent: 50, Inches: 10},
		{Action: Switch, Step: -1},
	})
	test.That(t, errors.Is(err, faults.ErrInvalidParameter), test.ShouldBeTrue)
	test.That(t, d.calls, test.ShouldBeEmpty)
}

func TestPauseHonoursCancel(t *testing.T) {
	d := &fakeDriver{}
	r := &Runner{Driver: d, Clock: clock.NewMock()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx, []Step{{Action: Pause, Duration: time.Hour}})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestStepsFromYAML(t *testing.T) {
	var steps []Step
	err := yaml.Unmarshal([]byte(`
- action: forward
  percent: 40
  inches: 12
- action: pause
  duration: 1500ms
- action: switch
  step: 2
`), &steps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, steps, test.ShouldResemble, []Step{
		{Action: Forward, Percent: 40, Inches: 12},
		{Action: Pause, Duration: 1500 * time.Millisecond},
		{Action: Switch, Step: 2},
	})
	test.That(t, Validate(steps), test.ShouldBeNil)
}

func TestDefaultCourseOnSimulator(t *testing.T) {
	sim := hardware.NewSim(nil)
	tuning := drivetrain.NewTuning(&tunable.Tunables{})
	topo := drivetrain.TwoWheel
	loop := &motion.Loop{
		HW:     sim,
		Mapper: drivetrain.NewMapper(topo, tuning),
		Config: motion.LoopConfig{StallIterations: 20},
	}
	sw := &steering.Switcher{
		HW:          sim,
		Servo:       sim,
		Wheels:      topo.Driven,
		Calibration: steering.DefaultCalibration(),
		Power:       tuning.SwitchPower.Get,
	}
	c := motion.NewController(chassis.Default(), loop, sw, drivetrain.Primary, nil)

	steps := Default()
	for i := range steps {
		if steps[i].Action == Pause {
			steps[i].Duration = 0
		}
	}
	r := &Runner{Driver: c}
	test.That(t, r.Run(context.Background(), steps), test.ShouldBeNil)

	test.That(t, c.Orientation(), test.ShouldEqual, drivetrain.Alternate)
	test.That(t, sim.AllStopped(), test.ShouldBeTrue)
	test.That(t, sim.Position, test.ShouldEqual, steering.DefaultAlternatePosition)
	test.That(t, sim.PowerHistory(hardware.FrontRight), test.ShouldResemble, []float64{
		-50, 0, -15, 0,
		50, 0, 15, 0,
		50, 0, -15, 0,
		-50, 0,
	})
}
