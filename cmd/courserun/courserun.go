package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/config"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/course"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/motion"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/screen"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/sound"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/steering"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/tunable"
)

const (
	flagConfig = "config"
	flagSim    = "sim"
	flagDebug  = "debug"
)

func main() {
	app := &cli.App{
		Name:  "courserun",
		Usage: "drive the robot round a scripted course",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "robot config file",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "log every loop iteration",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the course",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagSim,
						Usage: "drive the simulated robot instead of the hardware",
					},
				},
				Action: runAction,
			},
			{
				Name:   "check",
				Usage:  "validate the config and print the course",
				Action: checkAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "courserun:", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if c.Bool(flagDebug) {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func checkAction(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(c.String(flagConfig), log)
	if err != nil {
		return err
	}
	geometry := cfg.Geometry
	fmt.Printf("Topology %s, starting %s\n", cfg.Topology, cfg.InitialOrientation)
	for i, s := range cfg.Course {
		line := fmt.Sprintf("%2d %v", i+1, s)
		switch s.Action {
		case course.Forward, course.Backward:
			n, _ := geometry.CountsForDistance(s.Inches)
			line += fmt.Sprintf(" (%d counts)", n)
		case course.Left, course.Right:
			n, _ := geometry.CountsForRotation(s.Degrees)
			line += fmt.Sprintf(" (%d counts)", n)
		}
		fmt.Println(line)
	}
	return nil
}

// robot is the hardware the course runs on; Close stops and releases it.
type robot interface {
	hardware.DriveHardware
	hardware.Actuator
	Close() error
}

type simRobot struct {
	*hardware.Sim
}

func (s simRobot) Close() error {
	return nil
}

func runAction(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(c.String(flagConfig), log)
	if err != nil {
		return err
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	registerSignalHandlers(cancel, log)

	status := screen.New(log.Named("screen"))
	if cfg.Screen != "" {
		screenCtx, stopScreen := context.WithCancel(context.Background())
		defer stopScreen()
		go status.Loop(screenCtx, cfg.Screen)
	}
	player := sound.New(cfg.SoundDir, log.Named("sound"))
	defer player.Close()

	var hw robot
	if c.Bool(flagSim) {
		sim := hardware.NewSim(log.Named("sim"))
		sim.BeforePoll = func(*hardware.Sim) { time.Sleep(time.Millisecond) }
		hw = simRobot{sim}
	} else {
		r, err := hardware.Open(ctx, cfg.Wiring, log.Named("hardware"))
		if err != nil {
			return errors.Wrap(err, "failed to open hardware")
		}
		if v, err := r.BusVoltage(); err == nil {
			log.Infow("Battery", "volts", v)
			status.SetBusVoltage(v)
		}
		hw = r
	}
	defer func() {
		log.Info("Zeroing motors for shut down")
		if err := hw.Close(); err != nil {
			log.Errorw("Shut down failed", "error", err)
		}
	}()

	ts := &tunable.Tunables{}
	if err := cfg.Tuning(ts); err != nil {
		return err
	}
	tuning := drivetrain.NewTuning(ts)
	topo := cfg.DriveTopology()
	loop := &motion.Loop{
		HW:     hw,
		Mapper: drivetrain.NewMapper(topo, tuning),
		Config: cfg.Loop,
		Clock:  clock.New(),
		Status: status,
		Log:    log.Named("motion"),
	}
	switcher := &steering.Switcher{
		HW:          hw,
		Servo:       hw,
		Wheels:      topo.Driven,
		Calibration: cfg.Steering,
		Power:       tuning.SwitchPower.Get,
		Status:      status,
		Log:         log.Named("steering"),
	}
	ctrl := motion.NewController(cfg.Geometry, loop, switcher, cfg.Orientation(), log.Named("motion"))

	// Put the wheels where the course expects them before starting.
	if err := hw.SetPosition(cfg.Steering.Position(ctrl.Orientation())); err != nil {
		return errors.Wrap(err, "failed to centre steering")
	}
	status.SetOrientation(ctrl.Orientation())
	log.Infow("Starting course", "steps", len(cfg.Course), "topology", topo.Name,
		"orientation", ctrl.Orientation(), "tunables", ts.Values())
	player.Play(sound.CueStart)

	runner := &course.Runner{
		Driver: ctrl,
		Log:    log.Named("course"),
		Status: status,
		OnStep: func(_ int, s course.Step) {
			status.SetOrientation(ctrl.Orientation())
			if cue, ok := stepCue(s); ok {
				player.Play(cue)
			}
		},
	}
	err = runner.Run(ctx, cfg.Course)
	if err != nil {
		status.SetFault(true)
		player.Play(sound.CueFault)
		err = multierr.Combine(err, ctrl.Stop())
		return err
	}
	player.Play(sound.CueDone)
	log.Info("Course finished")
	return nil
}

// stepCue picks the sound played as a step starts.
func stepCue(s course.Step) (sound.Cue, bool) {
	if s.Action == course.Switch {
		return sound.CueSwitch, true
	}
	return "", false
}

func registerSignalHandlers(cancel context.CancelFunc, log *zap.SugaredLogger) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Infow("Signal", "signal", s)
		cancel()
	}()
}
