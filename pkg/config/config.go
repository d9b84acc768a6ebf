// Package config loads the course runner's robot configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/course"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/drivetrain"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/motion"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/steering"
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/tunable"
)

const DefaultPath = "/cfg/courserun.yaml"

type Config struct {
	Topology           string               `yaml:"topology"`
	InitialOrientation string               `yaml:"initial_orientation"`
	Geometry           chassis.Geometry     `yaml:"geometry"`
	Tunables           map[string]float64   `yaml:"tunables,omitempty"`
	Loop               motion.LoopConfig    `yaml:"loop"`
	Steering           steering.Calibration `yaml:"steering"`
	Wiring             hardware.Wiring      `yaml:"wiring"`
	// Directory of cue .wav files.  Empty disables sound.
	SoundDir string `yaml:"sound_dir,omitempty"`
	// Framebuffer for the status screen.  Empty disables it.
	Screen string        `yaml:"screen,omitempty"`
	Course []course.Step `yaml:"course"`
}

func Default() Config {
	return Config{
		Topology:           drivetrain.FourWheel.Name,
		InitialOrientation: drivetrain.Primary.String(),
		Geometry:           chassis.Default(),
		Loop:               motion.DefaultLoopConfig(),
		Steering:           steering.DefaultCalibration(),
		Wiring:             hardware.DefaultWiring(),
		Screen:             "/dev/fb1",
		Course:             course.Default(),
	}
}

// Load reads the config at path on top of the defaults.  A missing file is
// not an error; the defaults are used.  The effective config is then written
// next to it as <name>-in-use.yaml.
func Load(path string, log *zap.SugaredLogger) (Config, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Infow("No config file, using defaults", "path", path)
	} else if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	} else {
		// Strict decoding refuses keys already present in a map, so the
		// encoder pins are only defaulted when the file leaves them out.
		cfg.Wiring.Encoders = nil
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "failed to parse %s", path)
		}
		if len(cfg.Wiring.Encoders) == 0 {
			cfg.Wiring.Encoders = hardware.DefaultWiring().Encoders
		}
		log.Infow("Loaded config", "path", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid config %s", path)
	}

	if IsInUsePath(path) {
		return cfg, nil
	}
	inUse := InUsePath(path)
	if out, err := yaml.Marshal(&cfg); err != nil {
		log.Warnw("Failed to marshal config", "error", err)
	} else if err := os.WriteFile(inUse, out, 0666); err != nil {
		log.Warnw("Failed to write in-use config", "path", inUse, "error", err)
	}
	return cfg, nil
}

// InUsePath maps /cfg/courserun.yaml to /cfg/courserun-in-use.yaml.
func InUsePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-in-use" + ext
}

// IsInUsePath reports whether path is itself an in-use echo.
func IsInUsePath(path string) bool {
	return strings.HasSuffix(strings.TrimSuffix(path, filepath.Ext(path)), "-in-use")
}

func (c Config) Validate() error {
	if _, err := drivetrain.ParseTopology(c.Topology); err != nil {
		return errors.Wrap(err, "topology")
	}
	if _, err := drivetrain.ParseOrientation(c.InitialOrientation); err != nil {
		return errors.Wrap(err, "initial_orientation")
	}
	if err := c.Geometry.Validate(); err != nil {
		return errors.Wrap(err, "geometry")
	}
	if err := c.Loop.Validate(); err != nil {
		return errors.Wrap(err, "loop")
	}
	if err := c.Steering.Validate(); err != nil {
		return errors.Wrap(err, "steering")
	}
	if err := c.Wiring.Validate(); err != nil {
		return errors.Wrap(err, "wiring")
	}
	if err := course.Validate(c.Course); err != nil {
		return errors.Wrap(err, "course")
	}
	for i, s := range c.Course {
		if s.Action != course.Switch {
			continue
		}
		if err := c.Steering.CheckStep(s.Step); err != nil {
			return errors.Wrapf(err, "course step %d", i+1)
		}
	}
	// Catch misspelt tunables up front.
	if err := c.Tuning(&tunable.Tunables{}); err != nil {
		return errors.Wrap(err, "tunables")
	}
	return nil
}

// Tuning registers the drivetrain tunables in ts and applies the overrides.
func (c Config) Tuning(ts *tunable.Tunables) error {
	drivetrain.NewTuning(ts)
	return ts.Apply(c.Tunables)
}

func (c Config) Orientation() drivetrain.Orientation {
	o, _ := drivetrain.ParseOrientation(c.InitialOrientation)
	return o
}

func (c Config) DriveTopology() drivetrain.Topology {
	t, _ := drivetrain.ParseTopology(c.Topology)
	return t
}
