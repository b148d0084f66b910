package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"podctl/internal/motor"
	"podctl/internal/nav"
	"podctl/internal/sensors"
)

type Config struct {
	Track     TrackConfig     `yaml:"track"`
	Nav       nav.Config      `yaml:"nav"`
	Motor     motor.Config    `yaml:"motor"`
	Sim       SimConfig       `yaml:"sim"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Runlog    RunlogConfig    `yaml:"runlog"`
	Loop      LoopConfig      `yaml:"loop"`
}

// TrackConfig is the track geometry the supervisor reasons about. All
// distances are meters from the starting position.
type TrackConfig struct {
	// MaxDistance is the braking point: past it the pod must begin
	// decelerating.
	MaxDistance float64 `yaml:"max_distance"`

	// RunLength is where the timed run ends.
	RunLength float64 `yaml:"run_length"`

	// TubeLength is the physical end of the tube, where the service
	// crawl stops.
	TubeLength float64 `yaml:"tube_length"`
}

type SimConfig struct {
	Enable    bool                  `yaml:"enable"`
	Scenario  string                `yaml:"scenario"`
	Rig       sensors.RigConfig     `yaml:"rig"`
	Batteries sensors.BatteryConfig `yaml:"batteries"`
}

type StripeConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"`
	Offset int    `yaml:"offset"`
}

type TelemetryConfig struct {
	Enable   bool          `yaml:"enable"`
	Dest     string        `yaml:"dest"`
	Interval time.Duration `yaml:"interval"`
}

type RunlogConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// LoopConfig paces the acquisition and fusion loop.
type LoopConfig struct {
	Interval time.Duration `yaml:"interval"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Track.RunLength <= 0 {
		return Config{}, fmt.Errorf("track.run_length is required")
	}
	if cfg.Track.MaxDistance <= 0 {
		return Config{}, fmt.Errorf("track.max_distance is required")
	}
	if cfg.Track.MaxDistance >= cfg.Track.RunLength {
		return Config{}, fmt.Errorf("track.max_distance must be less than track.run_length")
	}
	if cfg.Track.TubeLength <= 0 {
		cfg.Track.TubeLength = cfg.Track.RunLength
	}
	if cfg.Track.TubeLength < cfg.Track.RunLength {
		return Config{}, fmt.Errorf("track.tube_length must be at least track.run_length")
	}

	if cfg.Sim.Enable && cfg.Stripe.Enable {
		return Config{}, fmt.Errorf("sim and stripe cannot both be enabled")
	}
	if cfg.Sim.Enable && cfg.Sim.Scenario == "" {
		return Config{}, fmt.Errorf("sim.scenario is required when sim.enable is true")
	}

	if cfg.Telemetry.Enable {
		if cfg.Telemetry.Dest == "" {
			return Config{}, fmt.Errorf("telemetry.dest is required when telemetry.enable is true")
		}
		if cfg.Telemetry.Interval <= 0 {
			cfg.Telemetry.Interval = 100 * time.Millisecond
		}
	}

	if cfg.Runlog.Enable && cfg.Runlog.Path == "" {
		return Config{}, fmt.Errorf("runlog.path is required when runlog.enable is true")
	}

	if cfg.Loop.Interval <= 0 {
		cfg.Loop.Interval = 10 * time.Millisecond
	}

	if cfg.Nav.IMUs <= 0 {
		cfg.Nav.IMUs = 2
	}
	if cfg.Nav.Proximities <= 0 {
		cfg.Nav.Proximities = 4
	}

	// The rig must produce exactly the bundle the fusion side expects,
	// and its geometry follows the fusion side unless overridden.
	cfg.Sim.Rig.IMUs = cfg.Nav.IMUs
	cfg.Sim.Rig.Proximities = cfg.Nav.Proximities
	if cfg.Sim.Rig.ForwardAxis == 0 {
		cfg.Sim.Rig.ForwardAxis = cfg.Nav.ForwardAxis
	}
	if cfg.Sim.Rig.StripeSpacing == 0 {
		cfg.Sim.Rig.StripeSpacing = cfg.Nav.StripeSpacing
	}
	if cfg.Sim.Rig.WallClearance == 0 {
		cfg.Sim.Rig.WallClearance = cfg.Nav.WallClearance
	}

	return cfg, nil
}
