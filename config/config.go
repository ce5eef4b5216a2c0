// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is returned by Validate for startup-only settings that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Grid      GridConfig      `yaml:"grid"`
	Agents    AgentsConfig    `yaml:"agents"`
	Kernel    KernelConfig    `yaml:"kernel"`
	Seeding   SeedingConfig   `yaml:"seeding"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Control   ControlConfig   `yaml:"control"`
	Display   DisplayConfig   `yaml:"display"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// GridConfig holds the fixed simulation dimensions.
// Changing any of these requires a restart.
type GridConfig struct {
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	AgentCount int `yaml:"agent_count"`
}

// AgentsConfig holds the initial tunable agent parameters.
// These seed the live parameter store; the UI and control hub edit the store, not this struct.
type AgentsConfig struct {
	MoveSpeed      float64 `yaml:"move_speed"`
	FadeSpeed      float64 `yaml:"fade_speed"`
	DiffuseSpeed   float64 `yaml:"diffuse_speed"`
	SensorSize     int     `yaml:"sensor_size"`
	SensorDistance float64 `yaml:"sensor_distance"`
	TurningSpeed   float64 `yaml:"turning_speed"`
}

// KernelConfig holds startup-only kernel constants.
type KernelConfig struct {
	DepositAmount    float64 `yaml:"deposit_amount"`
	MaxIntensity     float64 `yaml:"max_intensity"`
	SensorSpread     float64 `yaml:"sensor_spread"`      // sensor angle = turning_speed * this
	TieBreakSeed     uint32  `yaml:"tie_break_seed"`     // seeds the equal-sides steering hash
	InPlaceDiffusion bool    `yaml:"in_place_diffusion"` // single-buffer diffusion, rows may see partial results
}

// SeedingConfig controls the initial agent distribution.
type SeedingConfig struct {
	Mode       string  `yaml:"mode"`        // disk, random, center, noise
	Radius     float64 `yaml:"radius"`      // disk radius in cells (0 = half the smaller grid side)
	Seed       int64   `yaml:"seed"`        // 0 = time-based
	NoiseScale float64 `yaml:"noise_scale"` // feature size for noise mode, in cells
}

// SchedulerConfig holds frame scheduling parameters.
type SchedulerConfig struct {
	Workers        int `yaml:"workers"`          // 0 = GOMAXPROCS
	StepsPerUpdate int `yaml:"steps_per_update"` // frames per Update call
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int     `yaml:"stats_window"` // frames per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	CoverageThreshold   float64 `yaml:"coverage_threshold"` // intensity above which a cell counts as covered
}

// ControlConfig holds the remote control server settings.
type ControlConfig struct {
	Addr string `yaml:"addr"` // empty = disabled
}

// DisplayConfig holds trail map presentation settings.
type DisplayConfig struct {
	Tint  [3]int `yaml:"tint"`  // RGB multiplier for the gray trail texture
	Tiles int    `yaml:"tiles"` // tiles per axis around the center copy (1 = 3x3)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	GridW32 float32 // Grid.Width as float32
	GridH32 float32 // Grid.Height as float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()

	return cfg, nil
}

// Validate checks the startup-only sections. Tunable agent parameters are
// validated by the parameter store when they are submitted.
func (c *Config) Validate() error {
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("%w: grid size %dx%d", ErrInvalidConfig, c.Grid.Width, c.Grid.Height)
	}
	if c.Grid.AgentCount < 0 {
		return fmt.Errorf("%w: grid.agent_count %d", ErrInvalidConfig, c.Grid.AgentCount)
	}
	switch c.Seeding.Mode {
	case "disk", "random", "center", "noise":
	default:
		return fmt.Errorf("%w: seeding.mode %q", ErrInvalidConfig, c.Seeding.Mode)
	}
	if c.Kernel.MaxIntensity <= 0 {
		return fmt.Errorf("%w: kernel.max_intensity %g", ErrInvalidConfig, c.Kernel.MaxIntensity)
	}
	if sp := c.Kernel.SensorSpread; sp < 0 || math.IsNaN(sp) || math.IsInf(sp, 0) {
		return fmt.Errorf("%w: kernel.sensor_spread %g", ErrInvalidConfig, sp)
	}
	if c.Kernel.DepositAmount < 0 {
		return fmt.Errorf("%w: kernel.deposit_amount %g", ErrInvalidConfig, c.Kernel.DepositAmount)
	}
	if c.Scheduler.Workers < 0 {
		return fmt.Errorf("%w: scheduler.workers %d", ErrInvalidConfig, c.Scheduler.Workers)
	}
	return nil
}

// ComputeDerived calculates values derived from the loaded config. Call it
// again after editing a loaded config in code.
func (c *Config) ComputeDerived() {
	c.Derived.GridW32 = float32(c.Grid.Width)
	c.Derived.GridH32 = float32(c.Grid.Height)

	if c.Scheduler.StepsPerUpdate < 1 {
		c.Scheduler.StepsPerUpdate = 1
	}
	if c.Telemetry.StatsWindow < 1 {
		c.Telemetry.StatsWindow = 600
	}
	if c.Display.Tiles < 0 {
		c.Display.Tiles = 0
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
