package game

import (
	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/systems"
)

// ConstantsFromConfig returns the grid dimensions and population size.
func ConstantsFromConfig(cfg *config.Config) systems.Constants {
	return systems.Constants{
		Width:      cfg.Grid.Width,
		Height:     cfg.Grid.Height,
		AgentCount: cfg.Grid.AgentCount,
	}
}

// ParamsFromConfig returns the initial tunable parameters.
func ParamsFromConfig(cfg *config.Config) systems.Params {
	a := cfg.Agents
	return systems.Params{
		MoveSpeed:      float32(a.MoveSpeed),
		FadeSpeed:      float32(a.FadeSpeed),
		DiffuseSpeed:   float32(a.DiffuseSpeed),
		SensorSize:     a.SensorSize,
		SensorDistance: float32(a.SensorDistance),
		TurningSpeed:   float32(a.TurningSpeed),
	}
}

// KernelOptionsFromConfig returns the startup-only kernel constants.
func KernelOptionsFromConfig(cfg *config.Config) systems.KernelOptions {
	k := cfg.Kernel
	return systems.KernelOptions{
		DepositAmount:    float32(k.DepositAmount),
		MaxIntensity:     float32(k.MaxIntensity),
		SensorSpread:     float32(k.SensorSpread),
		TieBreakSeed:     k.TieBreakSeed,
		InPlaceDiffusion: k.InPlaceDiffusion,
	}
}

// SeedSpecFromConfig returns the seeding spec. seed overrides the
// configured seed when non-zero.
func SeedSpecFromConfig(cfg *config.Config, seed int64) systems.SeedSpec {
	s := cfg.Seeding
	if seed == 0 {
		seed = s.Seed
	}
	return systems.SeedSpec{
		Mode:       systems.SeedMode(s.Mode),
		Radius:     float32(s.Radius),
		Seed:       seed,
		NoiseScale: s.NoiseScale,
	}
}

// ApplyParams writes p back into the config's agents section, so a saved
// config reproduces the live parameters.
func ApplyParams(cfg *config.Config, p systems.Params) {
	cfg.Agents = config.AgentsConfig{
		MoveSpeed:      float64(p.MoveSpeed),
		FadeSpeed:      float64(p.FadeSpeed),
		DiffuseSpeed:   float64(p.DiffuseSpeed),
		SensorSize:     p.SensorSize,
		SensorDistance: float64(p.SensorDistance),
		TurningSpeed:   float64(p.TurningSpeed),
	}
}
