package main

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/game"
	"github.com/pthm-cable/slime/telemetry"
)

// FitnessEvaluator runs headless simulations and scores the patterns they form.
type FitnessEvaluator struct {
	params     *ParamVector
	frames     uint64
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, frames uint64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		frames:     frames,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Fitness is the negated mean quality over all seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.configFor(x)

	qualities := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			windows, err := fe.runSimulation(cfg, s)
			if err != nil {
				fmt.Printf("  seed %d failed: %v\n", s, err)
				return
			}
			qualities[idx] = computeQuality(windows)
		}(i, seed)
	}
	wg.Wait()

	quality := stat.Mean(qualities, nil)
	fe.mu.Lock()
	fe.lastQuality = quality
	fe.mu.Unlock()

	return -quality
}

// configFor copies the base config and applies the candidate parameters.
// Each seed gets one worker; seeds already run in parallel.
func (fe *FitnessEvaluator) configFor(x []float64) *config.Config {
	cfg := *fe.baseConfig
	game.ApplyParams(&cfg, fe.params.ToParams(x))
	cfg.Scheduler.Workers = 1
	cfg.Scheduler.StepsPerUpdate = 1
	return &cfg
}

// runSimulation executes a single headless run and returns its stats windows.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) ([]telemetry.WindowStats, error) {
	var windows []telemetry.WindowStats
	g, err := game.NewGameWithOptions(game.Options{
		Seed:     seed,
		Headless: true,
		Config:   cfg,
		StatsCallback: func(stats telemetry.WindowStats) {
			windows = append(windows, stats)
		},
	})
	if err != nil {
		return nil, err
	}
	defer g.Unload()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := g.WaitReady(ctx); err != nil {
		return nil, err
	}

	for g.Tick() < fe.frames {
		if err := g.UpdateHeadless(); err != nil {
			return windows, err
		}
	}
	return windows, nil
}

// Quality component weights.
const (
	qualityWeightContrast  = 0.45
	qualityWeightCoverage  = 0.30
	qualityWeightStability = 0.25

	qualityWarmupWindows = 2    // skip first N windows (pattern still forming)
	targetCoverage       = 0.25 // share of cells carrying trail in a good network
)

// computeQuality scores a run in [0, 1]. Networks of thin, persistent
// trails score high; empty fields, uniform haze and flicker score low.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	var contrastSum, coverageSum float64
	coverages := make([]float64, 0, len(valid))
	for _, w := range valid {
		if w.TrailMean <= 0 {
			coverages = append(coverages, 0)
			continue
		}
		// 1. Contrast: std/mean of the trail, saturating
		contrastSum += 1 - math.Exp(-(w.TrailStd/w.TrailMean)/1.5)

		// 2. Coverage near the target
		d := (w.Coverage - targetCoverage) / 0.15
		coverageSum += math.Exp(-d * d)

		coverages = append(coverages, w.Coverage)
	}

	n := float64(len(valid))
	contrastScore := contrastSum / n
	coverageScore := coverageSum / n

	// 3. Stability of coverage across windows
	stabilityScore := 0.0
	if mean, std := stat.PopMeanStdDev(coverages, nil); mean > 0 {
		cv := std / mean
		stabilityScore = math.Exp(-cv * cv / 0.05)
	}

	quality := qualityWeightContrast*contrastScore +
		qualityWeightCoverage*coverageScore +
		qualityWeightStability*stabilityScore

	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
