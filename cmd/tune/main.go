// Package main searches the agent parameters with CMA-ES for settings that
// grow stable, high-contrast trail networks.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/game"
)

// evalRecord is one optimize_log.csv row.
type evalRecord struct {
	Eval           int     `csv:"eval"`
	Fitness        float64 `csv:"fitness"`
	Quality        float64 `csv:"quality"`
	MoveSpeed      float32 `csv:"move_speed"`
	FadeSpeed      float32 `csv:"fade_speed"`
	DiffuseSpeed   float32 `csv:"diffuse_speed"`
	SensorSize     int     `csv:"sensor_size"`
	SensorDistance float32 `csv:"sensor_distance"`
	TurningSpeed   float32 `csv:"turning_speed"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	frames := flag.Uint64("frames", 3000, "Frames per evaluation run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	width := flag.Int("width", 256, "Grid width for evaluation runs (0 = config)")
	height := flag.Int("height", 256, "Grid height for evaluation runs (0 = config)")
	agents := flag.Int("agents", 20000, "Agent count for evaluation runs (0 = config)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}

	// Per-run lifecycle logs would drown the progress lines
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := *config.Cfg()
	if *width > 0 {
		baseCfg.Grid.Width = *width
	}
	if *height > 0 {
		baseCfg.Grid.Height = *height
	}
	if *agents > 0 {
		baseCfg.Grid.AgentCount = *agents
	}
	// Keep stats windows short enough that a run yields several
	baseCfg.Telemetry.StatsWindow = max(1, int(*frames/10))
	baseCfg.ComputeDerived()

	consts := game.ConstantsFromConfig(&baseCfg)
	params := NewParamVector(game.ParamsFromConfig(&baseCfg), float64(consts.MaxSensorDistance()))

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, *frames, evalSeeds, &baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return evaluator.Evaluate(params.Denormalize(x))
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation; seeds run in parallel
	}

	popSize := *population
	if popSize == 0 {
		// Auto-size: 4 + floor(3*ln(n))
		popSize = 4 + int(3.0*math.Log(float64(dim)))
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	logPath := filepath.Join(*outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()
	headerWritten := false

	evalCount := 0
	bestFitness := math.Inf(1)
	var bestParams []float64
	startTime := time.Now()

	// Wrap the function to log evaluations
	originalFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		fitness := originalFunc(x)
		evalCount++

		clamped := params.Clamp(params.Denormalize(x))
		if fitness < bestFitness {
			bestFitness = fitness
			bestParams = clamped
		}

		p := params.ToParams(clamped)
		rec := []evalRecord{{
			Eval:           evalCount,
			Fitness:        fitness,
			Quality:        evaluator.LastQuality(),
			MoveSpeed:      p.MoveSpeed,
			FadeSpeed:      p.FadeSpeed,
			DiffuseSpeed:   p.DiffuseSpeed,
			SensorSize:     p.SensorSize,
			SensorDistance: p.SensorDistance,
			TurningSpeed:   p.TurningSpeed,
		}}
		if headerWritten {
			err = gocsv.MarshalWithoutHeaders(rec, logFile)
		} else {
			err = gocsv.Marshal(rec, logFile)
			headerWritten = true
		}
		if err != nil {
			log.Printf("failed to write eval log: %v", err)
		}

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(evalCount)
		remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

		fmt.Printf("Eval %d/%d: quality=%.3f (best=%.3f) | elapsed: %s, ETA: %s\n",
			evalCount, *maxEvals, -fitness, -bestFitness,
			formatDuration(elapsed), formatDuration(remaining))

		return fitness
	}

	fmt.Printf("Starting CMA-ES optimization with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, frames per run: %d, grid %dx%d, agents %d\n",
		*seeds, *frames, baseCfg.Grid.Width, baseCfg.Grid.Height, baseCfg.Grid.AgentCount)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluations completed")
	}

	totalTime := time.Since(startTime)
	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(totalTime))
	fmt.Printf("Best quality: %.3f\n", -bestFitness)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Name, bestParams[i])
	}

	// Save best config on the user's grid, not the evaluation grid
	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	best := params.ToParams(bestParams)
	if err := best.Validate(game.ConstantsFromConfig(bestCfg)); err != nil {
		best = best.Clamp(game.ConstantsFromConfig(bestCfg))
	}
	game.ApplyParams(bestCfg, best)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
