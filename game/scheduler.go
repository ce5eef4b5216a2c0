package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/pthm-cable/slime/systems"
	"github.com/pthm-cable/slime/telemetry"
)

// ErrClosed is returned by Frame after Close.
var ErrClosed = errors.New("scheduler closed")

// PipelineState reports whether the kernels are ready to run.
type PipelineState int32

const (
	Loading PipelineState = iota
	Ready
)

func (s PipelineState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("PipelineState(%d)", int32(s))
}

// ParamSource supplies the tunable parameters for the next frame.
// *systems.ParamStore satisfies it.
type ParamSource interface {
	Params() systems.Params
}

// Scheduler runs one simulation frame at a time: agent pass, barrier,
// trail pass, barrier, publish. It owns no simulation data; it holds
// references to the agent store and trail map and drives the two kernels
// over them on a worker pool.
type Scheduler struct {
	consts  systems.Constants
	opt     systems.KernelOptions
	agents  *systems.AgentStore
	trail   *systems.TrailMap
	workers int

	state       atomic.Int32
	ready       chan struct{} // closed on Loading -> Ready
	settled     chan struct{} // closed when preparation finishes either way
	prepareOnce sync.Once
	errMu       sync.Mutex
	err         error

	// mu serializes frames and Close
	mu     sync.Mutex
	pool   *workerPool
	closed bool
	perf   *telemetry.PerfCollector

	// Snapshot for the frame in flight, read by workers
	params systems.Params
	frame  uint64

	frames atomic.Uint64
	wraps  atomic.Uint64
}

// NewScheduler creates a scheduler in the Loading state. workers = 0 uses
// GOMAXPROCS. Call Prepare before the first frame.
func NewScheduler(c systems.Constants, opt systems.KernelOptions, agents *systems.AgentStore, trail *systems.TrailMap, workers int) *Scheduler {
	return &Scheduler{
		consts:  c,
		opt:     opt,
		agents:  agents,
		trail:   trail,
		workers: workers,
		ready:   make(chan struct{}),
		settled: make(chan struct{}),
	}
}

// ResumeFrom sets the completed-frame count for a run restored from a
// snapshot. Tie-break hashing and snapshot names continue from there.
// Call it before the first frame.
func (s *Scheduler) ResumeFrom(frame uint64) {
	s.mu.Lock()
	s.frame = frame
	s.frames.Store(frame)
	s.mu.Unlock()
}

// SetPerf attaches a collector that receives per-pass phase timings.
func (s *Scheduler) SetPerf(p *telemetry.PerfCollector) {
	s.mu.Lock()
	s.perf = p
	s.mu.Unlock()
}

// Prepare starts the one-time kernel preparation in the background and
// returns immediately. The scheduler moves to Ready when it succeeds; on
// failure it stays Loading and Err reports why. Only the first call has
// any effect.
func (s *Scheduler) Prepare(ctx context.Context) {
	s.prepareOnce.Do(func() {
		go s.prepare(ctx)
	})
}

func (s *Scheduler) prepare(ctx context.Context) {
	defer close(s.settled)

	pool, err := s.buildPool(ctx)
	if err != nil {
		s.errMu.Lock()
		s.err = err
		s.errMu.Unlock()
		slog.Error("pipeline preparation failed", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		pool.stop()
		return
	}
	s.pool = pool
	s.state.Store(int32(Ready))
	close(s.ready)

	slog.Info("pipeline ready",
		"width", s.consts.Width,
		"height", s.consts.Height,
		"agents", s.consts.AgentCount,
		"workers", pool.numWorkers,
		"in_place_diffusion", s.opt.InPlaceDiffusion,
	)
}

// buildPool validates the storage against the constants and starts workers.
func (s *Scheduler) buildPool(ctx context.Context) (*workerPool, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("preparing pipeline: %w", err)
	}
	if err := s.consts.Validate(); err != nil {
		return nil, err
	}
	if s.agents == nil || s.trail == nil {
		return nil, errors.New("preparing pipeline: agent store and trail map are required")
	}
	if s.agents.Len() != s.consts.AgentCount {
		return nil, fmt.Errorf("preparing pipeline: agent store holds %d agents, want %d",
			s.agents.Len(), s.consts.AgentCount)
	}
	if w, h := s.trail.GridSize(); w != s.consts.Width || h != s.consts.Height {
		return nil, fmt.Errorf("preparing pipeline: trail map is %dx%d, want %dx%d",
			w, h, s.consts.Width, s.consts.Height)
	}
	if s.opt.DepositAmount < 0 {
		return nil, fmt.Errorf("preparing pipeline: deposit amount %f is negative", s.opt.DepositAmount)
	}
	if sp := float64(s.opt.SensorSpread); sp < 0 || math.IsNaN(sp) || math.IsInf(sp, 0) {
		return nil, fmt.Errorf("preparing pipeline: sensor spread %f must be finite and non-negative", sp)
	}

	pool := newWorkerPool(s.workers, s.consts.Width, s.runChunk)
	pool.start()
	return pool, nil
}

// WaitReady blocks until the scheduler is Ready, preparation fails, or ctx ends.
func (s *Scheduler) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-s.settled:
		if s.State() == Ready {
			return nil
		}
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current pipeline state.
func (s *Scheduler) State() PipelineState {
	return PipelineState(s.state.Load())
}

// Err returns the preparation failure, if any.
func (s *Scheduler) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Frame runs one simulation tick with the parameters src holds right now.
//
// While Loading it does nothing and returns nil. Invalid parameters are
// rejected before any dispatch, leaving agents and trail untouched.
func (s *Scheduler) Frame(src ParamSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.State() != Ready {
		return nil
	}

	s.startPhase(telemetry.PhaseParams)
	p := src.Params()
	if err := p.Validate(s.consts); err != nil {
		return fmt.Errorf("frame %d: %w", s.frame, err)
	}
	s.params = p

	s.startPhase(telemetry.PhaseAgents)
	s.pool.dispatch(s.agents.Len(), kernelAgents)
	wraps := s.pool.collectWraps()

	s.startPhase(telemetry.PhaseTrail)
	s.pool.dispatch(s.trail.H, kernelTrail)
	if !s.opt.InPlaceDiffusion {
		s.trail.Swap()
	}

	s.frame++
	s.frames.Store(s.frame)
	s.wraps.Add(uint64(wraps))
	return nil
}

func (s *Scheduler) startPhase(phase string) {
	if s.perf != nil {
		s.perf.StartPhase(phase)
	}
}

// runChunk executes one chunk of either kernel on a worker.
func (s *Scheduler) runChunk(c workChunk, scratch *workerScratch) {
	switch c.kernel {
	case kernelAgents:
		scratch.wraps += systems.UpdateAgents(s.agents.Agents, c.start, c.end, s.trail, s.params, s.opt, s.frame)
	case kernelTrail:
		systems.UpdateTrail(s.trail, c.start, c.end, s.params, s.opt.InPlaceDiffusion, scratch.avgRow)
	}
}

// Close stops the worker goroutines. Later frames return ErrClosed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.pool != nil {
		s.pool.stop()
	}
}

// Frames returns the number of completed frames.
func (s *Scheduler) Frames() uint64 { return s.frames.Load() }

// Wraps returns the total number of edge crossings over all frames.
func (s *Scheduler) Wraps() uint64 { return s.wraps.Load() }

// Agents returns the agent store the scheduler drives.
func (s *Scheduler) Agents() *systems.AgentStore { return s.agents }

// Trail returns the trail map. Only read it between frames.
func (s *Scheduler) Trail() *systems.TrailMap { return s.trail }

// Constants returns the grid and population constants.
func (s *Scheduler) Constants() systems.Constants { return s.consts }
