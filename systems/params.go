package systems

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrInvalidParams is returned when a tunable parameter is outside its valid range.
var ErrInvalidParams = errors.New("invalid agent parameters")

// Params are the tunable simulation parameters. Any field may be changed
// between frames; each frame works from one snapshot.
type Params struct {
	MoveSpeed      float32 `json:"move_speed"`      // cells advanced per frame
	FadeSpeed      float32 `json:"fade_speed"`      // intensity removed per frame
	DiffuseSpeed   float32 `json:"diffuse_speed"`   // blend weight toward the 3x3 average
	SensorSize     int     `json:"sensor_size"`     // half-width of the sensing window, cells
	SensorDistance float32 `json:"sensor_distance"` // sensor offset from the agent, cells
	TurningSpeed   float32 `json:"turning_speed"`   // max heading change per frame, radians
}

// Validate checks every field against its range for the given grid.
func (p Params) Validate(c Constants) error {
	nonNeg := []struct {
		name string
		v    float32
	}{
		{"move_speed", p.MoveSpeed},
		{"fade_speed", p.FadeSpeed},
		{"diffuse_speed", p.DiffuseSpeed},
		{"turning_speed", p.TurningSpeed},
	}
	for _, f := range nonNeg {
		if !isFinite(f.v) || f.v < 0 {
			return fmt.Errorf("%w: %s=%g must be finite and >= 0", ErrInvalidParams, f.name, f.v)
		}
	}
	if p.SensorSize < 1 {
		return fmt.Errorf("%w: sensor_size=%d must be >= 1", ErrInvalidParams, p.SensorSize)
	}
	maxDist := c.MaxSensorDistance()
	if !isFinite(p.SensorDistance) || p.SensorDistance < 1 || p.SensorDistance > maxDist {
		return fmt.Errorf("%w: sensor_distance=%g must be in [1, %g]", ErrInvalidParams, p.SensorDistance, maxDist)
	}
	return nil
}

// Clamp projects p into the valid ranges. Non-finite values become the range minimum.
func (p Params) Clamp(c Constants) Params {
	clampMin := func(v, lo float32) float32 {
		if !isFinite(v) || v < lo {
			return lo
		}
		return v
	}
	p.MoveSpeed = clampMin(p.MoveSpeed, 0)
	p.FadeSpeed = clampMin(p.FadeSpeed, 0)
	p.DiffuseSpeed = clampMin(p.DiffuseSpeed, 0)
	p.TurningSpeed = clampMin(p.TurningSpeed, 0)
	if p.SensorSize < 1 {
		p.SensorSize = 1
	}
	p.SensorDistance = clampMin(p.SensorDistance, 1)
	if maxDist := c.MaxSensorDistance(); p.SensorDistance > maxDist {
		p.SensorDistance = maxDist
	}
	return p
}

// ParamStore is the shared, live-editable parameter record. Editors (UI,
// remote control) call Set or Update; the scheduler reads one snapshot
// per frame through Params. Invalid records are rejected and the
// current value is kept.
type ParamStore struct {
	consts Constants
	cur    atomic.Pointer[Params]
	mu     sync.Mutex // serializes Update's read-modify-write
}

// NewParamStore creates a store holding initial, which must be valid.
func NewParamStore(c Constants, initial Params) (*ParamStore, error) {
	if err := initial.Validate(c); err != nil {
		return nil, err
	}
	s := &ParamStore{consts: c}
	s.cur.Store(&initial)
	return s, nil
}

// Params returns the current snapshot.
func (s *ParamStore) Params() Params {
	return *s.cur.Load()
}

// Constants returns the grid the store validates against.
func (s *ParamStore) Constants() Constants {
	return s.consts
}

// Set replaces the parameters if p is valid.
func (s *ParamStore) Set(p Params) error {
	if err := p.Validate(s.consts); err != nil {
		return err
	}
	s.mu.Lock()
	s.cur.Store(&p)
	s.mu.Unlock()
	return nil
}

// Update applies fn to a copy of the current parameters and stores the
// result if it is valid. Returns the parameters in effect afterwards.
func (s *ParamStore) Update(fn func(*Params)) (Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *s.cur.Load()
	fn(&p)
	if err := p.Validate(s.consts); err != nil {
		return *s.cur.Load(), err
	}
	s.cur.Store(&p)
	return p, nil
}
