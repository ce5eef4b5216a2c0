package systems

import (
	"fmt"
	"math"
)

// Agent is one simulated particle. X and Y are grid-pixel coordinates
// inside [0, W) x [0, H); Heading is in radians.
type Agent struct {
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	Heading float32 `json:"heading"`
}

// AgentStore is the agent population. It is allocated once and mutated in
// place by UpdateAgents; agents are never added or removed.
type AgentStore struct {
	Agents []Agent
}

// NewAgentStore allocates n zero agents.
func NewAgentStore(n int) *AgentStore {
	return &AgentStore{Agents: make([]Agent, n)}
}

// Len returns the population size.
func (s *AgentStore) Len() int { return len(s.Agents) }

// Load replaces the population with src on a w x h grid. Positions outside
// the grid are wrapped onto it and headings outside [-Pi, Pi] are reduced
// into it.
// Non-finite values are rejected and leave the store unchanged.
func (s *AgentStore) Load(src []Agent, w, h int) error {
	if len(src) != len(s.Agents) {
		return fmt.Errorf("loading agents: got %d, want %d", len(src), len(s.Agents))
	}
	for i, a := range src {
		if !isFinite(a.X) || !isFinite(a.Y) || !isFinite(a.Heading) {
			return fmt.Errorf("loading agents: agent %d is not finite: %+v", i, a)
		}
	}
	fw, fh := float32(w), float32(h)
	for i, a := range src {
		heading := a.Heading
		if heading < -math.Pi || heading > math.Pi {
			heading = float32(math.Remainder(float64(heading), 2*math.Pi))
		}
		s.Agents[i] = Agent{
			X:       wrapCoord(a.X, fw),
			Y:       wrapCoord(a.Y, fh),
			Heading: heading,
		}
	}
	return nil
}
