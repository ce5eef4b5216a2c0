package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/slime/systems"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the full simulation state: every agent and every trail cell.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Width  int `json:"width"`
	Height int `json:"height"`

	Frame  uint64         `json:"frame"`
	Params systems.Params `json:"params"`

	Agents []systems.Agent `json:"agents"`
	Trail  []float32       `json:"trail"`
}

// CaptureSnapshot copies the current agents and trail map.
func CaptureSnapshot(seed int64, frame uint64, p systems.Params, agents *systems.AgentStore, trail *systems.TrailMap) *Snapshot {
	w, h := trail.GridSize()
	return &Snapshot{
		Version: SnapshotVersion,
		Seed:    seed,
		Width:   w,
		Height:  h,
		Frame:   frame,
		Params:  p,
		Agents:  append([]systems.Agent(nil), agents.Agents...),
		Trail:   append([]float32(nil), trail.Cells()...),
	}
}

// Restore writes the snapshot state into agents and trail. Both must have
// the snapshot's dimensions. Agents are wrapped onto the grid; a snapshot
// with non-finite agent state is rejected before anything is written.
// The caller resumes frame counting from s.Frame.
func (s *Snapshot) Restore(agents *systems.AgentStore, trail *systems.TrailMap) error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	if w, h := trail.GridSize(); w != s.Width || h != s.Height {
		return fmt.Errorf("snapshot grid %dx%d does not match %dx%d", s.Width, s.Height, w, h)
	}
	if len(s.Agents) != agents.Len() {
		return fmt.Errorf("snapshot holds %d agents, store holds %d", len(s.Agents), agents.Len())
	}
	if len(s.Trail) != s.Width*s.Height {
		return fmt.Errorf("snapshot holds %d trail cells, want %d", len(s.Trail), s.Width*s.Height)
	}
	if err := agents.Load(s.Agents, s.Width, s.Height); err != nil {
		return err
	}
	return trail.Load(s.Trail)
}

// SaveSnapshot writes a snapshot to dir.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Frame))

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
