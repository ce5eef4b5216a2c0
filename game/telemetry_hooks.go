package game

import (
	"log/slog"

	"github.com/pthm-cable/slime/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	frame := g.sched.Frames()
	if !g.collector.ShouldFlush(frame) {
		return
	}

	stats := g.collector.Flush(frame, g.sched.Wraps(), g.agents.Len(), g.trail.Cells(), g.store.Params())
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	// Console output
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndFrame); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if g.outputManager != nil {
			if err := g.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}
		if g.snapshotDir != "" {
			g.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot writes the current state to the snapshot directory. A nil
// bookmark means a manual save.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	dir := g.snapshotDir
	if dir == "" {
		dir = "snapshots"
	}

	path, err := telemetry.SaveSnapshot(g.Snapshot(), dir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	reason := "manual"
	if bookmark != nil {
		reason = string(bookmark.Type)
	}
	slog.Info("snapshot saved", "path", path, "frame", g.sched.Frames(), "reason", reason)
}
