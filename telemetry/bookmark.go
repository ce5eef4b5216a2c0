package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkStructureEmerged BookmarkType = "structure_emerged"
	BookmarkCoverageCollapse BookmarkType = "coverage_collapse"
	BookmarkStablePattern    BookmarkType = "stable_pattern"
	BookmarkParamsChanged    BookmarkType = "params_changed"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType
	Frame       uint64
	Description string
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"frame", b.Frame,
		"description", b.Description,
	)
}

// BookmarkDetector watches window stats for moments worth a snapshot.
type BookmarkDetector struct {
	// Rolling history, oldest first
	history     []WindowStats
	historySize int

	recentCoveragePeak float64
	stableWindowsCount int
	emerged            bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable pattern detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, 0, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if len(bd.history) > 0 {
		if b := bd.checkParamsChanged(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStructureEmerged(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkCoverageCollapse(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStablePattern(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	if stats.Coverage > bd.recentCoveragePeak {
		bd.recentCoveragePeak = stats.Coverage
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	if len(bd.history) == bd.historySize {
		copy(bd.history, bd.history[1:])
		bd.history = bd.history[:len(bd.history)-1]
	}
	bd.history = append(bd.history, stats)
}

// contrast is the trail's coefficient of variation. Sharp networks of thin
// trails score high, a uniform haze scores low.
func contrast(s WindowStats) float64 {
	if s.TrailMean <= 0 {
		return 0
	}
	return s.TrailStd / s.TrailMean
}

func (bd *BookmarkDetector) checkParamsChanged(stats WindowStats) *Bookmark {
	prev := bd.history[len(bd.history)-1]
	if prev.MoveSpeed == stats.MoveSpeed &&
		prev.FadeSpeed == stats.FadeSpeed &&
		prev.DiffuseSpeed == stats.DiffuseSpeed &&
		prev.SensorSize == stats.SensorSize &&
		prev.SensorDistance == stats.SensorDistance &&
		prev.TurningSpeed == stats.TurningSpeed {
		return nil
	}
	// A new regime starts; pattern tracking starts over
	bd.stableWindowsCount = 0
	bd.emerged = false
	bd.recentCoveragePeak = 0
	return &Bookmark{
		Type:  BookmarkParamsChanged,
		Frame: stats.WindowEndFrame,
		Description: fmt.Sprintf("Parameters changed: move %.2f fade %.4f diffuse %.3f sensor %d@%.1f turn %.3f",
			stats.MoveSpeed, stats.FadeSpeed, stats.DiffuseSpeed, stats.SensorSize, stats.SensorDistance, stats.TurningSpeed),
	}
}

func (bd *BookmarkDetector) checkStructureEmerged(stats WindowStats) *Bookmark {
	if bd.emerged || len(bd.history) < 3 {
		return nil
	}

	cvs := make([]float64, len(bd.history))
	for i, h := range bd.history {
		cvs[i] = contrast(h)
	}
	avg := stat.Mean(cvs, nil)
	cur := contrast(stats)

	if avg > 0 && cur > 2*avg {
		bd.emerged = true
		return &Bookmark{
			Type:        BookmarkStructureEmerged,
			Frame:       stats.WindowEndFrame,
			Description: fmt.Sprintf("Trail contrast %.2f is %.1fx the rolling average", cur, cur/avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkCoverageCollapse(stats WindowStats) *Bookmark {
	if bd.recentCoveragePeak <= 0 {
		return nil
	}

	drop := 1 - stats.Coverage/bd.recentCoveragePeak
	if drop > 0.5 {
		oldPeak := bd.recentCoveragePeak
		bd.recentCoveragePeak = stats.Coverage
		return &Bookmark{
			Type:        BookmarkCoverageCollapse,
			Frame:       stats.WindowEndFrame,
			Description: fmt.Sprintf("Coverage fell %.0f%% from peak %.3f to %.3f", drop*100, oldPeak, stats.Coverage),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStablePattern(stats WindowStats) *Bookmark {
	if stats.TrailTotal <= 0 || len(bd.history) < 4 {
		bd.stableWindowsCount = 0
		return nil
	}

	recent := bd.history[len(bd.history)-4:]
	totals := make([]float64, 0, len(recent)+1)
	coverages := make([]float64, 0, len(recent)+1)
	for _, h := range recent {
		totals = append(totals, h.TrailTotal)
		coverages = append(coverages, h.Coverage)
	}
	totals = append(totals, stats.TrailTotal)
	coverages = append(coverages, stats.Coverage)

	totalMean, totalStd := stat.PopMeanStdDev(totals, nil)
	covMean, covStd := stat.PopMeanStdDev(coverages, nil)
	if totalMean <= 0 || covMean <= 0 || totalStd/totalMean > 0.05 || covStd/covMean > 0.05 {
		bd.stableWindowsCount = 0
		return nil
	}

	bd.stableWindowsCount++
	// Fire once when stability is first reached
	if bd.stableWindowsCount != 1 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStablePattern,
		Frame:       stats.WindowEndFrame,
		Description: fmt.Sprintf("Pattern stable over 5 windows: total %.0f coverage %.3f", totalMean, covMean),
	}
}
