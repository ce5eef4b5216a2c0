package telemetry

import "testing"

func windowAt(i int) WindowStats {
	return WindowStats{
		WindowEndFrame: uint64(i * 600),
		TrailTotal:     1000,
		TrailMean:      0.1,
		TrailStd:       0.05,
		Coverage:       0.4,
		MoveSpeed:      1,
		SensorSize:     1,
		SensorDistance: 9,
		TurningSpeed:   0.3,
	}
}

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_StructureEmerged(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 3; i++ {
		s := windowAt(i)
		s.TrailTotal = float64(500 + 200*i) // keep stable pattern out of the way
		bd.Check(s)
	}

	sharp := windowAt(3)
	sharp.TrailStd = 0.3 // contrast 3.0 vs 0.5 average
	bookmarks := bd.Check(sharp)
	if !hasBookmark(bookmarks, BookmarkStructureEmerged) {
		t.Fatalf("expected structure_emerged, got %+v", bookmarks)
	}

	again := windowAt(4)
	again.TrailStd = 0.6
	if hasBookmark(bd.Check(again), BookmarkStructureEmerged) {
		t.Error("structure_emerged should fire once per regime")
	}
}

func TestBookmarkDetector_CoverageCollapse(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(windowAt(0))

	collapsed := windowAt(1)
	collapsed.Coverage = 0.1
	bookmarks := bd.Check(collapsed)
	if !hasBookmark(bookmarks, BookmarkCoverageCollapse) {
		t.Fatalf("expected coverage_collapse, got %+v", bookmarks)
	}

	// Peak resets to the collapsed level
	same := windowAt(2)
	same.Coverage = 0.1
	if hasBookmark(bd.Check(same), BookmarkCoverageCollapse) {
		t.Error("expected no repeat collapse at the new level")
	}
}

func TestBookmarkDetector_StablePattern(t *testing.T) {
	bd := NewBookmarkDetector(10)

	var fired int
	for i := 0; i < 8; i++ {
		if hasBookmark(bd.Check(windowAt(i)), BookmarkStablePattern) {
			fired++
			if i != 4 {
				t.Errorf("expected first stable bookmark at window 4, got %d", i)
			}
		}
	}
	if fired != 1 {
		t.Errorf("expected stable_pattern exactly once, got %d", fired)
	}
}

func TestBookmarkDetector_ParamsChanged(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(windowAt(0))

	if hasBookmark(bd.Check(windowAt(1)), BookmarkParamsChanged) {
		t.Error("unchanged params should not bookmark")
	}

	edited := windowAt(2)
	edited.SensorDistance = 20
	if !hasBookmark(bd.Check(edited), BookmarkParamsChanged) {
		t.Error("expected params_changed after an edit")
	}
}
