package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/slime/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("expected nil manager for empty dir, got %v, %v", om, err)
	}
	// Methods are nil-safe
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 3; i++ {
		stats := WindowStats{WindowEndFrame: uint64(i * 600), Agents: 100, TrailTotal: float64(i)}
		if err := om.WriteTelemetry(stats); err != nil {
			t.Fatal(err)
		}
		if err := om.WritePerf(PerfStats{}, uint64(i*600)); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkStablePattern, Frame: 1800, Description: "stable, for a while"}); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var rows []WindowStats
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows under one header, got %d", len(rows))
	}
	if rows[2].WindowEndFrame != 1800 || rows[2].TrailTotal != 3 {
		t.Errorf("unexpected last row: %+v", rows[2])
	}

	if _, err := os.Stat(filepath.Join(dir, "perf.csv")); err != nil {
		t.Errorf("perf.csv missing: %v", err)
	}

	bf, err := os.Open(filepath.Join(dir, "bookmarks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer bf.Close()
	var marks []bookmarkCSV
	if err := gocsv.UnmarshalFile(bf, &marks); err != nil {
		t.Fatalf("reading bookmarks.csv: %v", err)
	}
	if len(marks) != 1 || marks[0].Type != "stable_pattern" || marks[0].Description != "stable, for a while" {
		t.Errorf("unexpected bookmarks: %+v", marks)
	}
}

func TestOutputManagerWritesConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	om, err := NewOutputManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	if err := om.WriteConfig(cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := config.Load(filepath.Join(om.Dir(), "config.yaml"))
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if loaded.Grid != cfg.Grid {
		t.Errorf("grid changed through the round trip: %+v vs %+v", loaded.Grid, cfg.Grid)
	}
}
