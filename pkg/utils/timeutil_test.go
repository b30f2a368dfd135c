package utils

import (
	"testing"
	"time"
)

func TestExportTimestamp(t *testing.T) {
	ts := time.Date(2026, 8, 24, 15, 30, 12, 0, time.UTC)
	if got := ExportTimestamp(ts); got != "20260824_153012" {
		t.Errorf("ExportTimestamp = %s, want 20260824_153012", got)
	}
}

func TestFormatDateTime(t *testing.T) {
	ts := time.Date(2026, 8, 24, 15, 30, 12, 0, time.UTC)
	if got := FormatDateTime(ts); got != "2026-08-24 15:30:12 UTC" {
		t.Errorf("FormatDateTime = %s, want 2026-08-24 15:30:12 UTC", got)
	}
}

func TestRecencyWindow(t *testing.T) {
	start, end := RecencyWindow(7)
	if !start.Before(end) {
		t.Fatalf("RecencyWindow start %v not before end %v", start, end)
	}
	span := end.Sub(start)
	want := 7 * 24 * time.Hour
	// AddDate spans can shift by an hour across DST boundaries.
	if span < want-2*time.Hour || span > want+2*time.Hour {
		t.Errorf("RecencyWindow span = %v, want about %v", span, want)
	}
	if time.Since(end) > time.Minute {
		t.Errorf("RecencyWindow end = %v, want near now", end)
	}
}
