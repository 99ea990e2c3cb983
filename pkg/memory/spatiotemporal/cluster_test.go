package spatiotemporal

import (
	"testing"
	"time"
)

func TestFromAge(t *testing.T) {
	now := time.Now().UTC()

	if g := FromAge(now.Add(-24 * time.Hour)); g != GranularityWeekly {
		t.Fatalf("expected weekly for a 1-day-old episode, got %v", g)
	}
	if g := FromAge(now.Add(-60 * 24 * time.Hour)); g != GranularityMonthly {
		t.Fatalf("expected monthly for a 60-day-old episode, got %v", g)
	}
	if g := FromAge(now.Add(-200 * 24 * time.Hour)); g != GranularityQuarterly {
		t.Fatalf("expected quarterly for a 200-day-old episode, got %v", g)
	}
}

func TestClusterContainsTimestamp(t *testing.T) {
	c := NewCluster(time.Now().UTC(), GranularityWeekly)
	if !c.ContainsTimestamp(c.StartTime) {
		t.Fatal("expected the start time itself to be contained")
	}
	if c.ContainsTimestamp(c.EndTime) {
		t.Fatal("expected the end time to be exclusive")
	}
}

func TestClusterAddAndRemoveEpisodeDeduplicates(t *testing.T) {
	c := NewCluster(time.Now().UTC(), GranularityWeekly)
	id := mustNewUUID(t)

	c.AddEpisode(id)
	c.AddEpisode(id)
	if c.Size() != 1 {
		t.Fatalf("expected adding the same episode twice to dedupe, got size %d", c.Size())
	}

	if !c.RemoveEpisode(id) {
		t.Fatal("expected removal to succeed")
	}
	if !c.IsEmpty() {
		t.Fatal("expected the cluster to be empty after removal")
	}
}

func TestWeeklyBoundsAlignToSunday(t *testing.T) {
	// 2026-07-31 is a Friday.
	ts := time.Date(2026, 7, 31, 15, 30, 0, 0, time.UTC)
	start, end := computeBounds(ts, GranularityWeekly)

	if start.Weekday() != time.Sunday {
		t.Fatalf("expected the cluster start to align to Sunday, got %v", start.Weekday())
	}
	if start.Hour() != 0 || start.Minute() != 0 || start.Second() != 0 {
		t.Fatal("expected the cluster start to be truncated to midnight")
	}
	if !end.After(start) {
		t.Fatal("expected end to be after start")
	}
}
