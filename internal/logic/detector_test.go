package logic

import (
	"testing"
)

var defaultThresholds = Thresholds{High: 2750, Low: 2650, MinStable: 3}

// setupOnlineDetector returns a detector that has already confirmed Online.
func setupOnlineDetector(t *testing.T) *Detector {
	t.Helper()
	d := NewDetector(defaultThresholds)
	for i := 0; i < defaultThresholds.MinStable; i++ {
		d.Update(2800)
	}
	if d.Confirmed() != VerdictOnline {
		t.Fatalf("setup: expected online, got %s", d.Confirmed())
	}
	return d
}

func TestNewDetector(t *testing.T) {
	d := NewDetector(defaultThresholds)
	if d == nil {
		t.Fatal("NewDetector returned nil")
	}
	if d.Confirmed() != VerdictOffline {
		t.Errorf("expected initial verdict offline, got %s", d.Confirmed())
	}
	if d.Pending() != "" {
		t.Errorf("expected no pending verdict, got %q", d.Pending())
	}
	if d.StabilityCount() != 0 {
		t.Errorf("expected stability 0, got %d", d.StabilityCount())
	}
	if d.Thresholds() != defaultThresholds {
		t.Errorf("thresholds: got %+v, want %+v", d.Thresholds(), defaultThresholds)
	}
}

func TestGoesOnlineAfterMinStable(t *testing.T) {
	d := NewDetector(defaultThresholds)

	for i := 1; i <= 5; i++ {
		ev := d.Update(2800)
		switch {
		case i < 3:
			if ev != nil {
				t.Fatalf("reading %d: unexpected event %+v", i, ev)
			}
			if d.Confirmed() != VerdictOffline {
				t.Fatalf("reading %d: flipped too early", i)
			}
		case i == 3:
			if ev == nil {
				t.Fatal("reading 3: expected StateChanged")
			}
			if ev.From != VerdictOffline || ev.To != VerdictOnline {
				t.Errorf("event: got %s->%s, want offline->online", ev.From, ev.To)
			}
			if ev.Reading != 2800 {
				t.Errorf("event reading: got %d, want 2800", ev.Reading)
			}
			if d.StabilityCount() != 0 {
				t.Errorf("stability after flip: got %d, want 0", d.StabilityCount())
			}
		default:
			if ev != nil {
				t.Fatalf("reading %d: unexpected second event", i)
			}
		}
	}
	if d.Confirmed() != VerdictOnline {
		t.Errorf("expected online, got %s", d.Confirmed())
	}
}

func TestSingleSpikeDoesNotFlip(t *testing.T) {
	d := NewDetector(defaultThresholds)

	if ev := d.Update(4000); ev != nil {
		t.Fatalf("unexpected event on single spike: %+v", ev)
	}
	if d.Confirmed() != VerdictOffline {
		t.Errorf("expected offline after single spike, got %s", d.Confirmed())
	}
}

func TestDebounceResetsOnDisagreement(t *testing.T) {
	d := NewDetector(defaultThresholds)

	for i := 0; i < defaultThresholds.MinStable-1; i++ {
		d.Update(2800)
	}
	if d.StabilityCount() != defaultThresholds.MinStable-1 {
		t.Fatalf("stability: got %d, want %d", d.StabilityCount(), defaultThresholds.MinStable-1)
	}

	// Below High while offline: candidate is offline again.
	if ev := d.Update(2700); ev != nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if d.Confirmed() != VerdictOffline {
		t.Errorf("verdict changed: %s", d.Confirmed())
	}
	if d.Pending() != VerdictOffline {
		t.Errorf("pending: got %s, want offline", d.Pending())
	}
	if d.StabilityCount() != 1 {
		t.Errorf("stability after disagreement: got %d, want 1", d.StabilityCount())
	}

	// Needs a fresh full run of agreeing readings.
	d.Update(2800)
	d.Update(2800)
	if d.Confirmed() != VerdictOffline {
		t.Error("flipped before a full run of agreeing readings")
	}
	if ev := d.Update(2800); ev == nil {
		t.Error("expected flip after full run")
	}
}

func TestGoesOfflineOnlyBelowLow(t *testing.T) {
	d := setupOnlineDetector(t)

	// At or just above Low is still online.
	for i := 0; i < 10; i++ {
		if ev := d.Update(2651); ev != nil {
			t.Fatalf("unexpected event above Low: %+v", ev)
		}
	}

	for i := 1; i <= 3; i++ {
		ev := d.Update(2650)
		if i < 3 && ev != nil {
			t.Fatalf("reading %d: flipped early", i)
		}
		if i == 3 {
			if ev == nil {
				t.Fatal("expected offline event")
			}
			if ev.From != VerdictOnline || ev.To != VerdictOffline {
				t.Errorf("event: got %s->%s", ev.From, ev.To)
			}
		}
	}
	if d.Confirmed() != VerdictOffline {
		t.Errorf("expected offline, got %s", d.Confirmed())
	}
}

func TestHysteresisBandHoldsVerdict(t *testing.T) {
	band := []int{2651, 2749, 2700, 2660, 2740, 2651, 2749}

	t.Run("offline", func(t *testing.T) {
		d := NewDetector(defaultThresholds)
		for i := 0; i < 20; i++ {
			if ev := d.Update(band[i%len(band)]); ev != nil {
				t.Fatalf("reading %d: unexpected event %+v", i, ev)
			}
		}
		if d.Confirmed() != VerdictOffline {
			t.Errorf("expected offline, got %s", d.Confirmed())
		}
	})

	t.Run("online", func(t *testing.T) {
		d := setupOnlineDetector(t)
		for i := 0; i < 20; i++ {
			if ev := d.Update(band[i%len(band)]); ev != nil {
				t.Fatalf("reading %d: unexpected event %+v", i, ev)
			}
		}
		if d.Confirmed() != VerdictOnline {
			t.Errorf("expected online, got %s", d.Confirmed())
		}
	})
}

func TestSingleThresholdWouldFlap(t *testing.T) {
	// Alternating across High every reading never accumulates MinStable.
	d := NewDetector(defaultThresholds)
	for i := 0; i < 30; i++ {
		v := 2700
		if i%2 == 0 {
			v = 2800
		}
		if ev := d.Update(v); ev != nil {
			t.Fatalf("reading %d: unexpected event", i)
		}
	}
}

func TestExtremeReadings(t *testing.T) {
	d := NewDetector(defaultThresholds)
	for _, v := range []int{-1, 0, 1 << 20, 1 << 20, 1 << 20} {
		d.Update(v)
	}
	if d.Confirmed() != VerdictOnline {
		t.Errorf("expected online after 3 large readings, got %s", d.Confirmed())
	}
}

func TestMinStableOne(t *testing.T) {
	d := NewDetector(Thresholds{High: 2750, Low: 2650, MinStable: 1})
	if ev := d.Update(2800); ev == nil {
		t.Fatal("expected immediate flip with MinStable=1")
	}
	if ev := d.Update(2600); ev == nil {
		t.Fatal("expected immediate flip back with MinStable=1")
	}
	if d.Confirmed() != VerdictOffline {
		t.Errorf("expected offline, got %s", d.Confirmed())
	}
}

func TestRepeatedFlips(t *testing.T) {
	d := NewDetector(defaultThresholds)
	var events []StateChanged

	seq := []int{
		2800, 2800, 2800, // online
		2600, 2600, 2600, // offline
		2800, 2800, 2800, // online
	}
	for _, v := range seq {
		if ev := d.Update(v); ev != nil {
			events = append(events, *ev)
		}
	}

	want := []Verdict{VerdictOnline, VerdictOffline, VerdictOnline}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		if ev.To != want[i] {
			t.Errorf("event %d: got %s, want %s", i, ev.To, want[i])
		}
	}
}
