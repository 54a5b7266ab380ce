package tracker

import (
	"testing"

	"github.com/dstube1/Bot2.0/internal/vision"
)

func matches(label string, confidence float64) []vision.Match {
	return []vision.Match{{Label: label, Confidence: confidence}}
}

func TestStartsUnknown(t *testing.T) {
	tr := New(0.8, 0.3, 5)
	if b := tr.Belief(); !b.IsUnknown() {
		t.Fatalf("initial belief = %q, want unknown", b.Label)
	}
}

func TestAcceptAdoptsImmediately(t *testing.T) {
	tr := New(0.8, 0.3, 5)
	b := tr.Update(matches("main_menu", 0.95))
	if b.Label != "main_menu" {
		t.Fatalf("belief = %q, want main_menu", b.Label)
	}
	if b.LowStreak != 0 {
		t.Errorf("low streak = %d, want 0", b.LowStreak)
	}
}

// A tentative observation of a different label must not switch the belief:
// a single misread frame never drives an action.
func TestNoDirectSwitchOnTentative(t *testing.T) {
	tr := New(0.8, 0.3, 5)
	tr.Update(matches("main_menu", 0.95))

	b := tr.Update(matches("loading", 0.40))
	if b.Label != "main_menu" {
		t.Fatalf("belief switched to %q on a tentative frame", b.Label)
	}
	if b.LowStreak != 1 {
		t.Errorf("low streak = %d, want 1", b.LowStreak)
	}
}

func TestScenarioMenuToLoading(t *testing.T) {
	tr := New(0.8, 0.3, 5)

	seq := []struct {
		label string
		conf  float64
		want  string
	}{
		{"main_menu", 0.95, "main_menu"},
		{"loading", 0.40, "main_menu"}, // smoothed
		{"loading", 0.92, "loading"},
	}
	for i, step := range seq {
		b := tr.Update(matches(step.label, step.conf))
		if b.Label != step.want {
			t.Fatalf("step %d: belief = %q, want %q", i, b.Label, step.want)
		}
	}
}

func TestTentativeAgreementSustainsBelief(t *testing.T) {
	tr := New(0.8, 0.3, 5)
	tr.Update(matches("farm", 0.9))

	for i := 1; i <= 5; i++ {
		b := tr.Update(matches("farm", 0.5))
		if b.Label != "farm" {
			t.Fatalf("cycle %d: belief = %q, want farm", i, b.Label)
		}
		if b.LowStreak != i {
			t.Fatalf("cycle %d: low streak = %d, want %d", i, b.LowStreak, i)
		}
	}
}

// With bound 5, ten tentative cycles at 0.5 must collapse the belief to
// unknown exactly at the sixth.
func TestCollapseAtBoundPlusOne(t *testing.T) {
	tr := New(0.8, 0.3, 5)
	tr.Update(matches("farm", 0.9))

	for i := 1; i <= 10; i++ {
		b := tr.Update(matches("farm", 0.5))
		wantUnknown := i >= 6
		if b.IsUnknown() != wantUnknown {
			t.Fatalf("cycle %d: unknown = %v, want %v", i, b.IsUnknown(), wantUnknown)
		}
	}
}

func TestEmptyMatchesEventuallyCollapse(t *testing.T) {
	tr := New(0.8, 0.3, 2)
	tr.Update(matches("farm", 0.9))

	if b := tr.Update(nil); b.Label != "farm" {
		t.Fatalf("belief dropped after one empty cycle")
	}
	if b := tr.Update(nil); b.Label != "farm" {
		t.Fatalf("belief dropped at the bound")
	}
	if b := tr.Update(nil); !b.IsUnknown() {
		t.Fatalf("belief survived past the bound: %q", b.Label)
	}
}

// Only an accept-level observation leads out of unknown; tentative matches
// keep the tracker unknown no matter how often they repeat.
func TestOnlyAcceptLeavesUnknown(t *testing.T) {
	tr := New(0.8, 0.3, 5)

	for i := 0; i < 20; i++ {
		if b := tr.Update(matches("farm", 0.79)); !b.IsUnknown() {
			t.Fatalf("tentative match adopted from unknown at cycle %d", i)
		}
	}
	if b := tr.Update(matches("farm", 0.80)); b.Label != "farm" {
		t.Fatalf("accept-level match not adopted: %q", b.Label)
	}
}

func TestAcceptResetsLowStreak(t *testing.T) {
	tr := New(0.8, 0.3, 5)
	tr.Update(matches("farm", 0.9))
	tr.Update(matches("farm", 0.5))
	tr.Update(matches("farm", 0.5))

	b := tr.Update(matches("farm", 0.85))
	if b.LowStreak != 0 {
		t.Fatalf("low streak = %d after accept, want 0", b.LowStreak)
	}
}

func TestReset(t *testing.T) {
	tr := New(0.8, 0.3, 5)
	tr.Update(matches("farm", 0.9))
	tr.Reset()
	if b := tr.Belief(); !b.IsUnknown() {
		t.Fatalf("belief after reset = %q, want unknown", b.Label)
	}
}
