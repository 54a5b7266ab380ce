// Package tracker maintains the bot's belief about which game state is on
// screen, smoothing over single-frame misreads.
package tracker

import (
	"github.com/dstube1/Bot2.0/internal/vision"
)

// Unknown is the label used when the tracker has no confident belief.
const Unknown = "unknown"

// Belief is the current best-guess on-screen state.
type Belief struct {
	Label      string
	Confidence float64
	LowStreak  int // consecutive updates without an accept-level observation
}

// IsUnknown reports whether the belief carries no usable state label.
func (b Belief) IsUnknown() bool { return b.Label == Unknown }

// Tracker applies the belief-update policy:
//   - top match at or above Accept is adopted immediately and the low streak resets
//   - a tentative match agreeing with the current belief keeps it (flicker smoothing)
//   - the low streak past Bound collapses the belief to unknown
//
// A belief never jumps from one label straight to another without an
// accept-level observation, so a single misread frame cannot trigger an action.
type Tracker struct {
	Accept    float64 // confidence at which a label is adopted outright
	Tentative float64 // confidence at which an agreeing label sustains the belief
	Bound     int     // low-confidence updates tolerated before collapsing to unknown

	belief Belief
}

func New(accept, tentative float64, bound int) *Tracker {
	return &Tracker{
		Accept:    accept,
		Tentative: tentative,
		Bound:     bound,
		belief:    Belief{Label: Unknown},
	}
}

// Belief returns the current belief without updating it.
func (t *Tracker) Belief() Belief { return t.belief }

// Update folds one cycle's matches into the belief and returns the result.
// matches must be sorted by descending confidence (the matcher's contract).
func (t *Tracker) Update(matches []vision.Match) Belief {
	if len(matches) > 0 {
		top := matches[0]
		if top.Confidence >= t.Accept {
			t.belief = Belief{Label: top.Label, Confidence: top.Confidence}
			return t.belief
		}
		if top.Confidence >= t.Tentative && top.Label == t.belief.Label && !t.belief.IsUnknown() {
			// Same state seen at reduced confidence: keep the belief but
			// remember that we have not had a clean read for a while.
			t.belief.Confidence = top.Confidence
			t.belief.LowStreak++
			if t.belief.LowStreak > t.Bound {
				t.belief = Belief{Label: Unknown, LowStreak: t.belief.LowStreak}
			}
			return t.belief
		}
	}

	// Nothing usable this cycle: either no match at all, or a disagreeing
	// match below the accept threshold. The belief survives until the
	// streak exceeds the bound; it never switches labels here.
	t.belief.LowStreak++
	if t.belief.LowStreak > t.Bound {
		t.belief = Belief{Label: Unknown, LowStreak: t.belief.LowStreak}
	}
	return t.belief
}

// Reset forces the belief back to unknown. The supervisor calls this after a
// cycle-level failure so a stale belief cannot drive further actions.
func (t *Tracker) Reset() {
	t.belief = Belief{Label: Unknown}
}
