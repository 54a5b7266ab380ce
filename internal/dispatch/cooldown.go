package dispatch

import (
	"strconv"
)

// issueLedger counts how often each candidate action has been issued for the
// current state entry. A candidate that reaches its MaxIssues budget without
// the state changing is treated as exhausted and the dispatcher moves on to
// the next one, so a dead button cannot be clicked forever.
type issueLedger struct {
	counts map[string]int
}

func newIssueLedger() *issueLedger {
	return &issueLedger{counts: make(map[string]int)}
}

func (l *issueLedger) key(state string, candidate int) string {
	return state + "#" + strconv.Itoa(candidate)
}

// Exhausted reports whether the candidate has used up its issue budget.
func (l *issueLedger) Exhausted(state string, candidate int, max int) bool {
	if max <= 0 {
		return false
	}
	return l.counts[l.key(state, candidate)] >= max
}

// Record counts one issue of the candidate.
func (l *issueLedger) Record(state string, candidate int) {
	l.counts[l.key(state, candidate)]++
}

// Issues returns the recorded issue count for a candidate.
func (l *issueLedger) Issues(state string, candidate int) int {
	return l.counts[l.key(state, candidate)]
}

// Reset clears all counters. Called whenever the believed state changes:
// a fresh state entry gets the full budget again.
func (l *issueLedger) Reset() {
	l.counts = make(map[string]int)
}
