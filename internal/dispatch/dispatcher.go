// Package dispatch turns a believed game state into at most one simulated
// input per loop cycle, according to the configured per-state policy.
package dispatch

import (
	"github.com/rs/zerolog"

	"github.com/dstube1/Bot2.0/internal/tracker"
)

// Dispatcher selects and issues actions. It never guesses: an unknown belief
// or a state without configured actions yields a no-op result. An issued
// action is never retried inside the same call; if it had no effect, the next
// loop cycle observes the unchanged state and dispatch runs again.
type Dispatcher struct {
	policy Policy
	input  Input
	dryRun bool
	log    zerolog.Logger

	ledger *issueLedger
}

func New(policy Policy, input Input, dryRun bool, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		policy: policy,
		input:  input,
		dryRun: dryRun,
		log:    log,
		ledger: newIssueLedger(),
	}
}

// StateChanged resets per-state issue budgets. The supervisor calls it when
// the tracker's belief moves to a different label.
func (d *Dispatcher) StateChanged() {
	d.ledger.Reset()
}

// Dispatch issues the first non-exhausted candidate action for the believed
// state. Calling it repeatedly with an unknown belief is a harmless no-op
// every time. The returned error is non-nil only when the input channel
// itself failed.
func (d *Dispatcher) Dispatch(belief tracker.Belief) (Result, error) {
	if belief.IsUnknown() {
		return Result{State: belief.Label, Reason: "state unknown"}, nil
	}

	candidates, ok := d.policy[belief.Label]
	if !ok || len(candidates) == 0 {
		return Result{State: belief.Label, Reason: "no actions configured"}, nil
	}

	for i := range candidates {
		a := &candidates[i]
		if d.ledger.Exhausted(belief.Label, i, a.MaxIssues) {
			d.log.Debug().
				Str("state", belief.Label).
				Int("candidate", i).
				Int("issues", d.ledger.Issues(belief.Label, i)).
				Msg("candidate exhausted, trying next")
			continue
		}

		if d.dryRun {
			d.log.Info().
				Str("state", belief.Label).
				Str("kind", string(a.Kind)).
				Msg("dry run: action suppressed")
			return Result{State: belief.Label, Action: a, DryRun: true, Reason: "dry run"}, nil
		}

		if err := d.issue(a); err != nil {
			return Result{State: belief.Label, Action: a}, &DispatchError{Err: err}
		}
		d.ledger.Record(belief.Label, i)
		d.log.Info().
			Str("state", belief.Label).
			Str("kind", string(a.Kind)).
			Int("x", a.X).Int("y", a.Y).
			Str("key", a.Key).
			Int("issue", d.ledger.Issues(belief.Label, i)).
			Msg("action issued")
		return Result{State: belief.Label, Action: a, Issued: true}, nil
	}

	return Result{State: belief.Label, Reason: "all candidates exhausted"}, nil
}

func (d *Dispatcher) issue(a *Action) error {
	switch a.Kind {
	case ActionClick:
		return d.input.Click(a.X, a.Y, a.Button)
	case ActionKey:
		return d.input.Tap(a.Key)
	}
	return nil
}

// Recover issues the configured recovery action directly, bypassing the
// policy table. The supervisor uses it when the belief has been unknown for
// a whole stagnation window.
func (d *Dispatcher) Recover(a Action) error {
	if d.dryRun {
		d.log.Info().Str("kind", string(a.Kind)).Msg("dry run: recovery suppressed")
		return nil
	}
	if err := d.issue(&a); err != nil {
		return &DispatchError{Err: err}
	}
	d.log.Warn().Str("kind", string(a.Kind)).Str("key", a.Key).Msg("recovery action issued")
	return nil
}
