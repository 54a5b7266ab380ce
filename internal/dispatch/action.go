package dispatch

import (
	"fmt"
	"time"
)

// ActionKind selects the simulated input an Action performs.
type ActionKind string

const (
	ActionClick ActionKind = "click"
	ActionKey   ActionKind = "key"
)

// Action is one candidate input for a state: where to click or which key to
// tap, how long the loop should wait afterwards, and how many times it may
// be issued per state entry before the next candidate is tried.
type Action struct {
	Kind   ActionKind
	X, Y   int    // click target in display coordinates
	Button string // mouse button; empty = left
	Key    string // key name for ActionKey

	Wait      time.Duration // loop pause after issuing, letting the screen react
	MaxIssues int           // issues allowed per state entry; 0 = unlimited
}

// Validate rejects actions that cannot be issued.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionClick:
		if a.X < 0 || a.Y < 0 {
			return fmt.Errorf("click action: negative coordinates (%d, %d)", a.X, a.Y)
		}
	case ActionKey:
		if a.Key == "" {
			return fmt.Errorf("key action: missing key name")
		}
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}

// Policy maps a state label to its ordered candidate actions. States without
// an entry get no input at all.
type Policy map[string][]Action

// Result reports what a dispatch call did.
type Result struct {
	State  string
	Action *Action // nil on no-op
	Issued bool
	DryRun bool
	Reason string // why nothing was issued, for the log
}

// NoOp reports whether the call deliberately did nothing.
func (r Result) NoOp() bool { return !r.Issued }
