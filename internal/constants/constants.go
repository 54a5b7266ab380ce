package constants

import "time"

// Defaults for settings a config file may omit. Safety-relevant thresholds
// (accept/tentative floors, failure budgets, stagnation window) have no
// defaults and must always be configured explicitly.
const (
	// Capture
	DefaultCaptureInterval = 150 * time.Millisecond // minimum spacing between screen grabs

	// Image Matching
	DefaultTolerance = 60.0 // color tolerance for pixel comparison

	// Ledger
	DefaultFlushInterval = 5 * time.Second // resource events are written at most this often
	DefaultLedgerPath    = "logs/resources.db"

	// Recovery
	DefaultRecoveryKey = "esc" // neutral key tapped when the loop is stuck
)
