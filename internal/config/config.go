// Package config loads and validates the single TOML settings file. It is
// read once at startup; there is no hot reload.
package config

import (
	"fmt"
	"image"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dstube1/Bot2.0/internal/constants"
)

// ConfigError reports invalid or missing settings. Always fatal at startup:
// safety-relevant thresholds are never silently defaulted.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func errf(field, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// Duration parses TOML strings like "500ms" or "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config is the full settings file.
type Config struct {
	Logging      string `toml:"logging"`
	TemplatesDir string `toml:"templates_dir"`

	Capture  CaptureConfig `toml:"capture"`
	Match    MatchConfig   `toml:"match"`
	Track    TrackConfig   `toml:"track"`
	Loop     LoopConfig    `toml:"loop"`
	Recovery ActionConfig  `toml:"recovery"`
	Ledger   LedgerConfig  `toml:"ledger"`
	States   []StateConfig `toml:"states"`
}

type CaptureConfig struct {
	Display     int      `toml:"display"`
	Region      []int    `toml:"region"` // x, y, w, h relative to display; empty = full
	MinInterval Duration `toml:"min_interval"`
}

type MatchConfig struct {
	Tolerance float64 `toml:"tolerance"`
	Floor     float64 `toml:"floor"`
}

type TrackConfig struct {
	Accept             float64 `toml:"accept"`
	Tentative          float64 `toml:"tentative"`
	LowConfidenceBound int     `toml:"low_confidence_bound"`
}

type LoopConfig struct {
	Interval            Duration `toml:"interval"`
	StagnationWindow    Duration `toml:"stagnation_window"`
	MaxCaptureFailures  int      `toml:"max_capture_failures"`
	MaxDispatchFailures int      `toml:"max_dispatch_failures"`
}

type LedgerConfig struct {
	Path          string   `toml:"path"`
	FlushInterval Duration `toml:"flush_interval"`
}

// StateConfig declares one recognizable screen state: its reference image,
// the optional search region and threshold, an optional resource yield, and
// the ordered candidate actions to take while the state is believed current.
type StateConfig struct {
	Label     string  `toml:"label"`
	Template  string  `toml:"template"` // filename under templates_dir
	Threshold float64 `toml:"threshold"`
	Region    []int   `toml:"region"` // x, y, w, h in frame coordinates; empty = whole frame

	Resource string `toml:"resource"`
	Yield    int64  `toml:"yield"`

	Actions []ActionConfig `toml:"actions"`
}

type ActionConfig struct {
	Kind      string   `toml:"kind"` // "click" or "key"
	X         int      `toml:"x"`
	Y         int      `toml:"y"`
	Button    string   `toml:"button"`
	Key       string   `toml:"key"`
	Wait      Duration `toml:"wait"`
	MaxIssues int      `toml:"max_issues"`
}

// Load reads, decodes and validates the settings file.
func Load(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, &ConfigError{Field: path, Err: err}
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return nil, errf(undec[0].String(), "unknown setting")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills only cosmetic settings. Thresholds, bounds, budgets and
// windows stay zero when omitted and fail validation instead.
func (c *Config) applyDefaults() {
	if c.Logging == "" {
		c.Logging = "info"
	}
	if c.Capture.MinInterval.Duration == 0 {
		c.Capture.MinInterval.Duration = constants.DefaultCaptureInterval
	}
	if c.Match.Tolerance == 0 {
		c.Match.Tolerance = constants.DefaultTolerance
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = constants.DefaultLedgerPath
	}
	if c.Ledger.FlushInterval.Duration == 0 {
		c.Ledger.FlushInterval.Duration = constants.DefaultFlushInterval
	}
	if c.Recovery.Kind == "" {
		c.Recovery.Kind = "key"
		c.Recovery.Key = constants.DefaultRecoveryKey
	}
}

// Validate enforces the startup contract.
func (c *Config) Validate() error {
	if c.TemplatesDir == "" {
		return errf("templates_dir", "required")
	}

	if c.Match.Floor <= 0 || c.Match.Floor >= 1 {
		return errf("match.floor", "must be in (0, 1), got %v", c.Match.Floor)
	}
	if c.Match.Tolerance <= 0 {
		return errf("match.tolerance", "must be positive, got %v", c.Match.Tolerance)
	}

	if c.Track.Accept <= 0 || c.Track.Accept > 1 {
		return errf("track.accept", "must be in (0, 1], got %v", c.Track.Accept)
	}
	if c.Track.Tentative <= 0 || c.Track.Tentative >= c.Track.Accept {
		return errf("track.tentative", "must be in (0, accept), got %v", c.Track.Tentative)
	}
	if c.Track.LowConfidenceBound < 1 {
		return errf("track.low_confidence_bound", "must be at least 1, got %d", c.Track.LowConfidenceBound)
	}

	if c.Loop.Interval.Duration <= 0 {
		return errf("loop.interval", "must be positive")
	}
	if c.Loop.StagnationWindow.Duration <= 0 {
		return errf("loop.stagnation_window", "must be positive")
	}
	if c.Loop.StagnationWindow.Duration < c.Loop.Interval.Duration {
		return errf("loop.stagnation_window", "must be at least one loop interval")
	}
	if c.Loop.MaxCaptureFailures < 1 {
		return errf("loop.max_capture_failures", "must be at least 1, got %d", c.Loop.MaxCaptureFailures)
	}
	if c.Loop.MaxDispatchFailures < 1 {
		return errf("loop.max_dispatch_failures", "must be at least 1, got %d", c.Loop.MaxDispatchFailures)
	}

	if len(c.Capture.Region) != 0 && len(c.Capture.Region) != 4 {
		return errf("capture.region", "want [x, y, w, h], got %d values", len(c.Capture.Region))
	}
	if c.Capture.Display < 0 {
		return errf("capture.display", "must not be negative")
	}

	if err := c.Recovery.validate("recovery"); err != nil {
		return err
	}

	if len(c.States) == 0 {
		return errf("states", "at least one state required")
	}
	seen := make(map[string]bool, len(c.States))
	for i, s := range c.States {
		field := fmt.Sprintf("states[%d]", i)
		if s.Label == "" {
			return errf(field+".label", "required")
		}
		if s.Label == "unknown" {
			return errf(field+".label", "reserved label")
		}
		if seen[s.Label] {
			return errf(field+".label", "duplicate label %q", s.Label)
		}
		seen[s.Label] = true
		if s.Template == "" {
			return errf(field+".template", "required")
		}
		if s.Threshold < 0 || s.Threshold > 1 {
			return errf(field+".threshold", "must be in [0, 1], got %v", s.Threshold)
		}
		if len(s.Region) != 0 && len(s.Region) != 4 {
			return errf(field+".region", "want [x, y, w, h], got %d values", len(s.Region))
		}
		if (s.Resource == "") != (s.Yield == 0) {
			return errf(field+".resource", "resource and yield must be set together")
		}
		for j, a := range s.Actions {
			if err := a.validate(fmt.Sprintf("%s.actions[%d]", field, j)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a ActionConfig) validate(field string) error {
	switch a.Kind {
	case "click":
		if a.X < 0 || a.Y < 0 {
			return errf(field, "negative click coordinates (%d, %d)", a.X, a.Y)
		}
	case "key":
		if a.Key == "" {
			return errf(field+".key", "required for key actions")
		}
	default:
		return errf(field+".kind", "must be \"click\" or \"key\", got %q", a.Kind)
	}
	if a.MaxIssues < 0 {
		return errf(field+".max_issues", "must not be negative")
	}
	return nil
}

// Rect converts a [x, y, w, h] slice into an image.Rectangle.
func Rect(v []int) image.Rectangle {
	if len(v) != 4 {
		return image.Rectangle{}
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3])
}
