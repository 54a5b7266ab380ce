// Package engine drives the capture → match → track → dispatch cycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dstube1/Bot2.0/internal/capture"
	"github.com/dstube1/Bot2.0/internal/dispatch"
	"github.com/dstube1/Bot2.0/internal/ledger"
	"github.com/dstube1/Bot2.0/internal/tracker"
	"github.com/dstube1/Bot2.0/internal/vision"
)

// Matcher scores templates against a frame. Satisfied by *vision.Matcher;
// tests script it.
type Matcher interface {
	Match(frame vision.Frame, templates []vision.Template) []vision.Match
}

// ResourceLog receives observed yields. Satisfied by *ledger.Ledger.
type ResourceLog interface {
	Append(e ledger.Entry)
	Tick(now time.Time) error
}

// Config carries the loop timings and failure budgets.
type Config struct {
	Interval         time.Duration // base cadence between cycles
	StagnationWindow time.Duration // unknown-for-this-long triggers one recovery action
	Recovery         dispatch.Action

	MaxCaptureFailures  int // consecutive capture errors before giving up
	MaxDispatchFailures int // consecutive dispatch errors before giving up
}

// Supervisor owns one run of the loop. All state is confined to the single
// loop goroutine; stopping is cooperative via the context, and no action is
// issued after the context is cancelled.
type Supervisor struct {
	cfg        Config
	capturer   capture.Capturer
	matcher    Matcher
	templates  []vision.Template
	tracker    *tracker.Tracker
	dispatcher *dispatch.Dispatcher
	resources  ResourceLog
	log        zerolog.Logger

	now func() time.Time

	captureFails  int
	dispatchFails int
	unknownSince  time.Time // zero while the belief carries a label
}

func New(cfg Config, cap capture.Capturer, m Matcher, templates []vision.Template,
	tr *tracker.Tracker, d *dispatch.Dispatcher, res ResourceLog, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		capturer:   cap,
		matcher:    m,
		templates:  templates,
		tracker:    tr,
		dispatcher: d,
		resources:  res,
		log:        log,
		now:        time.Now,
	}
}

// Run executes the loop until the context is cancelled or a failure budget
// is exhausted. A nil return is a clean stop; a non-nil return means
// unrecoverable resource loss and maps to a non-zero exit code.
func (s *Supervisor) Run(ctx context.Context) error {
	s.log.Info().
		Dur("interval", s.cfg.Interval).
		Dur("stagnation_window", s.cfg.StagnationWindow).
		Int("templates", len(s.templates)).
		Msg("loop started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("stop requested")
			return nil
		case <-timer.C:
			next, err := s.cycle(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					s.log.Info().Msg("stop requested")
					return nil
				}
				return err
			}
			timer.Reset(next)
		}
	}
}

// cycle runs one capture → match → update → dispatch pass. The returned
// error terminates the loop; everything recoverable is logged and absorbed
// here, degrading the belief to unknown rather than crashing the process.
func (s *Supervisor) cycle(ctx context.Context) (next time.Duration, err error) {
	next = s.cfg.Interval

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("cycle panicked, belief reset")
			s.tracker.Reset()
			s.noteUnknown()
			err = nil
		}
	}()

	frame, captureErr := s.capturer.Capture(ctx)
	if captureErr != nil {
		if errors.Is(captureErr, context.Canceled) {
			return 0, captureErr
		}
		return s.onCaptureFailure(captureErr)
	}
	s.captureFails = 0

	matches := s.matcher.Match(frame, s.templates)
	prev := s.tracker.Belief()
	belief := s.tracker.Update(matches)

	if belief.Label != prev.Label {
		s.onStateChange(prev, belief)
	}

	// Never act after a stop has been requested. This guards the recovery
	// path below as well as normal dispatch.
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	if belief.IsUnknown() {
		s.noteUnknown()
		if unknownFor := s.now().Sub(s.unknownSince); unknownFor >= s.cfg.StagnationWindow {
			s.log.Warn().Dur("unknown_for", unknownFor).Msg("stagnation window elapsed, recovering")
			if rerr := s.dispatcher.Recover(s.cfg.Recovery); rerr != nil {
				return s.onDispatchFailure(rerr)
			}
			// Restart the window so recovery fires once per window, not per cycle.
			s.unknownSince = s.now()
			if s.cfg.Recovery.Wait > 0 {
				next = s.cfg.Recovery.Wait
			}
			return next, nil
		}
	} else {
		s.unknownSince = time.Time{}
	}

	result, derr := s.dispatcher.Dispatch(belief)
	if derr != nil {
		return s.onDispatchFailure(derr)
	}
	s.dispatchFails = 0

	if result.Issued && result.Action.Wait > 0 {
		next = result.Action.Wait
	} else if result.NoOp() && !belief.IsUnknown() {
		s.log.Debug().Str("state", belief.Label).Str("reason", result.Reason).Msg("no action issued")
	}

	if terr := s.resources.Tick(s.now()); terr != nil {
		s.log.Error().Err(terr).Msg("ledger flush failed")
	}
	return next, nil
}

// onStateChange resets per-state budgets and credits the entered state's
// declared yield. Yields are credited once per confirmed entry, never per
// frame.
func (s *Supervisor) onStateChange(prev, belief tracker.Belief) {
	s.dispatcher.StateChanged()
	s.log.Info().
		Str("from", prev.Label).
		Str("to", belief.Label).
		Float64("confidence", belief.Confidence).
		Msg("state changed")

	if belief.IsUnknown() {
		return
	}
	for i := range s.templates {
		t := &s.templates[i]
		if t.Label == belief.Label && t.Resource != "" {
			s.resources.Append(ledger.Entry{
				Resource: t.Resource,
				Delta:    t.Yield,
				State:    t.Label,
				Observed: s.now(),
			})
			s.log.Info().Str("resource", t.Resource).Int64("delta", t.Yield).Msg("yield recorded")
			return
		}
	}
}

func (s *Supervisor) noteUnknown() {
	if s.unknownSince.IsZero() {
		s.unknownSince = s.now()
	}
}

// onCaptureFailure degrades the belief and backs the loop off. Capture is
// transient until it has failed MaxCaptureFailures cycles in a row; then the
// screen is considered gone for good.
func (s *Supervisor) onCaptureFailure(err error) (time.Duration, error) {
	s.captureFails++
	s.tracker.Reset()
	s.noteUnknown()

	var cerr *capture.CaptureError
	kind := "capture"
	if errors.As(err, &cerr) {
		kind = fmt.Sprintf("capture display %d", cerr.Display)
	}
	s.log.Error().Err(err).Int("consecutive", s.captureFails).Msg("capture failed")

	if s.captureFails >= s.cfg.MaxCaptureFailures {
		return 0, fmt.Errorf("%s unavailable after %d consecutive failures: %w", kind, s.captureFails, err)
	}

	// Exponential backoff, capped at 8x the base cadence.
	backoff := s.cfg.Interval << uint(min(s.captureFails-1, 3))
	return backoff, nil
}

// onDispatchFailure tolerates a lost input channel for a bounded number of
// consecutive cycles before shutting the loop down.
func (s *Supervisor) onDispatchFailure(err error) (time.Duration, error) {
	s.dispatchFails++
	s.log.Error().Err(err).Int("consecutive", s.dispatchFails).Msg("dispatch failed")

	if s.dispatchFails >= s.cfg.MaxDispatchFailures {
		return 0, fmt.Errorf("input channel lost after %d consecutive failures: %w", s.dispatchFails, err)
	}
	return s.cfg.Interval, nil
}
