// Package capture grabs still frames of the target display for the matcher.
package capture

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/dstube1/Bot2.0/internal/vision"
)

// CaptureError reports a transient failure to read the screen: the display
// went away, the region is off-screen, or the capture API denied access.
type CaptureError struct {
	Display int
	Err     error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture display %d: %v", e.Display, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Capturer produces frames. The screen-backed implementation blocks; tests
// substitute scripted fakes.
type Capturer interface {
	Capture(ctx context.Context) (vision.Frame, error)
}

// ScreenCapturer captures a display (or a sub-region of it) via the OS
// screenshot API. Calls are rate limited so a tight loop cannot saturate
// the host compositor.
type ScreenCapturer struct {
	Display     int
	Region      image.Rectangle // sub-region in display coordinates; empty = full display
	MinInterval time.Duration

	lastCapture time.Time
}

func NewScreenCapturer(display int, region image.Rectangle, minInterval time.Duration) *ScreenCapturer {
	return &ScreenCapturer{
		Display:     display,
		Region:      region,
		MinInterval: minInterval,
	}
}

// Capture grabs one frame, sleeping first if the previous grab was less than
// MinInterval ago. Cancelling the context aborts the wait.
func (c *ScreenCapturer) Capture(ctx context.Context) (vision.Frame, error) {
	if wait := c.MinInterval - time.Since(c.lastCapture); wait > 0 {
		select {
		case <-ctx.Done():
			return vision.Frame{}, ctx.Err()
		case <-time.After(wait):
		}
	}

	if c.Display < 0 || c.Display >= screenshot.NumActiveDisplays() {
		return vision.Frame{}, &CaptureError{Display: c.Display, Err: fmt.Errorf("display not found")}
	}

	bounds := screenshot.GetDisplayBounds(c.Display)
	if !c.Region.Empty() {
		bounds = c.Region.Add(bounds.Min).Intersect(bounds)
		if bounds.Empty() {
			return vision.Frame{}, &CaptureError{Display: c.Display, Err: fmt.Errorf("region outside display bounds")}
		}
	}

	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return vision.Frame{}, &CaptureError{Display: c.Display, Err: err}
	}

	c.lastCapture = time.Now()
	return vision.Frame{Image: img, Region: bounds, CapturedAt: c.lastCapture}, nil
}
