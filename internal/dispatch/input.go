package dispatch

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// DispatchError means the simulated-input channel itself is unavailable,
// for example because the target process exited. It is the only error kind
// Dispatch returns.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch: %v", e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Input issues simulated inputs. The robotgo backend drives the real mouse
// and keyboard; tests substitute recording fakes.
type Input interface {
	Click(x, y int, button string) error
	Tap(key string) error
}

// RobotInput drives the host mouse and keyboard through robotgo. Positions
// are shifted by the display offset so multi-monitor setups click where the
// frame was captured.
type RobotInput struct {
	OffsetX int
	OffsetY int
}

// NewRobotInput resolves the display's global offset once at startup.
func NewRobotInput(display int) *RobotInput {
	x, y, _, _ := robotgo.GetDisplayBounds(display)
	return &RobotInput{OffsetX: x, OffsetY: y}
}

func (r *RobotInput) Click(x, y int, button string) error {
	if button == "" {
		button = "left"
	}
	robotgo.MoveMouse(x+r.OffsetX, y+r.OffsetY)
	robotgo.Click(button)
	return nil
}

func (r *RobotInput) Tap(key string) error {
	return robotgo.KeyTap(key)
}
