package vision

import (
	"image"
	"time"
)

// Frame is a single captured screen image. It is immutable once produced:
// the capture step that created it hands it to the matcher and drops it.
type Frame struct {
	Image      image.Image
	Region     image.Rectangle // screen area the image covers, in display coordinates
	CapturedAt time.Time
}

// Bounds returns the pixel bounds of the underlying image.
func (f Frame) Bounds() image.Rectangle {
	if f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}
