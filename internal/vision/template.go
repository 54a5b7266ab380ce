package vision

import (
	"fmt"
	"image"
	_ "image/png" // Register PNG decoder for image.Decode
	"os"
)

// Template is a named reference image for one known game state.
// Loaded once at startup and shared read-only afterwards.
type Template struct {
	Label     string
	Image     image.Image
	Region    image.Rectangle // search area in frame coordinates; empty = whole frame
	Threshold float64         // per-template confidence floor; 0 = use matcher floor

	// Resource yield credited when the tracker confirms entry into this state.
	Resource string
	Yield    int64
}

// MatchError reports a corrupt or unusable template asset.
type MatchError struct {
	Path string
	Err  error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Path, e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }

// LoadImage decodes a reference image from disk. A missing or undecodable
// file is a MatchError, fatal at startup.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MatchError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &MatchError{Path: path, Err: err}
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, &MatchError{Path: path, Err: fmt.Errorf("empty image")}
	}
	return img, nil
}
