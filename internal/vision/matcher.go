package vision

import (
	"image"
	"math"
	"sort"
)

// Match is one confidence-scored template hit on a frame.
type Match struct {
	Label      string
	Confidence float64
	Location   image.Point // top-left of the matched area, in frame coordinates
	Size       image.Point
}

// Matcher scores templates against captured frames. Matching is approximate:
// a pixel counts as matching when its RGB distance to the template pixel is
// within Tolerance, and the confidence of a placement is the fraction of
// opaque template pixels that match. Fully transparent template pixels act
// as wildcards. The scan order is fixed, so results are deterministic for a
// given frame/template pair.
type Matcher struct {
	Tolerance float64 // max Euclidean RGB distance for a pixel to count as matching
	Floor     float64 // minimum confidence for a match to be reported at all
}

// NewMatcher creates a matcher with the given pixel tolerance and confidence floor.
func NewMatcher(tolerance, floor float64) *Matcher {
	return &Matcher{Tolerance: tolerance, Floor: floor}
}

// Match scores every template against the frame and returns hits sorted by
// descending confidence. Templates whose best placement scores below the
// floor (or their own threshold, if higher) are omitted. Partial occlusion
// lowers the confidence instead of failing the template outright.
func (m *Matcher) Match(frame Frame, templates []Template) []Match {
	if frame.Image == nil {
		return nil
	}

	var out []Match
	for i := range templates {
		t := &templates[i]
		if t.Image == nil {
			continue
		}
		floor := m.Floor
		if t.Threshold > floor {
			floor = t.Threshold
		}
		if hit, ok := m.matchOne(frame.Image, t, floor); ok {
			out = append(out, hit)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// matchOne slides the template over its search region and keeps the best
// scoring placement. Scan order is row-major and improvements must be
// strictly greater, so the returned placement is unique for fixed inputs.
func (m *Matcher) matchOne(screen image.Image, t *Template, floor float64) (Match, bool) {
	sBounds := screen.Bounds()
	tBounds := t.Image.Bounds()
	tWidth, tHeight := tBounds.Dx(), tBounds.Dy()

	searchArea := sBounds
	if !t.Region.Empty() {
		searchArea = t.Region.Intersect(sBounds)
	}
	if searchArea.Empty() || searchArea.Dx() < tWidth || searchArea.Dy() < tHeight {
		return Match{}, false
	}

	// Key pixels for quick rejection: top-left, center, bottom-right.
	// A placement survives when at least one opaque key pixel is similar,
	// so an overlay covering part of the template does not reject it.
	keys := make([]keyPixel, 0, 3)
	for _, p := range []image.Point{
		{0, 0},
		{tWidth / 2, tHeight / 2},
		{tWidth - 1, tHeight - 1},
	} {
		r, g, b, a := rgba(t.Image, tBounds.Min.X+p.X, tBounds.Min.Y+p.Y)
		if a > 0 {
			keys = append(keys, keyPixel{p.X, p.Y, r, g, b, a})
		}
	}

	total := 0
	for ty := 0; ty < tHeight; ty++ {
		for tx := 0; tx < tWidth; tx++ {
			_, _, _, a := rgba(t.Image, tBounds.Min.X+tx, tBounds.Min.Y+ty)
			if a > 0 {
				total++
			}
		}
	}
	if total == 0 {
		return Match{}, false
	}

	best, found := m.scan(screen, t.Image, searchArea, keys, total, floor)
	if !found && len(keys) > 0 {
		// An overlay can cover all three key pixels at once. Rescan without
		// the quick rejection so heavy occlusion lowers the confidence
		// instead of dropping the template outright.
		best, found = m.scan(screen, t.Image, searchArea, nil, total, floor)
	}
	if !found {
		return Match{}, false
	}
	best.Label = t.Label
	best.Size = image.Point{X: tWidth, Y: tHeight}
	return best, true
}

type keyPixel struct {
	dx, dy     int
	r, g, b, a uint32
}

// scan walks every placement in the search area row-major and keeps the best
// score. With keys set, placements failing all key probes are skipped.
func (m *Matcher) scan(screen, tmpl image.Image, area image.Rectangle, keys []keyPixel, total int, floor float64) (Match, bool) {
	tWidth, tHeight := tmpl.Bounds().Dx(), tmpl.Bounds().Dy()

	var best Match
	found := false

	for y := area.Min.Y; y <= area.Max.Y-tHeight; y++ {
		for x := area.Min.X; x <= area.Max.X-tWidth; x++ {
			if len(keys) > 0 {
				pass := false
				for _, k := range keys {
					sr, sg, sb, _ := rgba(screen, x+k.dx, y+k.dy)
					if colorSimilar(sr, sg, sb, k.r, k.g, k.b, m.Tolerance) {
						pass = true
						break
					}
				}
				if !pass {
					continue
				}
			}

			need := floor
			if found && best.Confidence > need {
				need = best.Confidence
			}
			score, ok := m.scoreAt(screen, tmpl, x, y, total, need)
			if !ok {
				continue
			}
			if !found || score > best.Confidence {
				best.Confidence = score
				best.Location = image.Point{X: x, Y: y}
				found = true
			}
		}
	}

	if !found || best.Confidence < floor {
		return Match{}, false
	}
	return best, true
}

// scoreAt computes the fraction of opaque template pixels matching the screen
// at placement (sx, sy). It bails out once the placement provably cannot
// reach the need score; a bailed-out placement never becomes the best one,
// so pruning does not change the reported result.
func (m *Matcher) scoreAt(screen, tmpl image.Image, sx, sy, total int, need float64) (float64, bool) {
	tBounds := tmpl.Bounds()
	maxFailed := int(float64(total) * (1 - need))

	failed := 0
	for ty := 0; ty < tBounds.Dy(); ty++ {
		for tx := 0; tx < tBounds.Dx(); tx++ {
			tr, tg, tb, ta := rgba(tmpl, tBounds.Min.X+tx, tBounds.Min.Y+ty)
			if ta == 0 {
				continue
			}
			sr, sg, sb, _ := rgba(screen, sx+tx, sy+ty)
			if !colorSimilar(sr, sg, sb, tr, tg, tb, m.Tolerance) {
				failed++
				if failed > maxFailed {
					return 0, false
				}
			}
		}
	}
	return 1 - float64(failed)/float64(total), true
}

// rgba returns color components normalized to 0-255, plus alpha.
func rgba(img image.Image, x, y int) (r, g, b, a uint32) {
	c := img.At(x, y)
	r, g, b, a = c.RGBA()
	return r >> 8, g >> 8, b >> 8, a >> 8
}

func colorSimilar(r1, g1, b1, r2, g2, b2 uint32, tolerance float64) bool {
	// Simple Euclidean distance in RGB space
	dr := float64(r1) - float64(r2)
	dg := float64(g1) - float64(g2)
	db := float64(b1) - float64(b2)
	return math.Sqrt(dr*dr+dg*dg+db*db) <= tolerance
}
