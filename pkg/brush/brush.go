// Package brush paints threshold-gated circular strokes onto per-slice label
// planes. Painting writes a segment id only where the rescaled source value
// meets the threshold; erasing (segment id 0) bypasses the gate and clears
// the whole disk. The asymmetry is deliberate: an operator expects erase to
// remove everything under the cursor, while paint should snap to tissue.
package brush

import "errors"

// ErrNoSource is returned when a stroke has no usable backing image. The
// stroke is rejected before any cell is touched, so a failed call never
// partially applies.
var ErrNoSource = errors.New("brush: no source image")

// Plane is a per-slice 2D buffer of segment identifiers in row-major order.
// Cell value 0 is background; values >= 1 identify segments. A plane must
// only be mutated by one brush call at a time, but planes of different
// slices are independent.
type Plane struct {
	Rows, Cols int
	Cells      []uint8
}

// NewPlane returns an all-background plane with the given dimensions.
func NewPlane(rows, cols int) *Plane {
	return &Plane{Rows: rows, Cols: cols, Cells: make([]uint8, rows*cols)}
}

// Source is the raw image a stroke is gated against, with the rescale
// coefficients that convert its samples to physical intensity units.
type Source struct {
	Pixels     []int16
	Rows, Cols int
	Slope      float64
	Intercept  float64
}

// valid reports whether the source can back a stroke.
func (s Source) valid() bool {
	return s.Rows > 0 && s.Cols > 0 && len(s.Pixels) == s.Rows*s.Cols
}

// Stroke describes one paint or erase operation in plane-pixel space.
type Stroke struct {
	// Row, Col is the disk center. Centers outside the plane are allowed;
	// only the in-bounds portion of the disk is touched.
	Row, Col int

	// Radius of the disk in pixels.
	Radius int

	// Threshold in physical units; cells whose rescaled source value falls
	// below it are left unchanged. Ignored when erasing.
	Threshold float64

	// Segment is the id written into gated cells. 0 selects erase mode.
	Segment uint8
}

// Engine owns the label planes, keyed by the slice's stable index in the
// ordered sequence. Planes are created lazily on first paint and persist
// until cleared.
type Engine struct {
	planes map[int]*Plane
}

// NewEngine returns an engine with no planes.
func NewEngine() *Engine {
	return &Engine{planes: make(map[int]*Plane)}
}

// Plane returns the label plane for a slice index, or nil if that slice has
// never been painted.
func (e *Engine) Plane(slice int) *Plane {
	return e.planes[slice]
}

// Planes exposes the current plane set for consolidation. The engine retains
// ownership; callers must not mutate the planes.
func (e *Engine) Planes() map[int]*Plane {
	return e.planes
}

// Clear discards the label plane of one slice.
func (e *Engine) Clear(slice int) {
	delete(e.planes, slice)
}

// Apply paints one stroke onto the given slice's plane, creating the plane
// with the source's dimensions if it does not exist yet. It returns the
// number of cells whose value changed; zero is a valid result, e.g. when the
// whole disk lies below the threshold or outside the plane.
func (e *Engine) Apply(slice int, src Source, s Stroke) (int, error) {
	if !src.valid() {
		return 0, ErrNoSource
	}

	plane := e.planes[slice]
	if plane == nil {
		plane = NewPlane(src.Rows, src.Cols)
		e.planes[slice] = plane
	}
	if plane.Rows != src.Rows || plane.Cols != src.Cols {
		return 0, ErrNoSource
	}

	erase := s.Segment == 0
	r2 := s.Radius * s.Radius
	modified := 0

	for di := -s.Radius; di <= s.Radius; di++ {
		for dj := -s.Radius; dj <= s.Radius; dj++ {
			if di*di+dj*dj > r2 {
				continue
			}
			row := s.Row + di
			col := s.Col + dj
			if row < 0 || row >= plane.Rows || col < 0 || col >= plane.Cols {
				continue
			}
			idx := row*plane.Cols + col
			if !erase {
				value := float64(src.Pixels[idx])*src.Slope + src.Intercept
				if value < s.Threshold {
					continue
				}
			}
			if plane.Cells[idx] != s.Segment {
				plane.Cells[idx] = s.Segment
				modified++
			}
		}
	}

	return modified, nil
}
