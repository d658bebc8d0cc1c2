// Package viewport maps frozen world-space layout coordinates onto a canvas
// through a zoom/pan transform. It owns no topology: resizing or fitting
// only changes the transform, never the layout.
package viewport

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Zoom clamps. The label-disclosure thresholds in the renderer live inside
// this range, so clamping here keeps them reachable.
const (
	MinZoom = 0.1
	MaxZoom = 8.0

	fitPadding = 60.0
)

// Viewport is the world-to-screen transform for one canvas:
// screen = world*zoom + offset.
type Viewport struct {
	width  float64
	height float64
	zoom   float64
	offset r2.Vec
}

// New returns a viewport at zoom 1 centered on the world origin.
func New(width, height float64) *Viewport {
	v := &Viewport{width: width, height: height}
	v.Reset()
	return v
}

// Reset restores zoom 1 with the world origin at the canvas center.
func (v *Viewport) Reset() {
	v.zoom = 1
	v.offset = r2.Vec{X: v.width / 2, Y: v.height / 2}
}

// Size returns the canvas dimensions.
func (v *Viewport) Size() (width, height float64) {
	return v.width, v.height
}

// Zoom returns the current zoom factor.
func (v *Viewport) Zoom() float64 {
	return v.zoom
}

// Apply maps a world coordinate to a screen coordinate.
func (v *Viewport) Apply(world r2.Vec) r2.Vec {
	return r2.Vec{
		X: world.X*v.zoom + v.offset.X,
		Y: world.Y*v.zoom + v.offset.Y,
	}
}

// Invert maps a screen coordinate back to world space.
func (v *Viewport) Invert(screen r2.Vec) r2.Vec {
	return r2.Vec{
		X: (screen.X - v.offset.X) / v.zoom,
		Y: (screen.Y - v.offset.Y) / v.zoom,
	}
}

// Pan shifts the view by a screen-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.offset.X += dx
	v.offset.Y += dy
}

// SetZoom sets the zoom factor, clamped, keeping the canvas center anchored
// on the same world point.
func (v *Viewport) SetZoom(zoom float64) {
	v.ZoomAt(r2.Vec{X: v.width / 2, Y: v.height / 2}, zoom)
}

// ZoomAt sets the zoom factor, clamped, keeping the given screen point
// anchored on the world point it currently shows. This is the wheel-zoom
// behavior: the content under the cursor stays under the cursor.
func (v *Viewport) ZoomAt(anchor r2.Vec, zoom float64) {
	zoom = clampZoom(zoom)
	world := v.Invert(anchor)
	v.zoom = zoom
	v.offset.X = anchor.X - world.X*zoom
	v.offset.Y = anchor.Y - world.Y*zoom
}

// Fit frames a world-space bounding box with padding, centered. A
// degenerate box (single point, or zero extent on an axis) centers on it at
// the maximum zoom the clamp allows.
func (v *Viewport) Fit(min, max r2.Vec) {
	dx := max.X - min.X
	dy := max.Y - min.Y
	zoom := MaxZoom
	if dx > 0 {
		zoom = math.Min(zoom, (v.width-2*fitPadding)/dx)
	}
	if dy > 0 {
		zoom = math.Min(zoom, (v.height-2*fitPadding)/dy)
	}
	zoom = clampZoom(zoom)

	center := r2.Vec{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2}
	v.zoom = zoom
	v.offset.X = v.width/2 - center.X*zoom
	v.offset.Y = v.height/2 - center.Y*zoom
}

// FitPoints frames the bounding box of the given world positions, skipping
// non-finite entries. No positions at all resets the view. This backs the
// fit-to-highlight action after a connectivity highlight.
func (v *Viewport) FitPoints(points []r2.Vec) {
	var min, max r2.Vec
	ok := false
	for _, p := range points {
		if !finite(p) {
			continue
		}
		if !ok {
			min, max = p, p
			ok = true
			continue
		}
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	if !ok {
		v.Reset()
		return
	}
	v.Fit(min, max)
}

// Resize updates the canvas dimensions, keeping zoom and the world point at
// the canvas center unchanged. The layout is not touched.
func (v *Viewport) Resize(width, height float64) {
	center := v.Invert(r2.Vec{X: v.width / 2, Y: v.height / 2})
	v.width = width
	v.height = height
	v.offset.X = width/2 - center.X*v.zoom
	v.offset.Y = height/2 - center.Y*v.zoom
}

func clampZoom(z float64) float64 {
	if z < MinZoom || math.IsNaN(z) {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

func finite(p r2.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) &&
		!math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
