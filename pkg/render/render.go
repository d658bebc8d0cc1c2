// Package render draws one frame of the entity graph: frozen layout
// positions in, pixels out. All per-node and per-link styling decisions are
// pure functions over a Context value so they can be tested without
// comparing images, and so the PNG and SVG pipelines cannot diverge on
// anything but stroke mechanics.
package render

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/marketgraph/cascadeviz/pkg/highlight"
	"github.com/marketgraph/cascadeviz/pkg/layout"
	"github.com/marketgraph/cascadeviz/pkg/model"
	"github.com/marketgraph/cascadeviz/pkg/viewport"
)

// Context carries everything one frame needs. It is assembled per draw call
// and never retained by the renderer.
type Context struct {
	Layout    *layout.Layout
	View      *viewport.Viewport
	Highlight highlight.Snapshot
	Hovered   string
	Portfolio map[string]bool

	// ParticlePhase in [0,1) positions the cascade particles along their
	// links. The caller advances it between frames.
	ParticlePhase float64
}

// Ring is the outline treatment of a node, in precedence order. Higher
// values win when several apply.
type Ring int

const (
	RingNone Ring = iota
	RingConnectivity
	RingCascade
	RingSelected
)

// Label disclosure tuning. Degree thresholds relax as zoom increases so
// hubs surface first and everything is labeled once zoomed far enough in.
const (
	sectorLabelZoom = 0.5
	labelAllZoom    = 1.5

	dimmedAlpha     = 0.12
	dimmedLinkAlpha = 0.05
	defaultLink     = 0.35

	curvature       = 0.18
	particleSpacing = 80.0
)

var (
	colorCompany   = color.RGBA{0x60, 0xa5, 0xfa, 0xff}
	colorETF       = color.RGBA{0xa7, 0x8b, 0xfa, 0xff}
	colorSector    = color.RGBA{0xfb, 0x92, 0x3c, 0xff}
	colorIndicator = color.RGBA{0x2d, 0xd4, 0xbf, 0xff}

	colorSelected     = color.RGBA{0xfb, 0xbf, 0x24, 0xff} // dashed amber
	colorConnectivity = color.RGBA{0x4a, 0xde, 0x80, 0xff}
	colorPortfolio    = color.RGBA{0xfa, 0xcc, 0x15, 0xff}
	colorBackdrop     = color.RGBA{0x0f, 0x17, 0x2a, 0xff}
	colorLabel        = color.RGBA{0xe2, 0xe8, 0xf0, 0xff}
	colorLinkBase     = color.RGBA{0x94, 0xa3, 0xb8, 0xff}

	// Hop-order gradient for cascade rings and links, clamped past order 3.
	cascadeGradient = [4]color.RGBA{
		{0xef, 0x44, 0x44, 0xff},
		{0xf9, 0x73, 0x16, 0xff},
		{0xf5, 0x9e, 0x0b, 0xff},
		{0xea, 0xb3, 0x08, 0xff},
	}
)

// EntityColor maps an entity type to its fill color. Index funds share the
// ETF treatment.
func EntityColor(t model.EntityType) color.RGBA {
	switch t {
	case model.EntitySector:
		return colorSector
	case model.EntityETF, model.EntityIndex:
		return colorETF
	case model.EntityIndicator:
		return colorIndicator
	default:
		return colorCompany
	}
}

// CascadeColor maps a hop order to the gradient, clamped beyond order 3.
func CascadeColor(order int) color.RGBA {
	if order < 0 {
		order = 0
	}
	if order >= len(cascadeGradient) {
		order = len(cascadeGradient) - 1
	}
	return cascadeGradient[order]
}

// NodeRing resolves the ring precedence for a node: selected beats cascade
// beats connectivity. The portfolio decoration is independent and reported
// separately by Portfolio().
func (c *Context) NodeRing(id string) Ring {
	if c.Highlight.Selected != nil && c.Highlight.Selected.ID == id {
		return RingSelected
	}
	if c.Highlight.Cascade.Nodes[id] {
		return RingCascade
	}
	if c.Highlight.Connectivity.Nodes[id] {
		return RingConnectivity
	}
	return RingNone
}

// RingColor returns the stroke color for a node's resolved ring.
func (c *Context) RingColor(id string) color.RGBA {
	switch c.NodeRing(id) {
	case RingSelected:
		return colorSelected
	case RingCascade:
		order, _ := c.Highlight.CascadeOrder(id)
		return CascadeColor(order)
	case RingConnectivity:
		return colorConnectivity
	default:
		return color.RGBA{}
	}
}

// InPortfolio reports whether the node gets the double golden ring. It
// co-renders with any precedence ring.
func (c *Context) InPortfolio(id string) bool {
	return c.Portfolio[id]
}

// NodeAlpha returns the node's opacity: full for members when a highlight
// is active, dimmed-but-visible for everyone else so spatial context stays
// legible.
func (c *Context) NodeAlpha(id string) float64 {
	if !c.Highlight.Active() {
		return 1
	}
	if c.Highlight.Member(id) || c.Hovered == id {
		return 1
	}
	return dimmedAlpha
}

// ShowLabel implements progressive label disclosure: highlight members,
// hovered and selected nodes always; indicators always; sectors above a
// zoom threshold; then hubs by degree with the threshold relaxing as zoom
// grows; finally everything past the label-all zoom.
func (c *Context) ShowLabel(n *layout.Node) bool {
	id := n.Entity.ID
	if c.Hovered == id || c.Highlight.Member(id) {
		return true
	}
	if n.Entity.Type == model.EntityIndicator {
		return true
	}
	zoom := c.View.Zoom()
	if n.Entity.Type == model.EntitySector && zoom > sectorLabelZoom {
		return true
	}
	if zoom > labelAllZoom {
		return true
	}
	return n.Degree >= degreeThreshold(zoom)
}

// degreeThreshold is the minimum degree for an unconditional label at a
// given zoom. Below 0.4 nothing qualifies by degree alone.
func degreeThreshold(zoom float64) int {
	switch {
	case zoom > 1.0:
		return 3
	case zoom > 0.7:
		return 8
	case zoom > 0.4:
		return 20
	default:
		return math.MaxInt
	}
}

// LinkStyle is the resolved visual weight of one link.
type LinkStyle struct {
	Color     color.RGBA
	Width     float64
	Alpha     float64
	Particles bool
}

// Style resolves a link against the highlight state. Cascade-member links
// are brightest and thickest, colored by the larger hop order of their
// endpoints, and carry particles; links touching the selection or in the
// connectivity set come next; all other links go near-transparent while any
// highlight is active, and subdued otherwise.
func (c *Context) Style(l model.Link) LinkStyle {
	key := l.Key()
	if c.Highlight.Cascade.Links[key] {
		so, _ := c.Highlight.CascadeOrder(l.Source)
		to, _ := c.Highlight.CascadeOrder(l.Target)
		return LinkStyle{
			Color:     CascadeColor(max(so, to)),
			Width:     1.5 + 2.5*l.Strength,
			Alpha:     0.95,
			Particles: true,
		}
	}
	if c.Highlight.Connectivity.Links[key] || c.touchesSelection(l) {
		return LinkStyle{Color: colorConnectivity, Width: 1 + 1.5*l.Strength, Alpha: 0.8}
	}
	alpha := defaultLink
	if c.Highlight.Active() {
		alpha = dimmedLinkAlpha
	}
	return LinkStyle{Color: colorLinkBase, Width: 0.6 + l.Strength, Alpha: alpha}
}

func (c *Context) touchesSelection(l model.Link) bool {
	sel := c.Highlight.Selected
	return sel != nil && (l.Source == sel.ID || l.Target == sel.ID)
}

// linkCurve returns the quadratic control point for a link: the midpoint
// pushed perpendicular to the source->target line by a fixed curvature
// factor of the link length.
func linkCurve(p1, p2 r2.Vec) r2.Vec {
	mid := r2.Vec{X: (p1.X + p2.X) / 2, Y: (p1.Y + p2.Y) / 2}
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	return r2.Vec{X: mid.X - dy*curvature, Y: mid.Y + dx*curvature}
}

// quadPoint evaluates the quadratic bezier (p1, ctrl, p2) at t. Used for
// particle placement and arrowhead orientation.
func quadPoint(p1, ctrl, p2 r2.Vec, t float64) r2.Vec {
	u := 1 - t
	return r2.Vec{
		X: u*u*p1.X + 2*u*t*ctrl.X + t*t*p2.X,
		Y: u*u*p1.Y + 2*u*t*ctrl.Y + t*t*p2.Y,
	}
}

func finite(p r2.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) &&
		!math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func withAlpha(c color.RGBA, alpha float64) color.RGBA {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	c.A = uint8(alpha * 255)
	return c
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
