package render

import (
	"image"
	"image/color"
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/marketgraph/cascadeviz/pkg/layout"
	"github.com/marketgraph/cascadeviz/pkg/metrics"
	"github.com/marketgraph/cascadeviz/pkg/model"
)

// Frame rasterizes one frame. Nodes or links with non-finite positions are
// skipped rather than failing the frame.
func Frame(ctx *Context) image.Image {
	defer metrics.Timer(metrics.FrameRender)()

	w, h := ctx.View.Size()
	dc := gg.NewContext(int(w), int(h))
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	drawLinks(dc, ctx)
	for _, n := range ctx.Layout.Nodes() {
		if !finite(n.Pos) {
			continue
		}
		drawNode(dc, ctx, n)
	}
	drawLabels(dc, ctx)

	return dc.Image()
}

// EncodePNG renders a frame and writes it PNG-encoded.
func EncodePNG(ctx *Context, w io.Writer) error {
	img := Frame(ctx)
	dc := gg.NewContextForImage(img)
	return dc.EncodePNG(w)
}

func drawLinks(dc *gg.Context, ctx *Context) {
	for _, l := range ctx.Layout.Links() {
		src, ok := ctx.Layout.Node(l.Source)
		if !ok || !finite(src.Pos) {
			continue
		}
		dst, ok := ctx.Layout.Node(l.Target)
		if !ok || !finite(dst.Pos) {
			continue
		}
		p1 := ctx.View.Apply(src.Pos)
		p2 := ctx.View.Apply(dst.Pos)
		style := ctx.Style(l)
		ctrl := linkCurve(p1, p2)

		dc.SetColor(withAlpha(style.Color, style.Alpha))
		dc.SetLineWidth(style.Width)
		dc.MoveTo(p1.X, p1.Y)
		dc.QuadraticTo(ctrl.X, ctrl.Y, p2.X, p2.Y)
		dc.Stroke()

		drawArrowhead(dc, ctx, dst, p1, ctrl, p2, style)
		if style.Particles {
			drawParticles(dc, ctx, p1, ctrl, p2, style)
		}
	}
}

// drawArrowhead places the head on the curve at the target node's rim,
// oriented along the curve tangent.
func drawArrowhead(dc *gg.Context, ctx *Context, dst *layout.Node, p1, ctrl, p2 r2.Vec, style LinkStyle) {
	tip := quadPoint(p1, ctrl, p2, 0.92)
	tangentX := p2.X - tip.X
	tangentY := p2.Y - tip.Y
	dist := math.Hypot(tangentX, tangentY)
	if dist == 0 {
		return
	}
	ux, uy := tangentX/dist, tangentY/dist
	r := nodeRadius(ctx, dst)
	headLen := 6 + style.Width
	bx := p2.X - ux*(r+headLen)
	by := p2.Y - uy*(r+headLen)

	dc.SetColor(withAlpha(style.Color, style.Alpha))
	dc.NewSubPath()
	dc.MoveTo(p2.X-ux*r, p2.Y-uy*r)
	dc.LineTo(bx-uy*headLen/2, by+ux*headLen/2)
	dc.LineTo(bx+uy*headLen/2, by-ux*headLen/2)
	dc.ClosePath()
	dc.Fill()
}

// drawParticles animates propagation direction along a cascade link: evenly
// spaced dots whose position is offset by the frame's particle phase.
func drawParticles(dc *gg.Context, ctx *Context, p1, ctrl, p2 r2.Vec, style LinkStyle) {
	length := math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
	count := int(length/particleSpacing) + 1
	phase := ctx.ParticlePhase - math.Floor(ctx.ParticlePhase)
	dc.SetColor(withAlpha(style.Color, 1))
	for i := 0; i < count; i++ {
		t := phase + float64(i)/float64(count)
		t -= math.Floor(t)
		p := quadPoint(p1, ctrl, p2, t)
		dc.DrawCircle(p.X, p.Y, 2.2)
		dc.Fill()
	}
}

func drawNode(dc *gg.Context, ctx *Context, n *layout.Node) {
	id := n.Entity.ID
	p := ctx.View.Apply(n.Pos)
	r := nodeRadius(ctx, n)
	alpha := ctx.NodeAlpha(id)
	fill := EntityColor(n.Entity.Type)

	drawGlow(dc, p, r, fill, alpha)

	dc.SetColor(withAlpha(fill, alpha))
	traceShape(dc, n.Entity.Type, p, r)
	dc.Fill()

	switch ctx.NodeRing(id) {
	case RingSelected:
		dc.SetColor(withAlpha(colorSelected, alpha))
		dc.SetLineWidth(2.5)
		dc.SetDash(5, 4)
		traceShape(dc, n.Entity.Type, p, r+4)
		dc.Stroke()
		dc.SetDash()
	case RingCascade, RingConnectivity:
		dc.SetColor(withAlpha(ctx.RingColor(id), alpha))
		dc.SetLineWidth(3)
		traceShape(dc, n.Entity.Type, p, r+3)
		dc.Stroke()
	}

	if ctx.InPortfolio(id) {
		dc.SetColor(withAlpha(colorPortfolio, alpha))
		dc.SetLineWidth(1.5)
		dc.DrawCircle(p.X, p.Y, r+7)
		dc.Stroke()
		dc.DrawCircle(p.X, p.Y, r+10)
		dc.Stroke()
	}
}

// drawGlow paints the soft radial halo behind a node.
func drawGlow(dc *gg.Context, p r2.Vec, r float64, fill color.RGBA, alpha float64) {
	grad := gg.NewRadialGradient(p.X, p.Y, r, p.X, p.Y, r*2.2)
	grad.AddColorStop(0, withAlpha(fill, 0.35*alpha))
	grad.AddColorStop(1, withAlpha(fill, 0))
	dc.SetFillStyle(grad)
	dc.DrawCircle(p.X, p.Y, r*2.2)
	dc.Fill()
}

// traceShape outlines the node shape path without filling or stroking:
// companies and ETFs are circles, sectors regular hexagons, indicators
// diamonds.
func traceShape(dc *gg.Context, t model.EntityType, p r2.Vec, r float64) {
	switch t {
	case model.EntitySector:
		dc.NewSubPath()
		for i := 0; i < 6; i++ {
			a := math.Pi/6 + float64(i)*math.Pi/3
			x := p.X + r*math.Cos(a)
			y := p.Y + r*math.Sin(a)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
	case model.EntityIndicator:
		dc.NewSubPath()
		dc.MoveTo(p.X, p.Y-r)
		dc.LineTo(p.X+r, p.Y)
		dc.LineTo(p.X, p.Y+r)
		dc.LineTo(p.X-r, p.Y)
		dc.ClosePath()
	default:
		dc.DrawCircle(p.X, p.Y, r)
	}
}

// drawLabels runs after all nodes so text never sits under a neighbor.
func drawLabels(dc *gg.Context, ctx *Context) {
	for _, n := range ctx.Layout.Nodes() {
		if !finite(n.Pos) || !ctx.ShowLabel(n) {
			continue
		}
		p := ctx.View.Apply(n.Pos)
		r := nodeRadius(ctx, n)
		dc.SetColor(withAlpha(colorLabel, ctx.NodeAlpha(n.Entity.ID)))
		dc.DrawStringAnchored(n.Entity.Name, p.X, p.Y-r-6, 0.5, 1)
	}
}

// nodeRadius is the on-screen radius: the layout size through a sqrt so big
// hubs do not dwarf the picture, scaled by zoom.
func nodeRadius(ctx *Context, n *layout.Node) float64 {
	return 2.2 * math.Sqrt(n.Size) * ctx.View.Zoom()
}
