package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/marketgraph/cascadeviz/pkg/layout"
	"github.com/marketgraph/cascadeviz/pkg/metrics"
	"github.com/marketgraph/cascadeviz/pkg/model"
)

// WriteSVG renders the same frame as Frame as vector output. Styling comes
// from the identical Context decisions, so the two formats only differ in
// stroke mechanics.
func WriteSVG(ctx *Context, w io.Writer) error {
	defer metrics.Timer(metrics.SVGRender)()

	width, height := ctx.View.Size()
	canvas := svg.New(w)
	canvas.Start(int(width), int(height))
	canvas.Rect(0, 0, int(width), int(height), fmt.Sprintf("fill:%s", css(colorBackdrop)))

	svgLinks(canvas, ctx)
	for _, n := range ctx.Layout.Nodes() {
		if !finite(n.Pos) {
			continue
		}
		svgNode(canvas, ctx, n)
	}
	svgLabels(canvas, ctx)

	canvas.End()
	return nil
}

func svgLinks(canvas *svg.SVG, ctx *Context) {
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

		canvas.Qbez(int(p1.X), int(p1.Y), int(ctrl.X), int(ctrl.Y), int(p2.X), int(p2.Y),
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:%.1f;stroke-opacity:%.2f",
				css(style.Color), style.Width, style.Alpha))

		svgArrowhead(canvas, ctx, dst, p1, ctrl, p2, style)
		if style.Particles {
			svgParticles(canvas, ctx, p1, ctrl, p2, style)
		}
	}
}

func svgArrowhead(canvas *svg.SVG, ctx *Context, dst *layout.Node, p1, ctrl, p2 r2.Vec, style LinkStyle) {
	tip := quadPoint(p1, ctrl, p2, 0.92)
	dx := p2.X - tip.X
	dy := p2.Y - tip.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return
	}
	ux, uy := dx/dist, dy/dist
	r := nodeRadius(ctx, dst)
	headLen := 6 + style.Width
	bx := p2.X - ux*(r+headLen)
	by := p2.Y - uy*(r+headLen)

	canvas.Polygon(
		[]int{int(p2.X - ux*r), int(bx - uy*headLen/2), int(bx + uy*headLen/2)},
		[]int{int(p2.Y - uy*r), int(by + ux*headLen/2), int(by - ux*headLen/2)},
		fmt.Sprintf("fill:%s;fill-opacity:%.2f", css(style.Color), style.Alpha))
}

func svgParticles(canvas *svg.SVG, ctx *Context, p1, ctrl, p2 r2.Vec, style LinkStyle) {
	length := math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
	count := int(length/particleSpacing) + 1
	phase := ctx.ParticlePhase - math.Floor(ctx.ParticlePhase)
	for i := 0; i < count; i++ {
		t := phase + float64(i)/float64(count)
		t -= math.Floor(t)
		p := quadPoint(p1, ctrl, p2, t)
		canvas.Circle(int(p.X), int(p.Y), 2, fmt.Sprintf("fill:%s", css(style.Color)))
	}
}

func svgNode(canvas *svg.SVG, ctx *Context, n *layout.Node) {
	id := n.Entity.ID
	p := ctx.View.Apply(n.Pos)
	r := nodeRadius(ctx, n)
	alpha := ctx.NodeAlpha(id)
	fill := EntityColor(n.Entity.Type)

	svgShape(canvas, n.Entity.Type, p, r,
		fmt.Sprintf("fill:%s;fill-opacity:%.2f", css(fill), alpha))

	switch ctx.NodeRing(id) {
	case RingSelected:
		svgShape(canvas, n.Entity.Type, p, r+4,
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:2.5;stroke-dasharray:5,4;stroke-opacity:%.2f",
				css(colorSelected), alpha))
	case RingCascade, RingConnectivity:
		svgShape(canvas, n.Entity.Type, p, r+3,
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:3;stroke-opacity:%.2f",
				css(ctx.RingColor(id)), alpha))
	}

	if ctx.InPortfolio(id) {
		ring := fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5;stroke-opacity:%.2f",
			css(colorPortfolio), alpha)
		canvas.Circle(int(p.X), int(p.Y), int(r+7), ring)
		canvas.Circle(int(p.X), int(p.Y), int(r+10), ring)
	}
}

func svgShape(canvas *svg.SVG, t model.EntityType, p r2.Vec, r float64, style string) {
	switch t {
	case model.EntitySector:
		xs := make([]int, 6)
		ys := make([]int, 6)
		for i := 0; i < 6; i++ {
			a := math.Pi/6 + float64(i)*math.Pi/3
			xs[i] = int(p.X + r*math.Cos(a))
			ys[i] = int(p.Y + r*math.Sin(a))
		}
		canvas.Polygon(xs, ys, style)
	case model.EntityIndicator:
		canvas.Polygon(
			[]int{int(p.X), int(p.X + r), int(p.X), int(p.X - r)},
			[]int{int(p.Y - r), int(p.Y), int(p.Y + r), int(p.Y)},
			style)
	default:
		canvas.Circle(int(p.X), int(p.Y), int(r), style)
	}
}

func svgLabels(canvas *svg.SVG, ctx *Context) {
	for _, n := range ctx.Layout.Nodes() {
		if !finite(n.Pos) || !ctx.ShowLabel(n) {
			continue
		}
		p := ctx.View.Apply(n.Pos)
		r := nodeRadius(ctx, n)
		canvas.Text(int(p.X), int(p.Y-r-6), n.Entity.Name,
			fmt.Sprintf("fill:%s;fill-opacity:%.2f;font-size:12px;font-family:monospace;text-anchor:middle",
				css(colorLabel), ctx.NodeAlpha(n.Entity.ID)))
	}
}
