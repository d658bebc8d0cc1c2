// Package layout converts raw entities/links into positioned, sized visual
// nodes. Nodes are seeded onto a ring of sector clusters, relaxed by a force
// simulation for a fixed warm-up, then frozen: positions become immutable
// until the dataset is replaced, so highlight-only redraws never re-layout.
package layout

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/marketgraph/cascadeviz/pkg/analysis"
	"github.com/marketgraph/cascadeviz/pkg/metrics"
	"github.com/marketgraph/cascadeviz/pkg/model"
)

// Params tunes the seeding and simulation. Zero values are replaced by the
// defaults from DefaultParams.
type Params struct {
	GroupRadius    float64 `yaml:"group_radius"`    // cluster ring radius
	JitterMin      float64 `yaml:"jitter_min"`      // min radial jitter within a cluster
	JitterMax      float64 `yaml:"jitter_max"`      // max radial jitter within a cluster
	LinkDistance   float64 `yaml:"link_distance"`   // resting link length
	LinkStrength   float64 `yaml:"link_strength"`   // spring stiffness scale
	CenterStrength float64 `yaml:"center_strength"` // weak pull to origin
	VelocityDecay  float64 `yaml:"velocity_decay"`  // per-tick friction
	WarmupTicks    int     `yaml:"warmup_ticks"`    // simulated ticks before freeze
	Seed           int64   `yaml:"seed"`            // jitter RNG seed
}

// DefaultParams returns the tuning used by the standard view: a 4 second
// warm-up at 60 ticks/second, 350 unit cluster ring, 80-200 unit jitter.
func DefaultParams() Params {
	return Params{
		GroupRadius:    350,
		JitterMin:      80,
		JitterMax:      200,
		LinkDistance:   110,
		LinkStrength:   0.4,
		CenterStrength: 0.02,
		VelocityDecay:  0.6,
		WarmupTicks:    240,
		Seed:           1,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.GroupRadius <= 0 {
		p.GroupRadius = d.GroupRadius
	}
	if p.JitterMin <= 0 {
		p.JitterMin = d.JitterMin
	}
	if p.JitterMax <= p.JitterMin {
		p.JitterMax = p.JitterMin + (d.JitterMax - d.JitterMin)
	}
	if p.LinkDistance <= 0 {
		p.LinkDistance = d.LinkDistance
	}
	if p.LinkStrength <= 0 {
		p.LinkStrength = d.LinkStrength
	}
	if p.CenterStrength <= 0 {
		p.CenterStrength = d.CenterStrength
	}
	if p.VelocityDecay <= 0 || p.VelocityDecay >= 1 {
		p.VelocityDecay = d.VelocityDecay
	}
	if p.WarmupTicks <= 0 {
		p.WarmupTicks = d.WarmupTicks
	}
	return p
}

// chargeStrength scales per-node repulsion inversely with node count so
// dense graphs stay visually compact.
func chargeStrength(nodeCount int) float64 {
	switch {
	case nodeCount < 100:
		return -1800
	case nodeCount < 300:
		return -1200
	default:
		return -800
	}
}

// Node is a positioned, sized visual node. Pos is mutable until the layout
// freezes; after that it is pinned for the remainder of the session.
type Node struct {
	Entity model.Entity
	Degree int
	Size   float64
	Pos    r2.Vec

	vel r2.Vec
}

// NodeSize derives the visual size from type and degree. Sectors and ETFs
// anchor the picture; companies grow with connectivity.
func NodeSize(t model.EntityType, degree int) float64 {
	var base float64
	switch t {
	case model.EntitySector:
		base = 30
	case model.EntityETF, model.EntityIndex:
		base = 22
	case model.EntityIndicator:
		base = 16
	default:
		base = 8
	}
	return base + 2*math.Sqrt(float64(degree))
}

// collisionRadius grows with the square root of the visual size to prevent
// overlap without exploding spacing for large nodes.
func collisionRadius(size float64) float64 {
	return 4 * math.Sqrt(size)
}

// Layout holds the simulation state and, after Freeze, the final positions.
type Layout struct {
	nodes   []*Node
	index   map[string]int
	links   []model.Link
	params  Params
	alpha   float64
	frozen  bool
	rng     *rand.Rand
	charge  float64
	cluster map[string]int // sector key -> cluster index, first-seen order
}

// Engine computes node positions for a dataset. The concrete simulation is
// swappable behind this interface.
type Engine interface {
	Run(entities []model.Entity, links []model.Link) *Layout
}

// ForceSim is the default Engine: clustered seeding plus a multi-body force
// simulation warmed up for WarmupTicks, then frozen.
type ForceSim struct {
	params Params
}

// NewForceSim creates the default engine with the given tuning.
func NewForceSim(params Params) *ForceSim {
	return &ForceSim{params: params.withDefaults()}
}

// Run seeds, simulates the full warm-up, and freezes. The returned layout's
// positions will not drift on further calls.
func (f *ForceSim) Run(entities []model.Entity, links []model.Link) *Layout {
	l := New(entities, links, f.params)
	l.Simulate(f.params.WarmupTicks)
	l.Freeze()
	return l
}

// New builds a layout with seeded initial positions but does not simulate.
// Dangling links are filtered before any force is applied.
func New(entities []model.Entity, links []model.Link, params Params) *Layout {
	params = params.withDefaults()
	a := analysis.NewAnalyzer(entities, links)
	degrees := a.ConnectionCounts()

	l := &Layout{
		index:   make(map[string]int, len(entities)),
		links:   a.Links(),
		params:  params,
		alpha:   1,
		rng:     rand.New(rand.NewSource(params.Seed)),
		charge:  chargeStrength(len(entities)),
		cluster: make(map[string]int),
	}

	// Cluster enumeration is first-seen order over the node list, so a fixed
	// dataset always yields the same cluster indices.
	for _, e := range entities {
		if _, ok := l.index[e.ID]; ok {
			continue
		}
		key := e.SectorKey()
		if _, ok := l.cluster[key]; !ok {
			l.cluster[key] = len(l.cluster)
		}
		l.index[e.ID] = len(l.nodes)
		l.nodes = append(l.nodes, &Node{
			Entity: e,
			Degree: degrees[e.ID],
			Size:   NodeSize(e.Type, degrees[e.ID]),
		})
	}

	l.seed()
	return l
}

// seed places each node near its cluster's slot on a ring around the origin,
// jittered so the simulation starts from a readable, separated state.
func (l *Layout) seed() {
	if len(l.nodes) == 0 {
		return
	}
	if len(l.nodes) == 1 {
		l.nodes[0].Pos = r2.Vec{}
		return
	}
	clusters := float64(len(l.cluster))
	for _, n := range l.nodes {
		idx := float64(l.cluster[n.Entity.SectorKey()])
		clusterAngle := 2 * math.Pi * idx / clusters
		jitter := l.params.JitterMin + l.rng.Float64()*(l.params.JitterMax-l.params.JitterMin)
		jitterAngle := l.rng.Float64() * 2 * math.Pi
		n.Pos = r2.Vec{
			X: math.Cos(clusterAngle)*l.params.GroupRadius + math.Cos(jitterAngle)*jitter,
			Y: math.Sin(clusterAngle)*l.params.GroupRadius + math.Sin(jitterAngle)*jitter,
		}
	}
}

// ClusterIndex returns the cluster index for a sector key and whether the
// key was seen during construction.
func (l *Layout) ClusterIndex(key string) (int, bool) {
	i, ok := l.cluster[key]
	return i, ok
}

// Simulate advances the force simulation by n ticks. It is a no-op once the
// layout is frozen or when the graph is empty or a single node.
func (l *Layout) Simulate(n int) {
	if l.frozen || len(l.nodes) < 2 {
		return
	}
	defer metrics.Timer(metrics.LayoutSimulate)()
	for i := 0; i < n; i++ {
		l.tick()
	}
}

// alphaDecay cools the simulation so late ticks only settle, not reshuffle.
const alphaDecay = 0.0228

func (l *Layout) tick() {
	l.alpha += (0 - l.alpha) * alphaDecay
	l.applyCharge()
	l.applyLinks()
	l.applyCenter()
	l.applyCollision()
	for _, n := range l.nodes {
		n.vel = r2.Scale(l.params.VelocityDecay, n.vel)
		n.Pos = r2.Add(n.Pos, n.vel)
	}
}

// applyCharge adds pairwise repulsion. Strength is the dataset-size-scaled
// charge; the 1/d² falloff keeps distant clusters independent.
func (l *Layout) applyCharge() {
	for i, a := range l.nodes {
		for _, b := range l.nodes[i+1:] {
			d := r2.Sub(b.Pos, a.Pos)
			distSq := d.X*d.X + d.Y*d.Y
			if distSq < 1 {
				distSq = 1
			}
			f := l.charge * l.alpha / distSq
			dist := math.Sqrt(distSq)
			push := r2.Scale(f/dist, d)
			a.vel = r2.Add(a.vel, push)
			b.vel = r2.Sub(b.vel, push)
		}
	}
}

// applyLinks pulls connected nodes toward the resting link distance, scaled
// by the relationship strength.
func (l *Layout) applyLinks() {
	for _, link := range l.links {
		a := l.nodes[l.index[link.Source]]
		b := l.nodes[l.index[link.Target]]
		d := r2.Sub(b.Pos, a.Pos)
		dist := math.Hypot(d.X, d.Y)
		if dist < 1e-6 {
			continue
		}
		stretch := (dist - l.params.LinkDistance) / dist
		k := l.params.LinkStrength * (0.5 + 0.5*link.Strength) * l.alpha
		pull := r2.Scale(stretch*k, d)
		a.vel = r2.Add(a.vel, r2.Scale(0.5, pull))
		b.vel = r2.Sub(b.vel, r2.Scale(0.5, pull))
	}
}

func (l *Layout) applyCenter() {
	for _, n := range l.nodes {
		n.vel = r2.Sub(n.vel, r2.Scale(l.params.CenterStrength*l.alpha, n.Pos))
	}
}

// applyCollision separates overlapping pairs by their combined collision
// radii. Runs after the other forces so it wins local conflicts.
func (l *Layout) applyCollision() {
	for i, a := range l.nodes {
		ra := collisionRadius(a.Size)
		for _, b := range l.nodes[i+1:] {
			minDist := ra + collisionRadius(b.Size)
			d := r2.Sub(b.Pos, a.Pos)
			dist := math.Hypot(d.X, d.Y)
			if dist >= minDist || dist < 1e-6 {
				continue
			}
			overlap := (minDist - dist) / dist * 0.5
			push := r2.Scale(overlap, d)
			a.Pos = r2.Sub(a.Pos, push)
			b.Pos = r2.Add(b.Pos, push)
		}
	}
}

// Freeze pins every node position and detaches all forces. Subsequent
// Simulate calls are no-ops; positions stay identical until the dataset is
// replaced.
func (l *Layout) Freeze() {
	if l.frozen {
		return
	}
	defer metrics.Timer(metrics.LayoutFreeze)()
	for _, n := range l.nodes {
		n.vel = r2.Vec{}
	}
	l.frozen = true
}

// Frozen reports whether the layout has been frozen.
func (l *Layout) Frozen() bool {
	return l.frozen
}

// Nodes returns the layout nodes in construction order.
func (l *Layout) Nodes() []*Node {
	return l.nodes
}

// Node returns the node for an entity id.
func (l *Layout) Node(id string) (*Node, bool) {
	i, ok := l.index[id]
	if !ok {
		return nil, false
	}
	return l.nodes[i], true
}

// Links returns the dangling-filtered links the layout was built with.
func (l *Layout) Links() []model.Link {
	return l.links
}

// Bounds returns the bounding box over all finite node positions. ok is
// false for an empty layout.
func (l *Layout) Bounds() (min, max r2.Vec, ok bool) {
	for _, n := range l.nodes {
		if math.IsNaN(n.Pos.X) || math.IsNaN(n.Pos.Y) ||
			math.IsInf(n.Pos.X, 0) || math.IsInf(n.Pos.Y, 0) {
			continue
		}
		if !ok {
			min, max = n.Pos, n.Pos
			ok = true
			continue
		}
		min.X = math.Min(min.X, n.Pos.X)
		min.Y = math.Min(min.Y, n.Pos.Y)
		max.X = math.Max(max.X, n.Pos.X)
		max.Y = math.Max(max.Y, n.Pos.Y)
	}
	return min, max, ok
}
