// Package analysis derives graph structure facts the visualization needs:
// per-entity degree (connection count), neighbor sets, and incident links.
//
// The directed graph is built once per dataset load on top of gonum's
// simple.DirectedGraph; the layout engine and highlight controller read from
// it without rebuilding.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/marketgraph/cascadeviz/pkg/model"
)

// Analyzer wraps the causal graph for structural queries.
type Analyzer struct {
	g         *simple.DirectedGraph
	idToNode  map[string]int64
	nodeToID  map[int64]string
	entityMap map[string]model.Entity
	links     []model.Link
}

// NewAnalyzer builds the directed graph from a dataset. Links referencing
// entities absent from the node list are dropped before any edge is added.
func NewAnalyzer(entities []model.Entity, links []model.Link) *Analyzer {
	g := simple.NewDirectedGraph()
	idToNode := make(map[string]int64, len(entities))
	nodeToID := make(map[int64]string, len(entities))
	entityMap := make(map[string]model.Entity, len(entities))

	for _, e := range entities {
		if _, dup := idToNode[e.ID]; dup {
			continue
		}
		entityMap[e.ID] = e
		n := g.NewNode()
		g.AddNode(n)
		idToNode[e.ID] = n.ID()
		nodeToID[n.ID()] = e.ID
	}

	kept := make([]model.Link, 0, len(links))
	for _, l := range links {
		u, uok := idToNode[l.Source]
		v, vok := idToNode[l.Target]
		if !uok || !vok || u == v {
			continue
		}
		kept = append(kept, l)
		// simple.DirectedGraph rejects duplicate edges; parallel links with
		// different relationships share one edge for structural purposes.
		if g.Edge(u, v) == nil {
			g.SetEdge(g.NewEdge(g.Node(u), g.Node(v)))
		}
	}

	return &Analyzer{
		g:         g,
		idToNode:  idToNode,
		nodeToID:  nodeToID,
		entityMap: entityMap,
		links:     kept,
	}
}

// Links returns the dangling-filtered link list.
func (a *Analyzer) Links() []model.Link {
	return a.links
}

// Entity returns the entity by id, reporting whether it exists.
func (a *Analyzer) Entity(id string) (model.Entity, bool) {
	e, ok := a.entityMap[id]
	return e, ok
}

// ConnectionCounts returns total degree (in + out) per entity id.
func (a *Analyzer) ConnectionCounts() map[string]int {
	counts := make(map[string]int, len(a.entityMap))
	nodes := a.g.Nodes()
	for nodes.Next() {
		n := nodes.Node()
		id := a.nodeToID[n.ID()]
		counts[id] = a.g.To(n.ID()).Len() + a.g.From(n.ID()).Len()
	}
	return counts
}

// Neighbors returns the ids adjacent to the given entity in either
// direction, sorted for determinism. Unknown ids yield nil.
func (a *Analyzer) Neighbors(id string) []string {
	nid, ok := a.idToNode[id]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	from := a.g.From(nid)
	for from.Next() {
		out = appendUnique(out, seen, a.nodeToID[from.Node().ID()])
	}
	to := a.g.To(nid)
	for to.Next() {
		out = appendUnique(out, seen, a.nodeToID[to.Node().ID()])
	}
	sort.Strings(out)
	return out
}

// IncidentLinks returns the links touching the given entity id.
func (a *Analyzer) IncidentLinks(id string) []model.Link {
	var out []model.Link
	for _, l := range a.links {
		if l.Source == id || l.Target == id {
			out = append(out, l)
		}
	}
	return out
}

func appendUnique(out []string, seen map[string]bool, id string) []string {
	if seen[id] {
		return out
	}
	seen[id] = true
	return append(out, id)
}
