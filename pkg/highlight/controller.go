// Package highlight owns the interaction state of the graph view: the
// selected node, the connectivity highlight, and the cascade overlay. All
// membership computation happens here so the renderer only tests sets.
package highlight

import (
	"github.com/marketgraph/cascadeviz/pkg/model"
)

// Connectivity is the "view connections" highlight: a node, its neighbors,
// and the incident link keys.
type Connectivity struct {
	Nodes map[string]bool
	Links map[string]bool
}

// Cascade is the cascade overlay: member nodes, hop order per node, and the
// link keys that represent actual one-hop cascade steps.
type Cascade struct {
	Nodes       map[string]bool
	OrderByNode map[string]int
	Links       map[string]bool
}

// Snapshot is an immutable-by-convention copy of the highlight state handed
// to the renderer each frame.
type Snapshot struct {
	Selected     *model.Entity
	Connectivity Connectivity
	Cascade      Cascade
}

// Active reports whether any highlight (selection aside) is showing.
func (s Snapshot) Active() bool {
	return len(s.Connectivity.Nodes) > 0 || len(s.Cascade.Nodes) > 0
}

// Member reports whether a node participates in the active highlight or is
// the selection itself.
func (s Snapshot) Member(id string) bool {
	if s.Selected != nil && s.Selected.ID == id {
		return true
	}
	return s.Connectivity.Nodes[id] || s.Cascade.Nodes[id]
}

// CascadeOrder returns the hop order of a cascade-member node.
func (s Snapshot) CascadeOrder(id string) (int, bool) {
	order, ok := s.Cascade.OrderByNode[id]
	return order, ok
}

// Controller mutates the per-view highlight state. At most one of
// connectivity/cascade is expected to be non-empty at a time from the UI's
// perspective; SelectNode and Clear enforce it, the two overlay setters
// leave clearing the other to the caller.
type Controller struct {
	selected     *model.Entity
	connectivity Connectivity
	cascade      Cascade
}

// NewController returns an empty highlight state.
func NewController() *Controller {
	c := &Controller{}
	c.reset()
	return c
}

func (c *Controller) reset() {
	c.connectivity = Connectivity{Nodes: map[string]bool{}, Links: map[string]bool{}}
	c.cascade = Cascade{Nodes: map[string]bool{}, OrderByNode: map[string]int{}, Links: map[string]bool{}}
}

// SelectNode sets the selection and clears both overlays. Selecting nil
// clears the selection only.
func (c *Controller) SelectNode(node *model.Entity) {
	c.selected = node
	c.reset()
}

// ShowConnectivity computes the neighborhood of node over the given links
// and stores it as the connectivity highlight. The returned node ids are the
// fit-to-highlight targets for the viewport.
func (c *Controller) ShowConnectivity(node model.Entity, links []model.Link) []string {
	nodes := map[string]bool{node.ID: true}
	linkKeys := map[string]bool{}
	for _, l := range links {
		switch node.ID {
		case l.Source:
			nodes[l.Target] = true
			linkKeys[l.Key()] = true
		case l.Target:
			nodes[l.Source] = true
			linkKeys[l.Key()] = true
		}
	}
	c.connectivity = Connectivity{Nodes: nodes, Links: linkKeys}

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	return ids
}

// ApplyCascadeOverlay stores the cascade node set and order map, then
// derives the member links: only links whose endpoints are both members and
// whose hop orders differ by exactly one represent a real cascade step.
// Incidental same-graph edges between distant-order members stay out.
func (c *Controller) ApplyCascadeOverlay(nodeIDs map[string]bool, orderByNode map[string]int, links []model.Link) {
	nodes := make(map[string]bool, len(nodeIDs))
	for id := range nodeIDs {
		nodes[id] = true
	}
	orders := make(map[string]int, len(orderByNode))
	for id, o := range orderByNode {
		orders[id] = o
	}

	linkKeys := map[string]bool{}
	for _, l := range links {
		if !nodes[l.Source] || !nodes[l.Target] {
			continue
		}
		so, sok := orders[l.Source]
		to, tok := orders[l.Target]
		if !sok || !tok {
			continue
		}
		diff := so - to
		if diff == 1 || diff == -1 {
			linkKeys[l.Key()] = true
		}
	}
	c.cascade = Cascade{Nodes: nodes, OrderByNode: orders, Links: linkKeys}
}

// ClearCascade clears the cascade overlay only, leaving selection and
// connectivity untouched.
func (c *Controller) ClearCascade() {
	c.cascade = Cascade{Nodes: map[string]bool{}, OrderByNode: map[string]int{}, Links: map[string]bool{}}
}

// ClearConnectivity clears the connectivity highlight only.
func (c *Controller) ClearConnectivity() {
	c.connectivity = Connectivity{Nodes: map[string]bool{}, Links: map[string]bool{}}
}

// Clear resets the selection and both overlays. Idempotent.
func (c *Controller) Clear() {
	c.selected = nil
	c.reset()
}

// Selected returns the currently selected entity, or nil.
func (c *Controller) Selected() *model.Entity {
	return c.selected
}

// Snapshot copies the current state for a render pass.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Selected:     c.selected,
		Connectivity: Connectivity{Nodes: copySet(c.connectivity.Nodes), Links: copySet(c.connectivity.Links)},
		Cascade: Cascade{
			Nodes:       copySet(c.cascade.Nodes),
			OrderByNode: copyOrders(c.cascade.OrderByNode),
			Links:       copySet(c.cascade.Links),
		},
	}
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		if v {
			out[k] = true
		}
	}
	return out
}

func copyOrders(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
