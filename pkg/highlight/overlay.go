package highlight

import (
	"github.com/marketgraph/cascadeviz/pkg/model"
)

// Overlay is a computed cascade highlight input: the member node ids and the
// hop order per node, with the trigger always at order 0.
type Overlay struct {
	NodeIDs     map[string]bool
	OrderByNode map[string]int
}

// Empty reports whether the overlay selects nothing.
func (o Overlay) Empty() bool {
	return len(o.NodeIDs) == 0
}

// BuildCascadeOverlay maps a full effect list for one trigger into overlay
// sets: the trigger at order 0 and every effect entity at its hop order.
// Effect entities not present in the displayed node set are still included;
// the renderer simply skips ids it cannot position.
func BuildCascadeOverlay(trigger string, effects []model.CascadeEffect) Overlay {
	o := Overlay{
		NodeIDs:     map[string]bool{trigger: true},
		OrderByNode: map[string]int{trigger: 0},
	}
	for _, eff := range effects {
		if eff.Entity == "" {
			continue
		}
		o.NodeIDs[eff.Entity] = true
		// Keep the smallest order when an entity is hit via multiple chains.
		if prev, ok := o.OrderByNode[eff.Entity]; !ok || eff.Order < prev {
			o.OrderByNode[eff.Entity] = eff.Order
		}
	}
	// The trigger is order 0 even if it reappears as an effect.
	o.OrderByNode[trigger] = 0
	return o
}

// BuildChainOverlay maps one effect's realized cause path into overlay sets
// so a single causal chain can be traced among overlapping ones. causePath
// holds the ids from the hop after the trigger through the effect entity;
// an empty path yields an empty overlay, which ApplyChain treats as a
// cascade-only clear.
func BuildChainOverlay(trigger string, causePath []string) Overlay {
	if len(causePath) == 0 {
		return Overlay{NodeIDs: map[string]bool{}, OrderByNode: map[string]int{}}
	}
	o := Overlay{
		NodeIDs:     map[string]bool{trigger: true},
		OrderByNode: map[string]int{trigger: 0},
	}
	for i, id := range causePath {
		o.NodeIDs[id] = true
		o.OrderByNode[id] = i + 1
	}
	return o
}

// ApplyCascade builds the whole-cascade overlay and writes it into the
// controller against the given link set.
func ApplyCascade(c *Controller, trigger string, effects []model.CascadeEffect, links []model.Link) {
	o := BuildCascadeOverlay(trigger, effects)
	c.ApplyCascadeOverlay(o.NodeIDs, o.OrderByNode, links)
}

// ApplyChain writes a single-chain overlay into the controller. An empty
// path clears the cascade fields only, leaving any selection in place.
func ApplyChain(c *Controller, trigger string, causePath []string, links []model.Link) {
	o := BuildChainOverlay(trigger, causePath)
	if o.Empty() {
		c.ClearCascade()
		return
	}
	c.ApplyCascadeOverlay(o.NodeIDs, o.OrderByNode, links)
}
