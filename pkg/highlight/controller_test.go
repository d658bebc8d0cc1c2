package highlight

import (
	"testing"

	"github.com/marketgraph/cascadeviz/pkg/model"
)

func link(source, target string) model.Link {
	return model.Link{
		Source:       source,
		Target:       target,
		Relationship: model.RelCorrelated,
		Strength:     0.5,
		Confidence:   0.5,
	}
}

func TestSelectNodeClearsOverlays(t *testing.T) {
	c := NewController()
	links := []model.Link{link("A", "B"), link("B", "C")}

	c.ShowConnectivity(model.Entity{ID: "A"}, links)
	c.ApplyCascadeOverlay(
		map[string]bool{"A": true, "B": true},
		map[string]int{"A": 0, "B": 1},
		links,
	)

	node := model.Entity{ID: "B", Type: model.EntityCompany}
	c.SelectNode(&node)

	s := c.Snapshot()
	if s.Selected == nil || s.Selected.ID != "B" {
		t.Fatalf("selected = %+v", s.Selected)
	}
	if len(s.Connectivity.Nodes) != 0 || len(s.Connectivity.Links) != 0 {
		t.Errorf("connectivity not cleared: %+v", s.Connectivity)
	}
	if len(s.Cascade.Nodes) != 0 || len(s.Cascade.OrderByNode) != 0 || len(s.Cascade.Links) != 0 {
		t.Errorf("cascade not cleared: %+v", s.Cascade)
	}
}

func TestShowConnectivity(t *testing.T) {
	c := NewController()
	links := []model.Link{
		link("A", "B"),
		link("C", "A"),
		link("B", "C"), // not incident to A
	}
	ids := c.ShowConnectivity(model.Entity{ID: "A"}, links)

	s := c.Snapshot()
	for _, id := range []string{"A", "B", "C"} {
		if !s.Connectivity.Nodes[id] {
			t.Errorf("node %s missing from connectivity", id)
		}
	}
	if !s.Connectivity.Links["A-B"] || !s.Connectivity.Links["C-A"] {
		t.Errorf("incident links missing: %+v", s.Connectivity.Links)
	}
	if s.Connectivity.Links["B-C"] {
		t.Error("non-incident link B-C included")
	}
	if len(ids) != 3 {
		t.Errorf("fit targets = %v", ids)
	}
}

func TestCascadeLinkDerivation(t *testing.T) {
	// Nodes {A:0, B:1, C:1, D:2}; links A->B, A->D, B->D, C->D.
	c := NewController()
	links := []model.Link{
		link("A", "B"),
		link("A", "D"),
		link("B", "D"),
		link("C", "D"),
	}
	nodes := map[string]bool{"A": true, "B": true, "C": true, "D": true}
	orders := map[string]int{"A": 0, "B": 1, "C": 1, "D": 2}
	c.ApplyCascadeOverlay(nodes, orders, links)

	s := c.Snapshot()
	wantIn := []string{"A-B", "B-D", "C-D"}
	for _, key := range wantIn {
		if !s.Cascade.Links[key] {
			t.Errorf("link %s missing (order diff 1)", key)
		}
	}
	if s.Cascade.Links["A-D"] {
		t.Error("link A-D included despite order diff 2")
	}

	// Without C in the node set, C-D drops out.
	c.ApplyCascadeOverlay(
		map[string]bool{"A": true, "B": true, "D": true},
		map[string]int{"A": 0, "B": 1, "D": 2},
		links,
	)
	s = c.Snapshot()
	if s.Cascade.Links["C-D"] {
		t.Error("link C-D included though C not supplied")
	}
	if !s.Cascade.Links["B-D"] {
		t.Error("link B-D missing")
	}
}

func TestIdempotentClear(t *testing.T) {
	c := NewController()
	node := model.Entity{ID: "A"}
	c.SelectNode(&node)
	c.ShowConnectivity(node, []model.Link{link("A", "B")})

	c.Clear()
	first := c.Snapshot()
	c.Clear()
	second := c.Snapshot()

	for _, s := range []Snapshot{first, second} {
		if s.Selected != nil || s.Active() {
			t.Errorf("clear left state: %+v", s)
		}
	}
	if len(first.Connectivity.Nodes) != len(second.Connectivity.Nodes) ||
		len(first.Cascade.Nodes) != len(second.Cascade.Nodes) {
		t.Error("double clear differs from single clear")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	c := NewController()
	c.ShowConnectivity(model.Entity{ID: "A"}, []model.Link{link("A", "B")})
	s := c.Snapshot()
	s.Connectivity.Nodes["MUTATED"] = true
	if c.Snapshot().Connectivity.Nodes["MUTATED"] {
		t.Error("snapshot shares state with controller")
	}
}

func TestSnapshotQueries(t *testing.T) {
	c := NewController()
	sel := model.Entity{ID: "SEL"}
	c.SelectNode(&sel)
	c.ApplyCascadeOverlay(
		map[string]bool{"A": true, "B": true},
		map[string]int{"A": 0, "B": 1},
		[]model.Link{link("A", "B")},
	)

	s := c.Snapshot()
	if !s.Active() {
		t.Error("cascade present but Active() = false")
	}
	if !s.Member("SEL") || !s.Member("A") || s.Member("ZZZ") {
		t.Error("Member misreports")
	}
	if order, ok := s.CascadeOrder("B"); !ok || order != 1 {
		t.Errorf("CascadeOrder(B) = %d, %v", order, ok)
	}
	if _, ok := s.CascadeOrder("SEL"); ok {
		t.Error("selection reported a cascade order")
	}
}
