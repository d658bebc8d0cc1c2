package highlight

import (
	"testing"

	"github.com/marketgraph/cascadeviz/pkg/model"
)

func TestBuildCascadeOverlay(t *testing.T) {
	effects := []model.CascadeEffect{
		{Entity: "XLK", Order: 1, Confidence: 0.9},
		{Entity: "MSFT", Order: 2, Confidence: 0.7},
		{Entity: "QQQ", Order: 2, Confidence: 0.6},
		{Entity: "", Order: 1}, // malformed entries are skipped
	}
	o := BuildCascadeOverlay("AAPL", effects)

	if !o.NodeIDs["AAPL"] || o.OrderByNode["AAPL"] != 0 {
		t.Errorf("trigger not at order 0: %+v", o.OrderByNode)
	}
	if o.OrderByNode["XLK"] != 1 || o.OrderByNode["MSFT"] != 2 || o.OrderByNode["QQQ"] != 2 {
		t.Errorf("orders: %+v", o.OrderByNode)
	}
	if len(o.NodeIDs) != 4 {
		t.Errorf("node set: %+v", o.NodeIDs)
	}
}

func TestBuildCascadeOverlayKeepsSmallestOrder(t *testing.T) {
	effects := []model.CascadeEffect{
		{Entity: "MSFT", Order: 3},
		{Entity: "MSFT", Order: 1},
		{Entity: "MSFT", Order: 2},
	}
	o := BuildCascadeOverlay("AAPL", effects)
	if o.OrderByNode["MSFT"] != 1 {
		t.Errorf("order = %d, want 1 (smallest)", o.OrderByNode["MSFT"])
	}
}

func TestBuildCascadeOverlayTriggerAsEffect(t *testing.T) {
	// A cycle can predict an effect back onto the trigger; order 0 wins.
	o := BuildCascadeOverlay("AAPL", []model.CascadeEffect{{Entity: "AAPL", Order: 2}})
	if o.OrderByNode["AAPL"] != 0 {
		t.Errorf("trigger order = %d, want 0", o.OrderByNode["AAPL"])
	}
}

func TestBuildChainOverlay(t *testing.T) {
	o := BuildChainOverlay("T", []string{"X", "Y"})

	wantOrders := map[string]int{"T": 0, "X": 1, "Y": 2}
	if len(o.OrderByNode) != len(wantOrders) {
		t.Fatalf("orders = %+v, want %+v", o.OrderByNode, wantOrders)
	}
	for id, order := range wantOrders {
		if o.OrderByNode[id] != order {
			t.Errorf("order[%s] = %d, want %d", id, o.OrderByNode[id], order)
		}
		if !o.NodeIDs[id] {
			t.Errorf("node %s missing", id)
		}
	}
	if len(o.NodeIDs) != 3 {
		t.Errorf("nodes = %+v, want exactly {T,X,Y}", o.NodeIDs)
	}
}

func TestBuildChainOverlayEmptyPath(t *testing.T) {
	o := BuildChainOverlay("T", nil)
	if !o.Empty() {
		t.Errorf("empty path produced overlay: %+v", o)
	}
}

func TestApplyChainEmptyPathClearsCascadeOnly(t *testing.T) {
	c := NewController()
	links := []model.Link{link("T", "X")}

	c.ShowConnectivity(model.Entity{ID: "T"}, links)
	ApplyChain(c, "T", []string{"X"}, links)
	if !c.Snapshot().Cascade.Nodes["X"] {
		t.Fatal("chain overlay not applied")
	}

	ApplyChain(c, "T", nil, links)
	s := c.Snapshot()
	if len(s.Cascade.Nodes) != 0 {
		t.Errorf("cascade not cleared: %+v", s.Cascade)
	}
	if len(s.Connectivity.Nodes) == 0 {
		t.Error("connectivity was cleared by an empty chain")
	}
}

func TestApplyCascadeDerivesChainLinks(t *testing.T) {
	c := NewController()
	links := []model.Link{
		link("AAPL", "XLK"),
		link("XLK", "MSFT"),
		link("AAPL", "MSFT"), // order diff 2, excluded
	}
	effects := []model.CascadeEffect{
		{Entity: "XLK", Order: 1},
		{Entity: "MSFT", Order: 2},
	}
	ApplyCascade(c, "AAPL", effects, links)

	s := c.Snapshot()
	if !s.Cascade.Links["AAPL-XLK"] || !s.Cascade.Links["XLK-MSFT"] {
		t.Errorf("step links missing: %+v", s.Cascade.Links)
	}
	if s.Cascade.Links["AAPL-MSFT"] {
		t.Error("shortcut link included")
	}
}

func TestOverlayWithOffGraphIDs(t *testing.T) {
	// Ids filtered out of the displayed node set still enter the overlay;
	// they just never match a displayed link.
	c := NewController()
	ApplyChain(c, "T", []string{"FILTERED"}, nil)
	s := c.Snapshot()
	if !s.Cascade.Nodes["FILTERED"] {
		t.Error("off-graph id dropped from overlay")
	}
	if len(s.Cascade.Links) != 0 {
		t.Errorf("links derived with no link set: %+v", s.Cascade.Links)
	}
}
