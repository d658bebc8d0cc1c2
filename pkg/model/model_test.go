package model

import (
	"testing"
)

func TestParseEntityType(t *testing.T) {
	valid := []string{"company", "etf", "sector", "index", "indicator", " Company "}
	for _, s := range valid {
		if _, err := ParseEntityType(s); err != nil {
			t.Errorf("ParseEntityType(%q): unexpected error %v", s, err)
		}
	}
	for _, s := range []string{"", "stock", "COMP ANY"} {
		if _, err := ParseEntityType(s); err == nil {
			t.Errorf("ParseEntityType(%q): expected error", s)
		}
	}
}

func TestParseEntityFailsClosed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"empty id", `{"id":"","name":"Apple","type":"company"}`},
		{"bad type", `{"id":"AAPL","name":"Apple","type":"widget"}`},
		{"not json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseEntity([]byte(tc.data)); err == nil {
				t.Errorf("expected parse error for %s", tc.data)
			}
		})
	}

	e, err := ParseEntity([]byte(`{"id":"AAPL","name":"Apple Inc.","type":"company","sector":"technology"}`))
	if err != nil {
		t.Fatalf("valid entity rejected: %v", err)
	}
	if e.Type != EntityCompany || e.Sector != "technology" {
		t.Errorf("unexpected entity: %+v", e)
	}
}

func TestParseEntityNormalizesNASector(t *testing.T) {
	e, err := ParseEntity([]byte(`{"id":"GDP","name":"GDP Growth","type":"indicator","sector":"N/A"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if e.Sector != "" {
		t.Errorf("sector = %q, want empty", e.Sector)
	}
}

func TestSectorKey(t *testing.T) {
	cases := []struct {
		entity Entity
		want   string
	}{
		{Entity{ID: "FED_RATE", Type: EntityIndicator}, "indicators"},
		{Entity{ID: "TECH", Type: EntitySector}, "sectors"},
		{Entity{ID: "XLK", Type: EntityETF}, "etfs"},
		{Entity{ID: "SPX", Type: EntityIndex}, "etfs"},
		{Entity{ID: "AAPL", Type: EntityCompany, Sector: "technology"}, "technology"},
		{Entity{ID: "ZZZ", Type: EntityCompany}, "other"},
	}
	for _, tc := range cases {
		if got := tc.entity.SectorKey(); got != tc.want {
			t.Errorf("SectorKey(%s) = %q, want %q", tc.entity.ID, got, tc.want)
		}
	}
}

func TestLinkValidate(t *testing.T) {
	good := Link{Source: "AAPL", Target: "XLK", Relationship: RelInSector, Strength: 0.8, DelayDays: 1, Confidence: 0.9}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid link rejected: %v", err)
	}

	bad := []Link{
		{Source: "", Target: "XLK", Relationship: RelInSector},
		{Source: "AAPL", Target: "XLK", Relationship: "friends_with"},
		{Source: "AAPL", Target: "XLK", Relationship: RelInSector, Strength: 1.5},
		{Source: "AAPL", Target: "XLK", Relationship: RelInSector, Confidence: -0.1},
		{Source: "AAPL", Target: "XLK", Relationship: RelInSector, DelayDays: -1},
	}
	for i, l := range bad {
		if err := l.Validate(); err == nil {
			t.Errorf("bad link %d accepted: %+v", i, l)
		}
	}
}

func TestLinkKeys(t *testing.T) {
	l := Link{Source: "AAPL", Target: "XLK", Relationship: RelInSector}
	if got := l.Key(); got != "AAPL-XLK" {
		t.Errorf("Key() = %q, want AAPL-XLK", got)
	}
	if got := l.DedupKey(); got != "AAPL-XLK-in_sector" {
		t.Errorf("DedupKey() = %q", got)
	}
	if got := LinkKey("a", "b"); got != "a-b" {
		t.Errorf("LinkKey = %q", got)
	}
}

func TestFilterDangling(t *testing.T) {
	entities := []Entity{
		{ID: "A", Type: EntityCompany},
		{ID: "B", Type: EntityCompany},
	}
	links := []Link{
		{Source: "A", Target: "B", Relationship: RelCorrelated},
		{Source: "A", Target: "MISSING", Relationship: RelCorrelated},
		{Source: "MISSING", Target: "B", Relationship: RelCorrelated},
	}
	kept := FilterDangling(links, entities)
	if len(kept) != 1 || kept[0].Target != "B" || kept[0].Source != "A" {
		t.Errorf("FilterDangling kept %+v", kept)
	}

	if got := FilterDangling(nil, entities); len(got) != 0 {
		t.Errorf("nil links: got %+v", got)
	}
	if got := FilterDangling(links, nil); len(got) != 0 {
		t.Errorf("nil entities: got %+v", got)
	}
}

func TestPredictionEffectsOrdering(t *testing.T) {
	p := Prediction{
		Trigger: Trigger{Entity: "AAPL"},
		Timeline: map[string][]CascadeEffect{
			"Day 2-3": {
				{Entity: "QQQ", Order: 2, Day: 2, Confidence: 0.5},
				{Entity: "MSFT", Order: 2, Day: 2, Confidence: 0.9},
			},
			"Day 1": {
				{Entity: "XLK", Order: 1, Day: 1, Confidence: 0.8},
			},
		},
	}
	effects := p.Effects()
	want := []string{"XLK", "MSFT", "QQQ"}
	if len(effects) != len(want) {
		t.Fatalf("got %d effects, want %d", len(effects), len(want))
	}
	for i, id := range want {
		if effects[i].Entity != id {
			t.Errorf("effects[%d] = %s, want %s", i, effects[i].Entity, id)
		}
	}
}

func TestParsePredictionFailsClosed(t *testing.T) {
	if _, err := ParsePrediction([]byte(`{"trigger":{"entity":""},"timeline":{}}`)); err == nil {
		t.Error("empty trigger accepted")
	}
	bad := `{"trigger":{"entity":"AAPL"},"timeline":{"Day 1":[{"entity":"XLK","order":0}]}}`
	if _, err := ParsePrediction([]byte(bad)); err == nil {
		t.Error("order 0 effect accepted")
	}
	good := `{"trigger":{"entity":"AAPL","magnitude_percent":-8},"horizon_days":14,"total_effects":1,` +
		`"timeline":{"Day 1":[{"entity":"XLK","order":1,"confidence":0.8,"cause_path":["XLK"]}]}}`
	p, err := ParsePrediction([]byte(good))
	if err != nil {
		t.Fatalf("valid prediction rejected: %v", err)
	}
	if p.Effects()[0].CausePath[0] != "XLK" {
		t.Errorf("cause path lost: %+v", p.Effects()[0])
	}
}

func TestStats(t *testing.T) {
	entities := []Entity{
		{ID: "AAPL", Type: EntityCompany},
		{ID: "MSFT", Type: EntityCompany},
		{ID: "XLK", Type: EntityETF},
	}
	links := []Link{
		{Source: "AAPL", Target: "XLK", Relationship: RelInSector},
	}
	s := Stats(entities, links)
	if s.NumEntities != 3 || s.NumLinks != 1 {
		t.Errorf("counts: %+v", s)
	}
	if s.EntityTypes["company"] != 2 || s.RelationshipTypes["in_sector"] != 1 {
		t.Errorf("type counts: %+v", s)
	}
}
