package testutil

import (
	"testing"

	"github.com/marketgraph/cascadeviz/pkg/model"
)

// AssertAllValid verifies every entity and link passes validation.
func AssertAllValid(t *testing.T, entities []model.Entity, links []model.Link) {
	t.Helper()
	for i, e := range entities {
		if err := e.Validate(); err != nil {
			t.Errorf("entity %d (%s) invalid: %v", i, e.ID, err)
		}
	}
	for i, l := range links {
		if err := l.Validate(); err != nil {
			t.Errorf("link %d (%s) invalid: %v", i, l.Key(), err)
		}
	}
}

// AssertNoDuplicateIDs verifies all entity ids are unique.
func AssertNoDuplicateIDs(t *testing.T, entities []model.Entity) {
	t.Helper()
	seen := make(map[string]bool)
	for _, e := range entities {
		if seen[e.ID] {
			t.Errorf("duplicate entity ID: %s", e.ID)
		}
		seen[e.ID] = true
	}
}

// AssertNoDangling verifies every link endpoint references a known entity.
func AssertNoDangling(t *testing.T, entities []model.Entity, links []model.Link) {
	t.Helper()
	ids := make(map[string]bool, len(entities))
	for _, e := range entities {
		ids[e.ID] = true
	}
	for _, l := range links {
		if !ids[l.Source] || !ids[l.Target] {
			t.Errorf("dangling link %s", l.Key())
		}
	}
}

// AssertLinkExists verifies a directed link between two ids is present.
func AssertLinkExists(t *testing.T, links []model.Link, source, target string) {
	t.Helper()
	for _, l := range links {
		if l.Source == source && l.Target == target {
			return
		}
	}
	t.Errorf("expected link %s -> %s not found", source, target)
}
