package model

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// RelationshipType classifies a causal link between two entities.
type RelationshipType string

const (
	RelSupplierTo        RelationshipType = "supplier_to"
	RelCustomerOf        RelationshipType = "customer_of"
	RelInSector          RelationshipType = "in_sector"
	RelInIndex           RelationshipType = "in_index"
	RelCompetesWith      RelationshipType = "competes_with"
	RelCorrelated        RelationshipType = "correlated"
	RelInverseCorrelated RelationshipType = "inverse_correlated"
	RelAffectedBy        RelationshipType = "affected_by"
)

// ParseRelationshipType validates a wire relationship string.
func ParseRelationshipType(s string) (RelationshipType, error) {
	switch r := RelationshipType(strings.ToLower(strings.TrimSpace(s))); r {
	case RelSupplierTo, RelCustomerOf, RelInSector, RelInIndex,
		RelCompetesWith, RelCorrelated, RelInverseCorrelated, RelAffectedBy:
		return r, nil
	default:
		return "", fmt.Errorf("unknown relationship type %q", s)
	}
}

// Link is a directed causal relationship from Source to Target.
type Link struct {
	Source       string           `json:"source"`
	Target       string           `json:"target"`
	Relationship RelationshipType `json:"relationship"`
	Strength     float64          `json:"strength"`
	DelayDays    float64          `json:"delay_days"`
	Confidence   float64          `json:"confidence"`
}

// Validate reports whether the link is structurally sound.
func (l Link) Validate() error {
	if l.Source == "" || l.Target == "" {
		return fmt.Errorf("link %s-%s has empty endpoint", l.Source, l.Target)
	}
	if _, err := ParseRelationshipType(string(l.Relationship)); err != nil {
		return fmt.Errorf("link %s-%s: %w", l.Source, l.Target, err)
	}
	if l.Strength < 0 || l.Strength > 1 {
		return fmt.Errorf("link %s-%s: strength %v out of [0,1]", l.Source, l.Target, l.Strength)
	}
	if l.Confidence < 0 || l.Confidence > 1 {
		return fmt.Errorf("link %s-%s: confidence %v out of [0,1]", l.Source, l.Target, l.Confidence)
	}
	if l.DelayDays < 0 {
		return fmt.Errorf("link %s-%s: negative delay %v", l.Source, l.Target, l.DelayDays)
	}
	return nil
}

// Key returns the canonical highlight-set key for the link.
func (l Link) Key() string {
	return LinkKey(l.Source, l.Target)
}

// DedupKey identifies a link for aggregation purposes. Two links between the
// same endpoints are distinct when their relationship differs.
func (l Link) DedupKey() string {
	return l.Source + "-" + l.Target + "-" + string(l.Relationship)
}

// LinkKey builds the canonical "source-target" key used by highlight sets.
func LinkKey(source, target string) string {
	return source + "-" + target
}

// ParseLink decodes and validates a single wire link.
func ParseLink(data []byte) (Link, error) {
	var raw struct {
		Source       string  `json:"source"`
		Target       string  `json:"target"`
		Relationship string  `json:"relationship"`
		Strength     float64 `json:"strength"`
		DelayDays    float64 `json:"delay_days"`
		Confidence   float64 `json:"confidence"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Link{}, fmt.Errorf("decoding link: %w", err)
	}
	rel, err := ParseRelationshipType(raw.Relationship)
	if err != nil {
		return Link{}, err
	}
	l := Link{
		Source:       raw.Source,
		Target:       raw.Target,
		Relationship: rel,
		Strength:     raw.Strength,
		DelayDays:    raw.DelayDays,
		Confidence:   raw.Confidence,
	}
	if err := l.Validate(); err != nil {
		return Link{}, err
	}
	return l, nil
}

// FilterDangling drops links whose endpoints are not both present in the
// entity set. Dangling links never reach layout or rendering.
func FilterDangling(links []Link, entities []Entity) []Link {
	present := make(map[string]bool, len(entities))
	for _, e := range entities {
		present[e.ID] = true
	}
	kept := make([]Link, 0, len(links))
	for _, l := range links {
		if present[l.Source] && present[l.Target] {
			kept = append(kept, l)
		}
	}
	return kept
}
