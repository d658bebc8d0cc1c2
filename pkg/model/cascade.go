package model

import (
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
)

// Trigger describes the event that started a cascade.
type Trigger struct {
	Entity           string  `json:"entity"`
	MagnitudePercent float64 `json:"magnitude_percent"`
	EventType        string  `json:"event_type"`
	Description      string  `json:"description,omitempty"`
}

// CascadeEffect is one predicted effect in a cascade. Order is the hop
// distance from the trigger; CausePath is the realized chain of entity ids
// from the trigger (exclusive) to this effect's entity (inclusive).
type CascadeEffect struct {
	Entity           string     `json:"entity"`
	MagnitudePercent float64    `json:"magnitude_percent"`
	MagnitudeRange   [2]float64 `json:"magnitude_range"`
	Day              float64    `json:"day"`
	Confidence       float64    `json:"confidence"`
	Order            int        `json:"order"`
	RelationshipType string     `json:"relationship_type,omitempty"`
	Explanation      string     `json:"explanation,omitempty"`
	CausePath        []string   `json:"cause_path,omitempty"`
}

// Validate reports whether the effect is structurally sound.
func (e CascadeEffect) Validate() error {
	if e.Entity == "" {
		return fmt.Errorf("effect has empty entity")
	}
	if e.Order < 1 {
		return fmt.Errorf("effect %s: order %d < 1", e.Entity, e.Order)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("effect %s: confidence %v out of [0,1]", e.Entity, e.Confidence)
	}
	return nil
}

// Prediction is the cascade-prediction response: a trigger plus effects
// bucketed into timeline periods ("Day 1", "Day 2-3", ...).
type Prediction struct {
	Trigger        Trigger                    `json:"trigger"`
	HorizonDays    int                        `json:"horizon_days"`
	TotalEffects   int                        `json:"total_effects"`
	EffectsByOrder map[string]int             `json:"effects_by_order,omitempty"`
	Timeline       map[string][]CascadeEffect `json:"timeline"`
}

// Effects flattens the timeline buckets into one deterministic list ordered
// by hop order, then day, then confidence descending, then entity id.
func (p Prediction) Effects() []CascadeEffect {
	var effects []CascadeEffect
	for _, bucket := range p.Timeline {
		effects = append(effects, bucket...)
	}
	sort.SliceStable(effects, func(i, j int) bool {
		a, b := effects[i], effects[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Entity < b.Entity
	})
	return effects
}

// ParsePrediction decodes and validates a cascade-prediction payload.
// A single malformed effect rejects the whole payload.
func ParsePrediction(data []byte) (Prediction, error) {
	var p Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return Prediction{}, fmt.Errorf("decoding prediction: %w", err)
	}
	if p.Trigger.Entity == "" {
		return Prediction{}, fmt.Errorf("prediction has empty trigger entity")
	}
	for period, bucket := range p.Timeline {
		for _, eff := range bucket {
			if err := eff.Validate(); err != nil {
				return Prediction{}, fmt.Errorf("timeline %q: %w", period, err)
			}
		}
	}
	return p, nil
}

// ChainStep is one hop of a traced causal chain, with the evidence backing
// the relationship.
type ChainStep struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	Relationship string   `json:"relationship"`
	Strength     float64  `json:"strength"`
	DelayDays    float64  `json:"delay_days"`
	Confidence   float64  `json:"confidence"`
	Evidence     []string `json:"evidence,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

// ChainExplanation is the detailed explanation of one predicted effect,
// consumed by the chain-detail view only.
type ChainExplanation struct {
	Effect    CascadeEffect `json:"effect"`
	Trigger   Trigger       `json:"trigger"`
	Steps     []ChainStep   `json:"steps"`
	Narrative string        `json:"narrative,omitempty"`
}

// GraphStats summarizes the loaded dataset for info displays.
type GraphStats struct {
	NumEntities       int            `json:"num_entities"`
	NumLinks          int            `json:"num_links"`
	EntityTypes       map[string]int `json:"entity_types"`
	RelationshipTypes map[string]int `json:"relationship_types"`
}

// Stats counts entities and links by type.
func Stats(entities []Entity, links []Link) GraphStats {
	s := GraphStats{
		NumEntities:       len(entities),
		NumLinks:          len(links),
		EntityTypes:       make(map[string]int),
		RelationshipTypes: make(map[string]int),
	}
	for _, e := range entities {
		s.EntityTypes[string(e.Type)]++
	}
	for _, l := range links {
		s.RelationshipTypes[string(l.Relationship)]++
	}
	return s
}
