// Package model defines the entity/relationship data model for the causal
// graph and the cascade artifacts consumed from the prediction service.
//
// Wire payloads are parsed fail-closed: a malformed entity or link is
// rejected with an error instead of flowing into layout or rendering.
package model

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// EntityType classifies a node in the causal graph.
type EntityType string

const (
	EntityCompany   EntityType = "company"
	EntityETF       EntityType = "etf"
	EntitySector    EntityType = "sector"
	EntityIndex     EntityType = "index"
	EntityIndicator EntityType = "indicator"
)

// ParseEntityType validates a wire entity type string.
func ParseEntityType(s string) (EntityType, error) {
	switch t := EntityType(strings.ToLower(strings.TrimSpace(s))); t {
	case EntityCompany, EntityETF, EntitySector, EntityIndex, EntityIndicator:
		return t, nil
	default:
		return "", fmt.Errorf("unknown entity type %q", s)
	}
}

// Entity is a node in the causal graph: a company, ETF, sector, index, or
// macro indicator. Positions are owned by the layout engine, not the model.
type Entity struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Type   EntityType `json:"type"`
	Sector string     `json:"sector,omitempty"`
}

// Validate reports whether the entity is structurally sound.
func (e Entity) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("entity has empty id")
	}
	if _, err := ParseEntityType(string(e.Type)); err != nil {
		return fmt.Errorf("entity %s: %w", e.ID, err)
	}
	return nil
}

// SectorKey returns the cluster key for the entity. Indicators, sectors,
// ETFs and indices each map to a fixed pseudo-cluster; companies cluster by
// their sector, falling back to "other".
func (e Entity) SectorKey() string {
	switch e.Type {
	case EntityIndicator:
		return "indicators"
	case EntitySector:
		return "sectors"
	case EntityETF, EntityIndex:
		return "etfs"
	default:
		if e.Sector != "" {
			return e.Sector
		}
		return "other"
	}
}

// ParseEntity decodes and validates a single wire entity.
func ParseEntity(data []byte) (Entity, error) {
	var raw struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Type   string `json:"type"`
		Sector string `json:"sector"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Entity{}, fmt.Errorf("decoding entity: %w", err)
	}
	t, err := ParseEntityType(raw.Type)
	if err != nil {
		return Entity{}, err
	}
	sector := raw.Sector
	if sector == "N/A" {
		sector = ""
	}
	e := Entity{ID: raw.ID, Name: raw.Name, Type: t, Sector: sector}
	if err := e.Validate(); err != nil {
		return Entity{}, err
	}
	return e, nil
}

// ParseEntities decodes a wire entity list, rejecting the whole payload if
// any entry is malformed.
func ParseEntities(data []byte) ([]Entity, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decoding entity list: %w", err)
	}
	entities := make([]Entity, 0, len(raws))
	for i, raw := range raws {
		e, err := ParseEntity(raw)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}
