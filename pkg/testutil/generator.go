// Package testutil provides deterministic graph fixture generators and
// assertion helpers for tests across the module.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/marketgraph/cascadeviz/pkg/model"
)

// GeneratorConfig controls dataset generation. The seed makes every run
// reproducible.
type GeneratorConfig struct {
	Seed        int64
	Sectors     int // sector entities, each with its companies
	Companies   int // companies per sector
	ETFs        int
	Indicators  int
	LinkDensity float64 // probability of an extra cross-company link, [0,1]
}

// DefaultGeneratorConfig is a small but structurally complete dataset.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        1,
		Sectors:     3,
		Companies:   4,
		ETFs:        2,
		Indicators:  2,
		LinkDensity: 0.15,
	}
}

// Generate builds a dataset: sectors with member companies, ETFs tracking
// companies, indicators affecting sectors, plus random competitive links.
func Generate(cfg GeneratorConfig) ([]model.Entity, []model.Link) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	var entities []model.Entity
	var links []model.Link
	var companies []model.Entity

	for s := 0; s < cfg.Sectors; s++ {
		sectorID := fmt.Sprintf("sector_%d", s)
		entities = append(entities, model.Entity{
			ID: sectorID, Name: fmt.Sprintf("Sector %d", s), Type: model.EntitySector,
		})
		for c := 0; c < cfg.Companies; c++ {
			company := model.Entity{
				ID:     fmt.Sprintf("CO_%d_%d", s, c),
				Name:   fmt.Sprintf("Company %d-%d", s, c),
				Type:   model.EntityCompany,
				Sector: sectorID,
			}
			entities = append(entities, company)
			companies = append(companies, company)
			links = append(links, model.Link{
				Source: company.ID, Target: sectorID,
				Relationship: model.RelInSector,
				Strength:     0.9, Confidence: 0.95,
			})
		}
	}

	for e := 0; e < cfg.ETFs; e++ {
		etfID := fmt.Sprintf("ETF_%d", e)
		entities = append(entities, model.Entity{
			ID: etfID, Name: fmt.Sprintf("ETF %d", e), Type: model.EntityETF,
		})
		for _, company := range companies {
			if rng.Float64() < 0.5 {
				links = append(links, model.Link{
					Source: etfID, Target: company.ID,
					Relationship: model.RelInIndex,
					Strength:     0.3 + 0.5*rng.Float64(), Confidence: 0.9,
				})
			}
		}
	}

	for i := 0; i < cfg.Indicators; i++ {
		indID := fmt.Sprintf("ind_%d", i)
		entities = append(entities, model.Entity{
			ID: indID, Name: fmt.Sprintf("Indicator %d", i), Type: model.EntityIndicator,
		})
		for s := 0; s < cfg.Sectors; s++ {
			links = append(links, model.Link{
				Source: fmt.Sprintf("sector_%d", s), Target: indID,
				Relationship: model.RelAffectedBy,
				Strength:     0.2 + 0.4*rng.Float64(),
				DelayDays:    float64(rng.Intn(5)),
				Confidence:   0.6,
			})
		}
	}

	for i, a := range companies {
		for _, b := range companies[i+1:] {
			if rng.Float64() < cfg.LinkDensity {
				links = append(links, model.Link{
					Source: a.ID, Target: b.ID,
					Relationship: model.RelCompetesWith,
					Strength:     rng.Float64(), Confidence: 0.5,
				})
			}
		}
	}

	return entities, links
}

// Cascade builds a synthetic cascade: effects fan out from the trigger in
// hop-order layers with realized cause paths, the shape /predict returns.
func Cascade(trigger string, layers [][]string) []model.CascadeEffect {
	var effects []model.CascadeEffect
	var path []string // realized chain through the first entity of each layer
	for order, layer := range layers {
		for i, entity := range layer {
			causePath := append(append([]string{}, path...), entity)
			effects = append(effects, model.CascadeEffect{
				Entity:           entity,
				Order:            order + 1,
				MagnitudePercent: -2.0 / float64(order+1),
				Day:              float64(order + 1),
				Confidence:       0.9 - 0.2*float64(order),
				CausePath:        causePath,
			})
			if i == 0 {
				path = causePath
			}
		}
	}
	return effects
}
