//go:build ignore

// generate_testdata.go creates synthetic graph datasets for layout and
// render benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	tests/testdata/benchmark/small.json   (~30 entities)
//	tests/testdata/benchmark/medium.json  (~120 entities)
//	tests/testdata/benchmark/large.json   (~550 entities)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/marketgraph/cascadeviz/pkg/model"
	"github.com/marketgraph/cascadeviz/pkg/testutil"
)

type datasetSpec struct {
	name string
	cfg  testutil.GeneratorConfig
}

var datasets = []datasetSpec{
	{"small", testutil.GeneratorConfig{
		Seed: 1, Sectors: 4, Companies: 5, ETFs: 3, Indicators: 3, LinkDensity: 0.15,
	}},
	{"medium", testutil.GeneratorConfig{
		Seed: 2, Sectors: 8, Companies: 12, ETFs: 8, Indicators: 6, LinkDensity: 0.08,
	}},
	{"large", testutil.GeneratorConfig{
		Seed: 3, Sectors: 11, Companies: 45, ETFs: 20, Indicators: 12, LinkDensity: 0.03,
	}},
}

type dataset struct {
	Entities []model.Entity `json:"entities"`
	Links    []model.Link   `json:"links"`
}

func main() {
	outputDir := filepath.Join("tests", "testdata", "benchmark")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", outputDir, err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		entities, links := testutil.Generate(ds.cfg)
		data, err := json.MarshalIndent(dataset{Entities: entities, Links: links}, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.name, err)
			os.Exit(1)
		}

		outputPath := filepath.Join(outputDir, ds.name+".json")
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}

		fmt.Printf("  Written %s (%d entities, %d links)\n", outputPath, len(entities), len(links))
	}

	fmt.Println("\nDone! Test datasets created in", outputDir)
}
