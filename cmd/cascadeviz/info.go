package main

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/marketgraph/cascadeviz/pkg/client"
	"github.com/marketgraph/cascadeviz/pkg/model"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	chainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	configPath := commonFlags(fs)
	clear := fs.Bool("clear", false, "Invalidate the cache")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if *clear {
		a.cache.Invalidate()
		fmt.Println("cache invalidated")
		return nil
	}

	info := a.cache.Info()
	fmt.Println(titleStyle.Render("graph cache"))
	if !info.IsCached {
		fmt.Println(warnStyle.Render("  empty (next render will fetch)"))
		return nil
	}
	fmt.Printf("  %s %.1f min\n", keyStyle.Render("age:"), info.AgeMinutes)
	fmt.Printf("  %s %d\n", keyStyle.Render("nodes:"), info.NodeCount)
	fmt.Printf("  %s %d\n", keyStyle.Render("links:"), info.LinkCount)
	return nil
}

func cmdStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := commonFlags(fs)
	force := fs.Bool("force", false, "Bypass the cache and refetch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	entry, err := a.fetch(context.Background(), *force)
	if err != nil {
		return err
	}
	stats := model.Stats(entry.Entities, entry.Links)

	fmt.Println(titleStyle.Render("dataset"))
	fmt.Printf("  %s %d\n", keyStyle.Render("entities:"), stats.NumEntities)
	fmt.Printf("  %s %d\n", keyStyle.Render("links:"), stats.NumLinks)
	printCounts("entity types", stats.EntityTypes)
	printCounts("relationships", stats.RelationshipTypes)
	return nil
}

func printCounts(title string, counts map[string]int) {
	fmt.Println(titleStyle.Render(title))
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s %d\n", keyStyle.Render(name+":"), counts[name])
	}
}

func cmdExplain(args []string) error {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	configPath := commonFlags(fs)
	entity := fs.String("entity", "", "Trigger entity id (required)")
	surprise := fs.Float64("surprise", -5, "Trigger magnitude percent")
	horizon := fs.Int("horizon", 14, "Projection horizon in days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *entity == "" {
		return fmt.Errorf("explain: -entity is required")
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	exp, err := a.client.Explain(context.Background(), client.PredictRequest{
		EntityID:        *entity,
		SurprisePercent: *surprise,
		HorizonDays:     *horizon,
	})
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("cascade from %s (%+.1f%%)",
		exp.Trigger.Entity, exp.Trigger.MagnitudePercent)))
	fmt.Printf("  %s %d (1st: %d, 2nd: %d, 3rd: %d)\n\n",
		keyStyle.Render("effects:"),
		exp.Summary.TotalEffects, exp.Summary.FirstOrder,
		exp.Summary.SecondOrder, exp.Summary.ThirdOrder)

	for _, chain := range exp.TopEffects {
		hops := make([]string, 0, len(chain.Steps)+1)
		if len(chain.Steps) > 0 {
			hops = append(hops, chain.Steps[0].From)
		}
		for _, step := range chain.Steps {
			hops = append(hops, step.To)
		}
		fmt.Println(chainStyle.Render(strings.Join(hops, " -> ")))
		fmt.Printf("  %s %+.2f%%  %s %.2f\n",
			keyStyle.Render("magnitude:"), chain.Effect.MagnitudePercent,
			keyStyle.Render("confidence:"), chain.Effect.Confidence)
		if chain.Narrative != "" {
			fmt.Printf("  %s\n", chain.Narrative)
		}
		for _, step := range chain.Steps {
			for _, ev := range step.Evidence {
				fmt.Printf("    %s %s\n", keyStyle.Render("evidence:"), ev)
			}
		}
		fmt.Println()
	}
	return nil
}
