package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/marketgraph/cascadeviz/pkg/client"
	"github.com/marketgraph/cascadeviz/pkg/config"
	"github.com/marketgraph/cascadeviz/pkg/export"
	"github.com/marketgraph/cascadeviz/pkg/highlight"
	"github.com/marketgraph/cascadeviz/pkg/layout"
	"github.com/marketgraph/cascadeviz/pkg/model"
	"github.com/marketgraph/cascadeviz/pkg/predict"
	"github.com/marketgraph/cascadeviz/pkg/render"
	"github.com/marketgraph/cascadeviz/pkg/viewport"
	"github.com/marketgraph/cascadeviz/pkg/watcher"
)

func cmdCascade(args []string) error {
	fs := flag.NewFlagSet("cascade", flag.ExitOnError)
	configPath := commonFlags(fs)
	out := fs.String("o", "cascade.svg", "Output path (.png or .svg)")
	entity := fs.String("entity", "", "Trigger entity id (required)")
	surprise := fs.Float64("surprise", -5, "Trigger magnitude percent (negative for a miss)")
	horizon := fs.Int("horizon", 14, "Projection horizon in days")
	chain := fs.String("chain", "", "Isolate the single causal chain leading to this effect entity")
	force := fs.Bool("force", false, "Bypass the cache and refetch")
	watch := fs.Bool("watch", false, "Re-predict and re-render when the config file changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *entity == "" {
		return fmt.Errorf("cascade: -entity is required")
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	entry, err := a.fetch(ctx, *force)
	if err != nil {
		return err
	}

	prediction, err := a.client.Predict(ctx, cascadeRequest(a.cfg, *entity, *surprise, *horizon))
	if err != nil {
		return err
	}

	// Layout runs exactly once per session; reloads reuse the frozen
	// positions and only re-apply the overlay and viewport.
	l := layout.NewForceSim(a.cfg.Layout).Run(entry.Entities, entry.Links)

	if err := renderCascade(a, l, prediction, *out, *chain); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *out)
	printTimeline(prediction)

	if *watch {
		return watchCascade(a, l, *out, *entity, *surprise, *horizon, *chain)
	}
	return nil
}

// cascadeRequest merges the config file's cascade tuning over the command
// flags; zero config values leave the flag values in place.
func cascadeRequest(cfg config.Config, entity string, surprise float64, horizon int) client.PredictRequest {
	req := client.PredictRequest{
		EntityID:        entity,
		SurprisePercent: surprise,
		HorizonDays:     horizon,
	}
	if cfg.Cascade.SurprisePercent != 0 {
		req.SurprisePercent = cfg.Cascade.SurprisePercent
	}
	if cfg.Cascade.HorizonDays != 0 {
		req.HorizonDays = cfg.Cascade.HorizonDays
	}
	return req
}

// renderCascade overlays a prediction on the frozen layout and exports one
// frame. With chain set, only the single causal path to that effect is lit.
func renderCascade(a *app, l *layout.Layout, prediction model.Prediction, out, chain string) error {
	ctrl := highlight.NewController()
	effects := prediction.Effects()

	if chain != "" {
		var causePath []string
		for _, eff := range effects {
			if eff.Entity == chain {
				causePath = eff.CausePath
				break
			}
		}
		if causePath == nil {
			return fmt.Errorf("cascade: no effect for entity %q in this prediction", chain)
		}
		highlight.ApplyChain(ctrl, prediction.Trigger.Entity, causePath, l.Links())
	} else {
		highlight.ApplyCascade(ctrl, prediction.Trigger.Entity, effects, l.Links())
	}

	view := viewport.New(float64(a.cfg.Canvas.Width), float64(a.cfg.Canvas.Height))
	if min, max, ok := l.Bounds(); ok {
		view.Fit(min, max)
	}

	rc := &render.Context{
		Layout:    l,
		View:      view,
		Highlight: ctrl.Snapshot(),
		Portfolio: a.cfg.PortfolioSet(),
	}
	return export.Save(rc, out)
}

// watchCascade re-predicts on config changes. Edits to the cascade tuning
// tend to arrive in bursts while a user dials in surprise_percent, so the
// requests run through the debouncer: only the last edit in a quiescence
// window reaches the backend, and a superseded response is never rendered.
func watchCascade(a *app, l *layout.Layout, out, entity string, surprise float64, horizon int, chain string) error {
	deb := predict.NewDebouncer(a.client.Predict, func(p model.Prediction) {
		if err := renderCascade(a, l, p, out, chain); err != nil {
			log.Error("re-render failed", "err", err)
			return
		}
		fmt.Printf("re-rendered %s\n", out)
	})
	defer deb.Cancel()

	w, err := watcher.New(configFile(a))
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Printf("watching %s; edit to re-predict (ctrl-c to stop)\n", w.Path())
	for range w.Changed() {
		cfg, err := reloadConfig(a)
		if err != nil {
			log.Warn("config reload failed", "err", err)
			continue
		}
		a.cfg = cfg
		deb.Request(context.Background(), cascadeRequest(cfg, entity, surprise, horizon))
	}
	return nil
}

// printTimeline lists the predicted effects bucketed by period, ordered by
// the earliest day inside each bucket ("Day 1" before "Day 2-3").
func printTimeline(p model.Prediction) {
	fmt.Printf("%s %+.1f%% -> %d effects over %d days\n",
		p.Trigger.Entity, p.Trigger.MagnitudePercent, p.TotalEffects, p.HorizonDays)

	periods := make([]string, 0, len(p.Timeline))
	for period := range p.Timeline {
		periods = append(periods, period)
	}
	sort.Slice(periods, func(i, j int) bool {
		return minDay(p.Timeline[periods[i]]) < minDay(p.Timeline[periods[j]])
	})

	for _, period := range periods {
		fmt.Printf("  %s\n", period)
		for _, eff := range p.Timeline[period] {
			fmt.Printf("    %-8s %+6.2f%%  order %d  confidence %.2f\n",
				eff.Entity, eff.MagnitudePercent, eff.Order, eff.Confidence)
		}
	}
}

func minDay(effects []model.CascadeEffect) float64 {
	day := math.Inf(1)
	for _, eff := range effects {
		if eff.Day < day {
			day = eff.Day
		}
	}
	return day
}
