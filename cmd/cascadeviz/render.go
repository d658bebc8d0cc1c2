package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/marketgraph/cascadeviz/pkg/export"
	"github.com/marketgraph/cascadeviz/pkg/highlight"
	"github.com/marketgraph/cascadeviz/pkg/layout"
	"github.com/marketgraph/cascadeviz/pkg/metrics"
	"github.com/marketgraph/cascadeviz/pkg/render"
	"github.com/marketgraph/cascadeviz/pkg/viewport"
	"github.com/marketgraph/cascadeviz/pkg/watcher"
)

func cmdRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := commonFlags(fs)
	out := fs.String("o", "graph.svg", "Output path (.png or .svg)")
	force := fs.Bool("force", false, "Bypass the cache and refetch")
	selected := fs.String("select", "", "Entity id to mark selected")
	connections := fs.String("connections", "", "Entity id to highlight with its neighborhood")
	zoom := fs.Float64("zoom", 0, "Zoom factor (0 = fit to bounds)")
	watch := fs.Bool("watch", false, "Re-render when the config file changes")
	showMetrics := fs.Bool("metrics", false, "Print timing metrics afterwards")
	if err := fs.Parse(args); err != nil {
		return err
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

	// Layout runs exactly once per session; the frozen positions are reused
	// across config reloads so nodes never move mid-session.
	l := layout.NewForceSim(a.cfg.Layout).Run(entry.Entities, entry.Links)

	if err := renderFrame(a, l, *out, *selected, *connections, *zoom); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d nodes, %d links)\n", *out, len(entry.Entities), len(entry.Links))

	if *showMetrics {
		printMetrics()
	}
	if *watch {
		return watchAndRerender(a, l, *out, *selected, *connections, *zoom)
	}
	return nil
}

// renderFrame runs highlight + render + export for one frame over an
// already-frozen layout. Only viewport and renderer parameters come from
// the current config; layout params are read once at startup.
func renderFrame(a *app, l *layout.Layout, out, selected, connections string, zoom float64) error {
	view := viewport.New(float64(a.cfg.Canvas.Width), float64(a.cfg.Canvas.Height))
	ctrl := highlight.NewController()

	if selected != "" {
		if n, ok := l.Node(selected); ok {
			entity := n.Entity
			ctrl.SelectNode(&entity)
		} else {
			log.Warn("selected entity not in dataset", "id", selected)
		}
	}
	if connections != "" {
		if n, ok := l.Node(connections); ok {
			ids := ctrl.ShowConnectivity(n.Entity, l.Links())
			fitToNodes(view, l, ids)
		} else {
			log.Warn("connections entity not in dataset", "id", connections)
		}
	} else if min, max, ok := l.Bounds(); ok {
		view.Fit(min, max)
	}
	if zoom > 0 {
		view.SetZoom(zoom)
	}

	rc := &render.Context{
		Layout:    l,
		View:      view,
		Highlight: ctrl.Snapshot(),
		Portfolio: a.cfg.PortfolioSet(),
	}
	return export.Save(rc, out)
}

func fitToNodes(view *viewport.Viewport, l *layout.Layout, ids []string) {
	points := make([]r2.Vec, 0, len(ids))
	for _, id := range ids {
		if n, ok := l.Node(id); ok {
			points = append(points, n.Pos)
		}
	}
	view.FitPoints(points)
}

func watchAndRerender(a *app, l *layout.Layout, out, selected, connections string, zoom float64) error {
	w, err := watcher.New(configFile(a))
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Printf("watching %s; edit to re-render (ctrl-c to stop)\n", w.Path())
	for range w.Changed() {
		cfg, err := reloadConfig(a)
		if err != nil {
			log.Warn("config reload failed", "err", err)
			continue
		}
		a.cfg = cfg
		if err := renderFrame(a, l, out, selected, connections, zoom); err != nil {
			log.Error("re-render failed", "err", err)
			continue
		}
		fmt.Printf("re-rendered %s\n", out)
	}
	return nil
}

func printMetrics() {
	stats := metrics.AllTimingStats()
	if len(stats) == 0 {
		return
	}
	var b strings.Builder
	for _, s := range stats {
		fmt.Fprintf(&b, "%-16s count=%-4d avg=%.2fms max=%.2fms\n", s.Name, s.Count, s.AvgMs, s.MaxMs)
	}
	hits, misses := metrics.GraphCache.Hits(), metrics.GraphCache.Misses()
	fmt.Fprintf(&b, "%-16s hits=%d misses=%d\n", "graph_cache", hits, misses)
	fmt.Print(b.String())
}
