// Command cascadeviz renders the entity-relationship graph of financial
// entities served by a cascade-prediction backend: fetch the dataset, run
// the force layout, and export PNG/SVG frames, optionally with a cascade or
// connectivity overlay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/marketgraph/cascadeviz/internal/datasource"
	"github.com/marketgraph/cascadeviz/pkg/cache"
	"github.com/marketgraph/cascadeviz/pkg/client"
	"github.com/marketgraph/cascadeviz/pkg/config"
	"github.com/marketgraph/cascadeviz/pkg/version"
)

func main() {
	if os.Getenv("CVZ_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "cascadeviz: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return nil
	}

	switch args[0] {
	case "render":
		return cmdRender(args[1:])
	case "cascade":
		return cmdCascade(args[1:])
	case "explain":
		return cmdExplain(args[1:])
	case "info":
		return cmdInfo(args[1:])
	case "stats":
		return cmdStats(args[1:])
	case "version", "-version", "--version":
		fmt.Printf("cascadeviz %s\n", version.Version)
		return nil
	case "help", "-help", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Println(`Usage: cascadeviz <command> [options]

Commands:
  render    Fetch the graph, lay it out, and export a frame
  cascade   Render with a cascade overlay for a trigger event
  explain   Print the causal chains behind a cascade prediction
  info      Show graph cache state
  stats     Show dataset statistics
  version   Show version

Run 'cascadeviz <command> -h' for command options.`)
}

// app bundles the shared wiring every command needs.
type app struct {
	cfg        config.Config
	configPath string
	cache      *cache.Cache
	client     *client.Client
	store      *datasource.SQLiteStore
}

// configFile is the path hot-reload watches.
func configFile(a *app) string {
	return a.configPath
}

func reloadConfig(a *app) (config.Config, error) {
	return config.LoadFrom(a.configPath)
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// commonFlags registers the flags shared by all commands.
func commonFlags(fs *flag.FlagSet) (configPath *string) {
	return fs.String("config", "", "Config file path (default: XDG config dir)")
}

func newApp(configPath string) (*app, error) {
	if configPath == "" {
		configPath = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, err
	}

	opts := []cache.Option{
		cache.WithTTL(time.Duration(cfg.Cache.TTLMinutes) * time.Minute),
	}
	a := &app{cfg: cfg, configPath: configPath}
	if cfg.Cache.SQLitePath != "" {
		store, err := datasource.OpenSQLiteStore(cfg.Cache.SQLitePath)
		if err != nil {
			log.Warn("persisted cache unavailable", "path", cfg.Cache.SQLitePath, "err", err)
		} else {
			a.store = store
			opts = append(opts, cache.WithStore(store))
		}
	}
	a.cache = cache.New(opts...)
	a.client = client.New(cfg.API.BaseURL,
		client.WithCache(a.cache),
		client.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		}))
	return a, nil
}

// fetch loads the dataset, reporting retryability on failure.
func (a *app) fetch(ctx context.Context, force bool) (cache.Entry, error) {
	entry, err := a.client.FetchGraph(ctx, force)
	if err != nil {
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) && statusErr.Retryable() {
			return cache.Entry{}, fmt.Errorf("%w (transient; retry with the same command)", err)
		}
		return cache.Entry{}, err
	}
	return entry, nil
}
