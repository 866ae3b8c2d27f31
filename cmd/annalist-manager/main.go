// Package main implements the annalist-manager command line tool: site
// initialisation, collection management, and JSON-LD context regeneration
// for an Annalist data site.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/gklyne/annalist-sub001/collection"
	"github.com/gklyne/annalist-sub001/config"
	"github.com/gklyne/annalist-sub001/contextgen"
	"github.com/gklyne/annalist-sub001/metric"
	"github.com/gklyne/annalist-sub001/registry"
	"github.com/gklyne/annalist-sub001/store"
)

const appName = "annalist-manager"

func main() {
	if err := run(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] <command> [args]

Commands:
  initsite                  create site data if not present
  collections               list collections
  createcoll <id> [label]   create a collection
  removecoll <id>           remove a collection
  regenerate [<id>]         regenerate JSON-LD context (all collections
                            when no id is given)

Flags:
`, appName)
	flag.PrintDefaults()
}

func run() error {
	configPath := flag.String("config", "", "site configuration file (JSON or YAML)")
	rootDir := flag.String("root", "", "site data directory (overrides config)")
	baseURL := flag.String("url", "http://localhost:8000/annalist/", "site base URL (overrides config)")
	flag.Usage = usage
	flag.Parse()

	cfg, err := loadConfig(*configPath, *rootDir, *baseURL)
	if err != nil {
		return err
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := metric.NewMetrics()
	st, err := store.New(cfg.Site.RootDir,
		store.WithBaseURL(cfg.Site.BaseURL),
		store.WithLogger(logger),
		store.WithMetrics(metrics))
	if err != nil {
		return err
	}
	site := collection.NewSite(st,
		collection.WithLogger(logger),
		collection.WithMetrics(metrics))

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return fmt.Errorf("no command given")
	}

	switch args[0] {
	case "initsite":
		return initSite(ctx, site)
	case "collections":
		return listCollections(ctx, site)
	case "createcoll":
		if len(args) < 2 {
			return fmt.Errorf("createcoll: collection id required")
		}
		label := ""
		if len(args) > 2 {
			label = args[2]
		}
		return createCollection(ctx, site, cfg, args[1], label)
	case "removecoll":
		if len(args) < 2 {
			return fmt.Errorf("removecoll: collection id required")
		}
		return removeCollection(ctx, site, args[1])
	case "regenerate":
		collID := ""
		if len(args) > 1 {
			collID = args[1]
		}
		return regenerate(ctx, site, cfg, metrics, collID)
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// loadConfig reads the configuration file when given, then applies any
// command line overrides.
func loadConfig(path, rootDir, baseURL string) (*config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if rootDir != "" {
		cfg.Site.RootDir = rootDir
	}
	if baseURL != "" && cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = baseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initSite(ctx context.Context, site *collection.Site) error {
	if err := site.EnsureSiteData(ctx); err != nil {
		return err
	}
	slog.Info("site data initialised", "root", site.Store().Root())
	return nil
}

func listCollections(ctx context.Context, site *collection.Site) error {
	ids, err := site.CollectionIDs(ctx)
	if err != nil {
		return err
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func createCollection(ctx context.Context, site *collection.Site, cfg *config.Config, collID, label string) error {
	if err := site.EnsureSiteData(ctx); err != nil {
		return err
	}
	values := map[string]any{}
	if label != "" {
		values["rdfs:label"] = label
	}
	coll, err := site.Create(ctx, collID, values)
	if err != nil {
		return err
	}
	gen, err := newGenerator(site, cfg, nil)
	if err != nil {
		return err
	}
	diags, err := gen.Regenerate(ctx, coll)
	if err != nil {
		return err
	}
	reportDiagnostics(collID, diags)
	slog.Info("collection created", "collection", collID)
	return nil
}

func removeCollection(ctx context.Context, site *collection.Site, collID string) error {
	if err := site.Remove(ctx, collID); err != nil {
		return err
	}
	slog.Info("collection removed", "collection", collID)
	return nil
}

func regenerate(ctx context.Context, site *collection.Site, cfg *config.Config, metrics *metric.Metrics, collID string) error {
	gen, err := newGenerator(site, cfg, metrics)
	if err != nil {
		return err
	}
	if collID != "" {
		coll, err := site.Load(ctx, collID)
		if err != nil {
			return err
		}
		diags, err := gen.Regenerate(ctx, coll)
		if err != nil {
			return err
		}
		reportDiagnostics(collID, diags)
		return nil
	}
	results, err := gen.RegenerateAll(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		reportDiagnostics(id, results[id])
	}
	return nil
}

func newGenerator(site *collection.Site, cfg *config.Config, metrics *metric.Metrics) (*contextgen.Generator, error) {
	regs, err := registry.NewManager(registry.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	opts := []contextgen.Option{contextgen.WithMetrics(metrics)}
	if cfg.Site.ContextScanLimit > 0 {
		opts = append(opts, contextgen.WithScanLimit(cfg.Site.ContextScanLimit))
	}
	return contextgen.New(site, regs, opts...), nil
}

func reportDiagnostics(collID string, diags []string) {
	for _, d := range diags {
		slog.Warn("context diagnostic", "collection", collID, "detail", d)
	}
}
