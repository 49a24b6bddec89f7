// Command dossier resolves a person's professional profile, company domain
// and contact details from name, company and location.
//
// Usage:
//
//	dossier resolve --first Steven --last Lowy --company LFG --location Sydney
//	dossier batch people.csv
//
// API keys are read from the config file, NAME_API_KEY environment
// variables, or ~/.name files (e.g. ~/.brave, ~/.apollo).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/config"
	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
	"github.com/codeGROOVE-dev/dossier/pkg/identity"
	"github.com/codeGROOVE-dev/dossier/pkg/metrics"
	"github.com/codeGROOVE-dev/dossier/pkg/resolver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// globals holds persistent flag values.
type globals struct {
	configPath  string
	metricsAddr string
	cacheTTL    time.Duration
	threshold   int
	debug       bool
	noCache     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "dossier",
		Short:         "Resolve professional profiles and contact details",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to YAML config (defaults are used when empty)")
	pf.BoolVar(&g.debug, "debug", false, "enable debug logging")
	pf.BoolVar(&g.noCache, "no-cache", false, "disable HTTP response caching")
	pf.DurationVar(&g.cacheTTL, "cache-ttl", 0, "override cache time-to-live (e.g. 24h)")
	pf.IntVar(&g.threshold, "threshold", 0, "override profile match threshold (1-100)")
	pf.StringVar(&g.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(newResolveCmd(g), newBatchCmd(g))
	return root
}

func newResolveCmd(g *globals) *cobra.Command {
	var q identity.Query
	var name string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a single person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name != "" && q.FirstName == "" && q.LastName == "" {
				parsed := identity.Parse(name)
				q.FirstName, q.LastName = parsed.FirstName, parsed.LastName
			}
			if err := q.Validate(); err != nil {
				return err
			}
			return g.run(cmd.Context(), func(ctx context.Context, r *resolver.Resolver) (any, error) {
				res, err := r.Resolve(ctx, q)
				if err != nil {
					return nil, err
				}
				return res, nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", `full name, e.g. "Steven Lowy" (alternative to --first/--last)`)
	f.StringVar(&q.FirstName, "first", "", "first name")
	f.StringVar(&q.LastName, "last", "", "last name")
	f.StringVar(&q.Company, "company", "", "company name")
	f.StringVar(&q.Title, "title", "", "job title")
	f.StringVar(&q.Location, "location", "", "location (defaults to the configured region)")
	f.StringVar(&q.Domain, "domain", "", "company domain, skips domain discovery")
	f.StringVar(&q.ProfileURL, "profile", "", "known LinkedIn profile URL, skips profile search")
	return cmd
}

func newBatchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file.csv|->",
		Short: "Resolve every row of a CSV file",
		Long: `Resolve every row of a CSV file with a header row.

Recognized columns: first_name, last_name, name, company, title, location,
domain, profile_url. Rows are processed one at a time, spaced by the
configured batch delay. Invalid rows are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close() //nolint:errcheck // read-only
				in = f
			}
			queries, err := readQueries(in)
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				return errors.New("no rows to resolve")
			}
			return g.run(cmd.Context(), func(ctx context.Context, r *resolver.Resolver) (any, error) {
				return r.ResolveBatch(ctx, queries)
			})
		},
	}
}

// run sets up logging, caching, metrics and the resolver, then prints the
// value returned by fn as JSON. Partial batch output is printed even when
// fn fails.
func (g *globals) run(ctx context.Context, fn func(context.Context, *resolver.Resolver) (any, error)) error {
	logLevel := slog.LevelInfo
	if g.debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if g.threshold != 0 {
		cfg.MatchThreshold = g.threshold
	}
	if g.cacheTTL > 0 {
		cfg.CacheTTL = g.cacheTTL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	httpcache.SetMinDelay(cfg.ProviderDelay)

	var cache httpcache.Cacher
	if g.noCache {
		cache = httpcache.NewNull()
	} else {
		c, err := httpcache.New(cfg.CacheTTL)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
			cache = httpcache.NewNull()
		} else {
			defer func() {
				if err := c.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}()
			logger.Debug("HTTP cache initialized", "ttl", cfg.CacheTTL.String())
			cache = c
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if g.metricsAddr != "" {
		srv := serveMetrics(g.metricsAddr, reg, logger)
		defer srv.Close() //nolint:errcheck // shutting down
	}

	r, err := buildResolver(ctx, cfg, cache, m, logger)
	if err != nil {
		return err
	}

	out, runErr := fn(ctx, r)
	if out != nil {
		if err := outputJSON(out); err != nil {
			return fmt.Errorf("output: %w", err)
		}
	}
	stats := httpcache.CacheStats()
	logger.Debug("cache stats", "hits", stats.Hits, "misses", stats.Misses)
	return runErr
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
