package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codeGROOVE-dev/dossier/pkg/config"
	"github.com/codeGROOVE-dev/dossier/pkg/domain"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich/apollo"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich/gemini"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich/hunter"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich/pdl"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich/website"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich/whitepages"
	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
	"github.com/codeGROOVE-dev/dossier/pkg/match"
	"github.com/codeGROOVE-dev/dossier/pkg/metrics"
	"github.com/codeGROOVE-dev/dossier/pkg/phone"
	"github.com/codeGROOVE-dev/dossier/pkg/phone/numverify"
	"github.com/codeGROOVE-dev/dossier/pkg/resolver"
	"github.com/codeGROOVE-dev/dossier/pkg/search"
	"github.com/codeGROOVE-dev/dossier/pkg/search/brave"
	"github.com/codeGROOVE-dev/dossier/pkg/search/serpapi"
)

// buildResolver wires every configured provider. Providers without an API
// key are left out with a warning rather than failing the run.
func buildResolver(ctx context.Context, cfg *config.Config, cache httpcache.Cacher, m *metrics.Metrics, logger *slog.Logger) (*resolver.Resolver, error) {
	p := cfg.Providers
	missing := func(name string) {
		logger.Warn("provider disabled: no API key", "provider", name, "env", strings.ToUpper(name)+"_API_KEY")
	}

	var sp search.Provider
	switch cfg.SearchProvider {
	case "serpapi":
		if key := p.SerpAPI.Key("serpapi"); key == "" {
			missing("serpapi")
		} else {
			opts := []serpapi.Option{serpapi.WithHTTPCache(cache), serpapi.WithLogger(logger)}
			if p.SerpAPI.Endpoint != "" {
				opts = append(opts, serpapi.WithEndpoint(p.SerpAPI.Endpoint))
			}
			sp = serpapi.New(key, opts...)
		}
	default:
		if key := p.Brave.Key("brave"); key == "" {
			missing("brave")
		} else {
			opts := []brave.Option{brave.WithHTTPCache(cache), brave.WithLogger(logger)}
			if p.Brave.Endpoint != "" {
				opts = append(opts, brave.WithEndpoint(p.Brave.Endpoint))
			}
			sp = brave.New(key, opts...)
		}
	}

	ropts := []resolver.Option{
		resolver.WithLogger(logger),
		resolver.WithMetrics(m),
		resolver.WithRegion(cfg.Region),
		resolver.WithIncrement(cfg.ConsolidationIncrement),
		resolver.WithBatchDelay(cfg.BatchDelay),
		resolver.WithEnrichTimeout(cfg.Timeouts.Enrich),
	}

	dopts := []domain.Option{
		domain.WithLogger(logger),
		domain.WithDenylist(cfg.Domain.Denylist),
		domain.WithSuffixes(cfg.Domain.Suffixes),
		domain.WithTimeout(cfg.Timeouts.CompanyLookup),
	}
	if sp != nil {
		scorer, err := match.New(sp, cfg.MatchThreshold,
			match.WithLogger(logger),
			match.WithTimeout(cfg.Timeouts.Search),
			match.WithCountry(cfg.SearchCountry))
		if err != nil {
			return nil, err
		}
		ropts = append(ropts, resolver.WithScorer(scorer))
		dopts = append(dopts, domain.WithSearch(sp))
	}

	var regs []enrich.Registration
	if p.Apollo.Enabled {
		if key := p.Apollo.Key(apollo.Name); key == "" {
			missing(apollo.Name)
		} else {
			opts := []apollo.Option{apollo.WithHTTPCache(cache), apollo.WithLogger(logger)}
			if p.Apollo.Endpoint != "" {
				opts = append(opts, apollo.WithBaseURL(p.Apollo.Endpoint))
			}
			client := apollo.New(key, opts...)
			regs = append(regs, enrich.Registration{Provider: client})
			dopts = append(dopts, domain.WithLookup(client))
		}
	}
	if p.Hunter.Enabled {
		if key := p.Hunter.Key(hunter.Name); key == "" {
			missing(hunter.Name)
		} else {
			opts := []hunter.Option{hunter.WithHTTPCache(cache), hunter.WithLogger(logger)}
			if p.Hunter.Endpoint != "" {
				opts = append(opts, hunter.WithEndpoint(p.Hunter.Endpoint))
			}
			regs = append(regs, enrich.Registration{Provider: hunter.New(key, opts...)})
		}
	}
	if p.PDL.Enabled {
		if key := p.PDL.Key(pdl.Name); key == "" {
			missing(pdl.Name)
		} else {
			opts := []pdl.Option{pdl.WithHTTPCache(cache), pdl.WithLogger(logger)}
			if p.PDL.Endpoint != "" {
				opts = append(opts, pdl.WithEndpoint(p.PDL.Endpoint))
			}
			regs = append(regs, enrich.Registration{Provider: pdl.New(key, opts...)})
		}
	}
	if p.Gemini.Enabled {
		key := p.Gemini.APIKey
		if key == "" {
			key = config.LoadAPIKey(gemini.Name)
		}
		if key == "" {
			missing(gemini.Name)
		} else {
			g, err := gemini.New(ctx, gemini.Config{APIKey: key, Model: p.Gemini.Model, BaseURL: p.Gemini.BaseURL}, gemini.WithLogger(logger))
			if err != nil {
				return nil, err
			}
			regs = append(regs, enrich.Registration{Provider: g})
		}
	}
	if p.Whitepages.Enabled {
		key := p.Whitepages.Key(whitepages.DefaultName)
		switch {
		case p.Whitepages.Endpoint == "":
			logger.Warn("provider disabled: no endpoint", "provider", whitepages.DefaultName)
		case key == "":
			missing(whitepages.DefaultName)
		default:
			wopts := []whitepages.Option{whitepages.WithHTTPCache(cache), whitepages.WithLogger(logger)}
			if p.Whitepages.Name != "" {
				wopts = append(wopts, whitepages.WithName(p.Whitepages.Name))
			}
			client := whitepages.New(p.Whitepages.Endpoint, key, wopts...)
			regs = append(regs, enrich.Registration{Provider: client, Regions: cfg.RegionKeywords})
		}
	}
	if p.Website.Enabled {
		regs = append(regs, enrich.Registration{Provider: website.New(website.WithHTTPCache(cache), website.WithLogger(logger))})
	}
	ropts = append(ropts, resolver.WithProviders(regs...))
	ropts = append(ropts, resolver.WithDomainResolver(domain.New(dopts...)))

	var pp phone.Provider
	if p.NumVerify.Enabled {
		if key := p.NumVerify.Key("numverify"); key == "" {
			missing("numverify")
		} else {
			opts := []numverify.Option{
				numverify.WithHTTPCache(cache),
				numverify.WithLogger(logger),
				numverify.WithCountry(strings.ToUpper(cfg.SearchCountry)),
			}
			if p.NumVerify.Endpoint != "" {
				opts = append(opts, numverify.WithEndpoint(p.NumVerify.Endpoint))
			}
			pp = numverify.New(key, opts...)
		}
	}
	validator := phone.New(pp, phone.WithLogger(logger), phone.WithTimeout(cfg.Timeouts.Validation))
	ropts = append(ropts, resolver.WithValidator(validator, cfg.ValidateTop))

	logger.Debug("resolver configured", "search", cfg.SearchProvider, "search_enabled", sp != nil, "providers", len(regs))
	return resolver.New(ropts...), nil
}
