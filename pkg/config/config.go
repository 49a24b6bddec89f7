// Package config loads dossier settings from YAML with environment and
// home-directory overrides for API keys.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/consolidate"
	"github.com/codeGROOVE-dev/dossier/pkg/domain"
	"github.com/codeGROOVE-dev/dossier/pkg/identity"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config is the full set of tunables.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Config struct {
	Region                 string        `yaml:"region"`
	MatchThreshold         int           `yaml:"match_threshold"`
	ConsolidationIncrement float64       `yaml:"consolidation_increment"`
	ValidateTop            int           `yaml:"validate_top"`
	BatchDelay             time.Duration `yaml:"batch_delay"`
	ProviderDelay          time.Duration `yaml:"provider_delay"`
	CacheTTL               time.Duration `yaml:"cache_ttl"`
	SearchProvider         string        `yaml:"search_provider"`
	SearchCountry          string        `yaml:"search_country"`

	Timeouts       Timeouts  `yaml:"timeouts"`
	Domain         Domain    `yaml:"domain"`
	RegionKeywords []string  `yaml:"region_keywords"`
	Providers      Providers `yaml:"providers"`
}

// Timeouts bounds each external call.
type Timeouts struct {
	Search        time.Duration `yaml:"search"`
	Enrich        time.Duration `yaml:"enrich"`
	CompanyLookup time.Duration `yaml:"company_lookup"`
	Validation    time.Duration `yaml:"validation"`
}

// Domain configures domain discovery.
type Domain struct {
	Denylist []string `yaml:"denylist"`
	Suffixes []string `yaml:"suffixes"`
}

// Provider configures one HTTP provider. An empty APIKey falls back to
// LoadAPIKey. Name renames the source in results; only the regional
// directory honors it.
type Provider struct {
	Enabled  bool   `yaml:"enabled"`
	Name     string `yaml:"name"`
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

// Providers lists every adapter.
type Providers struct {
	Brave      Provider `yaml:"brave"`
	SerpAPI    Provider `yaml:"serpapi"`
	Apollo     Provider `yaml:"apollo"`
	Hunter     Provider `yaml:"hunter"`
	PDL        Provider `yaml:"pdl"`
	Whitepages Provider `yaml:"whitepages"`
	NumVerify  Provider `yaml:"numverify"`
	Website    Provider `yaml:"website"`
	Gemini     Gemini   `yaml:"gemini"`
}

// Gemini configures the model-backed enricher.
type Gemini struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// DefaultRegionKeywords gate the regional directory to Australian locations.
// Two-letter state codes are left out: they match inside unrelated words.
var DefaultRegionKeywords = []string{
	"australia", "nsw", "new south wales", "victoria", "qld", "queensland", "tasmania",
	"sydney", "melbourne", "brisbane", "perth", "adelaide", "hobart",
	"canberra", "darwin", "gold coast", "wollongong", "geelong",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Region:                 identity.DefaultRegion,
		MatchThreshold:         60,
		ConsolidationIncrement: consolidate.DefaultIncrement,
		ValidateTop:            3,
		BatchDelay:             2 * time.Second,
		ProviderDelay:          250 * time.Millisecond,
		CacheTTL:               7 * 24 * time.Hour,
		SearchProvider:         "brave",
		SearchCountry:          "au",
		Timeouts: Timeouts{
			Search:        10 * time.Second,
			Enrich:        20 * time.Second,
			CompanyLookup: 10 * time.Second,
			Validation:    5 * time.Second,
		},
		Domain: Domain{
			Denylist: slices.Clone(domain.DefaultDenylist),
			Suffixes: slices.Clone(domain.DefaultSuffixes),
		},
		RegionKeywords: slices.Clone(DefaultRegionKeywords),
		Providers: Providers{
			Brave:      Provider{Enabled: true},
			SerpAPI:    Provider{Enabled: true},
			Apollo:     Provider{Enabled: true},
			Hunter:     Provider{Enabled: true},
			PDL:        Provider{Enabled: true},
			Whitepages: Provider{Enabled: false},
			NumVerify:  Provider{Enabled: true},
			Website:    Provider{Enabled: true},
			Gemini:     Gemini{Enabled: true},
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.MatchThreshold <= 0 || c.MatchThreshold > 100 {
		return fmt.Errorf("%w: match_threshold %d not in (0, 100]", ErrInvalid, c.MatchThreshold)
	}
	if c.ConsolidationIncrement <= 0 || c.ConsolidationIncrement > 1 {
		return fmt.Errorf("%w: consolidation_increment %v not in (0, 1]", ErrInvalid, c.ConsolidationIncrement)
	}
	if c.ValidateTop < 0 {
		return fmt.Errorf("%w: validate_top must not be negative", ErrInvalid)
	}
	if c.BatchDelay < 0 || c.ProviderDelay < 0 {
		return fmt.Errorf("%w: batch_delay and provider_delay must not be negative", ErrInvalid)
	}
	switch c.SearchProvider {
	case "brave", "serpapi":
	default:
		return fmt.Errorf("%w: search_provider %q (want brave or serpapi)", ErrInvalid, c.SearchProvider)
	}
	return nil
}

// Key returns the configured API key or falls back to LoadAPIKey(name).
func (p Provider) Key(name string) string {
	if p.APIKey != "" {
		return p.APIKey
	}
	return LoadAPIKey(name)
}

// LoadAPIKey finds the API key for a provider.
// Order: NAME_API_KEY environment variable, then the ~/.name file.
func LoadAPIKey(name string) string {
	env := strings.ToUpper(name) + "_API_KEY"
	if key := os.Getenv(env); key != "" {
		return key
	}
	if home, err := os.UserHomeDir(); err == nil {
		if data, err := os.ReadFile(filepath.Join(home, "."+strings.ToLower(name))); err == nil {
			if key := strings.TrimSpace(string(data)); key != "" {
				return key
			}
		}
	}
	return ""
}
