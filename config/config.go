// Package config loads engine configuration from a YAML file or CLI flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr    = ":8080"
	defaultWalDir        = "./wal/prices"
	defaultDecayRate     = "0.5"
	defaultDecayInterval = time.Hour
	defaultTickInterval  = time.Hour
)

// Config holds the engine and server configuration.
type Config struct {
	ListenAddr       string
	TLSDomain        string
	WalDir           string
	DecayRatePerHour decimal.Decimal
	DecayInterval    time.Duration
	TickInterval     time.Duration
	Seed             []SeedProduct
}

// SeedProduct describes a product created at startup if the catalog is empty.
type SeedProduct struct {
	Name             string
	Description      string
	Category         string
	ImageURL         string
	BasePrice        decimal.Decimal
	MaxRetailPrice   decimal.Decimal
	IncrementPercent decimal.Decimal
}

type configTmp struct {
	ListenAddr       string           `yaml:"listen_addr,omitempty"`
	TLSDomain        string           `yaml:"tls_domain,omitempty"`
	WalDir           string           `yaml:"wal_dir,omitempty"`
	DecayRateStr     string           `yaml:"decay_rate_per_hour,omitempty"`
	DecayInterval    time.Duration    `yaml:"decay_interval,omitempty"`
	TickInterval     time.Duration    `yaml:"tick_interval,omitempty"`
	Seed             []seedProductTmp `yaml:"seed_products,omitempty"`
}

type seedProductTmp struct {
	Name             string `yaml:"name"`
	Description      string `yaml:"description,omitempty"`
	Category         string `yaml:"category,omitempty"`
	ImageURL         string `yaml:"image_url,omitempty"`
	BasePrice        string `yaml:"base_price"`
	MaxRetailPrice   string `yaml:"max_retail_price"`
	IncrementPercent string `yaml:"price_increment_percent,omitempty"`
}

// Get loads the configuration from --config when provided, otherwise from
// CLI flags with documented defaults.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	listenAddr := flag.String("listen", defaultListenAddr, "HTTP listen address")
	walDir := flag.String("waldir", defaultWalDir, "price journal directory")
	decayRate := flag.String("decayrate", defaultDecayRate, "absolute price decrement per idle hour")
	decayInterval := flag.Duration("decayinterval", defaultDecayInterval, "idle time before decay starts")
	tickInterval := flag.Duration("tickinterval", defaultTickInterval, "decay scheduler cadence")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	rate, err := decimal.NewFromString(*decayRate)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --decayrate provided, --decayrate=%s", *decayRate)
	}
	if rate.IsNegative() {
		return Config{}, fmt.Errorf("invalid --decayrate provided, must not be negative, --decayrate=%s", *decayRate)
	}

	return Config{
		ListenAddr:       *listenAddr,
		WalDir:           *walDir,
		DecayRatePerHour: rate,
		DecayInterval:    *decayInterval,
		TickInterval:     *tickInterval,
	}, nil
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:    tmp.ListenAddr,
		TLSDomain:     tmp.TLSDomain,
		WalDir:        tmp.WalDir,
		DecayInterval: tmp.DecayInterval,
		TickInterval:  tmp.TickInterval,
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.WalDir == "" {
		cfg.WalDir = defaultWalDir
	}
	if cfg.DecayInterval <= 0 {
		cfg.DecayInterval = defaultDecayInterval
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}

	if tmp.DecayRateStr == "" {
		cfg.DecayRatePerHour = decimal.RequireFromString(defaultDecayRate)
	} else {
		rate, err := decimal.NewFromString(tmp.DecayRateStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'decay_rate_per_hour' param in yaml config (must be a decimal), error: %w", err)
		}
		if rate.IsNegative() {
			return Config{}, fmt.Errorf("incorrect 'decay_rate_per_hour' param in yaml config, must not be negative")
		}
		cfg.DecayRatePerHour = rate
	}

	for _, s := range tmp.Seed {
		seed, err := parseSeed(s)
		if err != nil {
			return Config{}, err
		}
		cfg.Seed = append(cfg.Seed, seed)
	}

	return cfg, nil
}

func parseSeed(s seedProductTmp) (SeedProduct, error) {
	base, err := decimal.NewFromString(s.BasePrice)
	if err != nil {
		return SeedProduct{}, fmt.Errorf("incorrect 'base_price' for seed product %q: %w", s.Name, err)
	}
	maxRetail, err := decimal.NewFromString(s.MaxRetailPrice)
	if err != nil {
		return SeedProduct{}, fmt.Errorf("incorrect 'max_retail_price' for seed product %q: %w", s.Name, err)
	}

	increment := decimal.NewFromInt(5)
	if s.IncrementPercent != "" {
		increment, err = decimal.NewFromString(s.IncrementPercent)
		if err != nil {
			return SeedProduct{}, fmt.Errorf("incorrect 'price_increment_percent' for seed product %q: %w", s.Name, err)
		}
	}

	return SeedProduct{
		Name:             s.Name,
		Description:      s.Description,
		Category:         s.Category,
		ImageURL:         s.ImageURL,
		BasePrice:        base,
		MaxRetailPrice:   maxRetail,
		IncrementPercent: increment,
	}, nil
}
