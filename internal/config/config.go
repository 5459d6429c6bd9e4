// Package config provides reading and validation of aslcat configuration.
// A single YAML file carries the database location, the HTTP listen address,
// the ASLRB base URL used by the rule linker, and the search tuning tables
// (aliases, synonym groups, per-field weights, author alias groups).
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidValue is returned when a config value is invalid.
	ErrInvalidValue = errors.New("invalid config value")
)

// Defaults applied when not configured.
const (
	DefaultDB     = "aslcat.db"
	DefaultListen = ":5000"
	DefaultEnv    = "local"
)

// Search holds the search tuning tables. They are kept in their raw YAML
// shapes here; the search package folds, validates and warns about them at
// load time so bad entries degrade to startup warnings rather than failures.
type Search struct {
	// Aliases are one-way rules: lookup key -> equivalent phrases.
	// The key itself need not be among the phrases.
	Aliases map[string][]string `yaml:"aliases,omitempty"`

	// Groups are symmetric: any member expands to the whole group.
	Groups [][]string `yaml:"groups,omitempty"`

	// Weights are per-field relevance weights (default 1.0). Values are
	// loosely typed so a bad entry can be reported instead of aborting the
	// whole config load.
	Weights map[string]any `yaml:"weights,omitempty"`

	// AuthorAliases are groups of author names treated as the same person
	// when searching "articles by this author".
	AuthorAliases [][]string `yaml:"author_aliases,omitempty"`
}

// Config contains configuration for aslcat.
type Config struct {
	DB           string `yaml:"db,omitempty"`
	Listen       string `yaml:"listen,omitempty"`
	Env          string `yaml:"env,omitempty"` // logger environment: local, dev, prod
	ASLRBBaseURL string `yaml:"aslrb_base_url,omitempty"`
	Search       Search `yaml:"search,omitempty"`

	fingerprint string
}

// Default returns a config populated with defaults, used when no config file
// is given.
func Default() *Config {
	return &Config{
		DB:     DefaultDB,
		Listen: DefaultListen,
		Env:    DefaultEnv,
	}
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fingerprint = fingerprint(data)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required values are present.
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("%w: db must not be empty", ErrInvalidValue)
	}
	if c.Listen == "" {
		return fmt.Errorf("%w: listen must not be empty", ErrInvalidValue)
	}
	switch c.Env {
	case "local", "dev", "docker", "prod":
	default:
		return fmt.Errorf("%w: unknown env %q", ErrInvalidValue, c.Env)
	}
	return nil
}

// Fingerprint returns a short stable identifier for the loaded config file,
// so operators can tell from the startup messages which revision of the
// alias tables is live. Empty when the config came from defaults.
func (c *Config) Fingerprint() string {
	return c.fingerprint
}

func fingerprint(data []byte) string {
	h, err := blake2b.New(8, nil) // 64-bit = 16 hex chars
	if err != nil {
		// Only possible with an oversized key; we pass nil.
		panic("blake2b.New failed: " + err.Error())
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
