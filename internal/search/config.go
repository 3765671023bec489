package search

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the search-mode configuration document.
type Config struct {
	Modes  []ModeConfig `yaml:"search_modes"`
	Search struct {
		DefaultMode   string             `yaml:"default_mode"`
		HybridWeights map[string]float64 `yaml:"hybrid_weights"`
	} `yaml:"search"`
	Normalization struct {
		// Contractions maps a form to its acceptable alternative forms.
		// Empty means the built-in table.
		Contractions map[string][]string `yaml:"contractions"`
	} `yaml:"normalization"`
}

// ModeConfig configures one search mode.
type ModeConfig struct {
	Name    string  `yaml:"name"`
	Enabled bool    `yaml:"enabled"`
	Weight  float64 `yaml:"weight"`

	// SimilarityThreshold on the mode record wins over the nested options
	// value, which is advisory.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	Options ModeOptions `yaml:"options"`
}

// ModeOptions are the mode-specific knobs.
type ModeOptions struct {
	// Regex options.
	CaseInsensitive  *bool `yaml:"case_insensitive"` // default true
	DotAll           bool  `yaml:"dot_all"`
	MaxPatternLength int   `yaml:"max_pattern_length"` // default 1000

	// Semantic options.
	Model               string  `yaml:"model"`
	CacheSize           int     `yaml:"cache_size"`
	SimilarityMetric    string  `yaml:"similarity_metric"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// LoadConfig reads and parses a search config document.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read search config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses search config YAML.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse search config yaml: %w", err)
	}
	if cfg.Search.DefaultMode == "" {
		cfg.Search.DefaultMode = string(ModeExact)
	}
	return &cfg, nil
}

// DefaultConfig returns the configuration used when no document is supplied:
// all modes enabled with unit-ish weights and hybrid as the default.
func DefaultConfig() *Config {
	cfg := &Config{
		Modes: []ModeConfig{
			{Name: "exact", Enabled: true, Weight: 1.0},
			{Name: "regex", Enabled: true, Weight: 0.9},
			{
				Name: "semantic", Enabled: true, Weight: 1.2,
				SimilarityThreshold: 0.6,
				Options: ModeOptions{
					Model:            "text-embedding-3-small",
					CacheSize:        1000,
					SimilarityMetric: "cosine",
				},
			},
		},
	}
	cfg.Search.DefaultMode = string(ModeHybrid)
	cfg.Search.HybridWeights = map[string]float64{
		"exact": 0.4, "regex": 0.2, "semantic": 0.4,
	}
	return cfg
}

// Mode returns the record for a mode name, or nil when absent.
func (c *Config) Mode(name string) *ModeConfig {
	for i := range c.Modes {
		if c.Modes[i].Name == name {
			return &c.Modes[i]
		}
	}
	return nil
}

// Enabled reports whether a mode exists and is enabled.
func (c *Config) Enabled(name string) bool {
	m := c.Mode(name)
	return m != nil && m.Enabled
}

// Weight returns the configured weight for a mode, defaulting to 1.
func (c *Config) Weight(name string) float64 {
	if m := c.Mode(name); m != nil && m.Weight > 0 {
		return m.Weight
	}
	return 1
}

// Threshold returns the semantic similarity threshold. The mode-record value
// wins; the nested options value is consulted only when the record leaves it
// unset.
func (c *Config) Threshold(name string) float64 {
	m := c.Mode(name)
	if m == nil {
		return 0
	}
	if m.SimilarityThreshold > 0 {
		return m.SimilarityThreshold
	}
	return m.Options.SimilarityThreshold
}

// HybridWeight returns the blend weight of a sub-mode in hybrid scoring.
func (c *Config) HybridWeight(name string) float64 {
	if w, ok := c.Search.HybridWeights[name]; ok {
		return w
	}
	return 1
}

// Contractions returns the configured contraction table or the built-in one.
func (c *Config) Contractions() map[string][]string {
	if len(c.Normalization.Contractions) > 0 {
		return c.Normalization.Contractions
	}
	return defaultContractions
}
