package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for scalpel.
type Config struct {
	// Traversal and extraction budgets
	Budgets BudgetConfig `koanf:"budgets"`

	// Taint analysis settings
	Taint TaintConfig `koanf:"taint"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude"`

	// Output settings
	Output OutputConfig `koanf:"output"`
}

// BudgetConfig bounds every traversal so large repositories degrade to
// partial results instead of hanging.
type BudgetConfig struct {
	MaxDepth    int           `koanf:"max_depth"`
	MaxModules  int           `koanf:"max_modules"`
	MaxNodes    int           `koanf:"max_nodes"`
	DecayFactor float64       `koanf:"decay_factor"`
	Timeout     time.Duration `koanf:"timeout"`
}

// TaintConfig controls source and sink signature loading.
type TaintConfig struct {
	SignaturePacks []string `koanf:"signature_packs"`
	EntryPoints    []string `koanf:"entry_points"`
	MaxDepth       int      `koanf:"max_depth"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns"`
	Extensions []string `koanf:"extensions"`
	Dirs       []string `koanf:"dirs"`
	Gitignore  bool     `koanf:"gitignore"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json, toon
	Color   bool   `koanf:"color"`
	Quiet   bool   `koanf:"quiet"`
	Verbose bool   `koanf:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Budgets: BudgetConfig{
			MaxDepth:    3,
			MaxModules:  500,
			MaxNodes:    200,
			DecayFactor: 0.8,
			Timeout:     30 * time.Second,
		},
		Taint: TaintConfig{
			MaxDepth: 4,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*_test.go",
				"*.test.ts",
				"*.test.js",
				"*.spec.ts",
				"test_*.py",
				"*.min.js",
			},
			Extensions: []string{
				".lock",
				".sum",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				".scalpel",
				"dist",
				"build",
				"__pycache__",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Quiet:   false,
			Verbose: false,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"scalpel.toml",
		"scalpel.yaml",
		"scalpel.yml",
		"scalpel.json",
		".scalpel.toml",
		".scalpel.yaml",
		".scalpel.yml",
		".scalpel.json",
	}

	searchDirs := []string{".", ".scalpel"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := Load(path)
				if err == nil {
					return cfg
				}
			}
		}
	}

	return DefaultConfig()
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	ext := filepath.Ext(path)
	for _, excludeExt := range c.Exclude.Extensions {
		if ext == excludeExt {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
