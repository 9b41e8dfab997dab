// Package config provides configuration loading and structs for kugiri.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kugiri/internal/changepoint"
	"github.com/hyperjump/kugiri/internal/freeform"
	"github.com/hyperjump/kugiri/internal/sections"
)

// APIKeyEnv is consulted when no API key is configured.
const APIKeyEnv = "GEMINI_API_KEY"

// Provider backends.
const (
	ProviderHeuristic = "heuristic"
	ProviderGemini    = "gemini"
)

// Clusterers accepted by free_form.clusterer.
const (
	ClustererCPM     = "cpm"
	ClustererLouvain = "louvain"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Headings    HeadingsConfig    `yaml:"headings"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Features    FeaturesConfig    `yaml:"features"`
	Merge       MergeConfig       `yaml:"merge"`
	Sections    SectionsConfig    `yaml:"sections"`
	FreeForm    FreeFormConfig    `yaml:"free_form"`
	ChangePoint ChangePointConfig `yaml:"change_point"`
	Storage     StorageConfig     `yaml:"storage"`
	Batch       BatchConfig       `yaml:"batch"`
	Watch       WatchConfig       `yaml:"watch"`
}

// HeadingsConfig selects the heading dictionary and the optional fallbacks
// used when a line does not match a synonym exactly.
type HeadingsConfig struct {
	DictionaryPath string `yaml:"dictionary_path"`
	// FuzzyDistance enables the edit-distance fallback when > 0.
	FuzzyDistance int `yaml:"fuzzy_distance"`
	// EmbeddingThreshold enables the embedding fallback when > 0.
	EmbeddingThreshold float64 `yaml:"embedding_threshold"`
}

// ProvidersConfig selects the classifier, recognizer and grammar validator.
type ProvidersConfig struct {
	Backend     string        `yaml:"backend"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Backend     string `yaml:"backend"`
	ModelPath   string `yaml:"model_path"`
	Dimensions  int    `yaml:"dimensions"`
	MaxTokens   int    `yaml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size"`
	GeminiModel string `yaml:"gemini_model"`
	// Persist stores vectors in the SQLite database.
	Persist bool `yaml:"persist"`
}

// FeaturesConfig tunes per-line feature extraction.
type FeaturesConfig struct {
	GapRatio float64  `yaml:"gap_ratio"`
	Labels   []string `yaml:"labels"`
}

// MergeConfig tunes the line merge engine.
type MergeConfig struct {
	SuspectRun int      `yaml:"suspect_run"`
	StopLabels []string `yaml:"stop_labels"`
}

// SectionsConfig lists the sections to extract in order.
type SectionsConfig struct {
	Targets      []sections.Target `yaml:"targets"`
	ContactLabel string            `yaml:"contact_label"`
}

// FreeFormConfig tunes the free-form chunker.
type FreeFormConfig struct {
	freeform.Params `yaml:",inline"`
	Clusterer       string `yaml:"clusterer"`
	Seed            uint64 `yaml:"seed"`
}

// ChangePointConfig tunes the change-point segmenter. Smooth and Groups are
// pointers so an absent key keeps the default.
type ChangePointConfig struct {
	Window     int                 `yaml:"window"`
	Threshold  float64             `yaml:"threshold"`
	Smooth     *bool               `yaml:"smooth"`
	Groups     *changepoint.Groups `yaml:"groups"`
	LabelVocab []string            `yaml:"label_vocab"`
}

// Options converts the config into segmenter options.
func (c ChangePointConfig) Options() changepoint.Options {
	o := changepoint.DefaultOptions()
	if c.Window > 0 {
		o.Window = c.Window
	}
	if c.Threshold > 0 {
		o.Threshold = c.Threshold
	}
	if c.Smooth != nil {
		o.Smooth = *c.Smooth
	}
	if c.Groups != nil {
		o.Groups = *c.Groups
	}
	if len(c.LabelVocab) > 0 {
		o.LabelVocab = c.LabelVocab
	}
	return o
}

// StorageConfig holds the database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// BatchConfig holds batch run settings.
type BatchConfig struct {
	OutputDir  string `yaml:"output_dir"`
	Workers    int    `yaml:"workers"`
	ExportXLSX bool   `yaml:"export_xlsx"`
	Persist    bool   `yaml:"persist"`
}

// WatchConfig holds inbox watch settings.
type WatchConfig struct {
	Directories    []string      `yaml:"directories"`
	Extensions     []string      `yaml:"extensions"`
	Recursive      *bool         `yaml:"recursive"`
	OutputDir      string        `yaml:"output_dir"`
	DefaultDocType string        `yaml:"default_doc_type"`
	Debounce       time.Duration `yaml:"debounce"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Batch.OutputDir = expandPath(cfg.Batch.OutputDir, configDir)
	cfg.Watch.OutputDir = expandPath(cfg.Watch.OutputDir, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	if cfg.Headings.DictionaryPath != "" {
		cfg.Headings.DictionaryPath = expandPath(cfg.Headings.DictionaryPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a config with every default applied and no file behind it.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Validate rejects unknown backends and clusterers.
func Validate(cfg *Config) error {
	switch cfg.Providers.Backend {
	case ProviderHeuristic, ProviderGemini:
	default:
		return fmt.Errorf("invalid providers.backend %q", cfg.Providers.Backend)
	}
	switch cfg.FreeForm.Clusterer {
	case ClustererCPM, ClustererLouvain:
	default:
		return fmt.Errorf("invalid free_form.clusterer %q", cfg.FreeForm.Clusterer)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// APIKeyOrEnv returns the configured key or the value of GEMINI_API_KEY.
func (p ProvidersConfig) APIKeyOrEnv() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	return os.Getenv(APIKeyEnv)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
