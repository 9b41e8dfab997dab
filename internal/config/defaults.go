package config

import (
	"time"

	"github.com/hyperjump/kugiri/internal/embedding"
	"github.com/hyperjump/kugiri/internal/features"
	"github.com/hyperjump/kugiri/internal/merge"
	"github.com/hyperjump/kugiri/internal/nlp"
	"github.com/hyperjump/kugiri/internal/sections"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Providers.Backend == "" {
		cfg.Providers.Backend = ProviderHeuristic
	}
	if cfg.Providers.Timeout == 0 {
		cfg.Providers.Timeout = 10 * time.Second
	}
	if cfg.Providers.Concurrency == 0 {
		cfg.Providers.Concurrency = 4
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = embedding.BackendLexical
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Features.GapRatio == 0 {
		cfg.Features.GapRatio = features.DefaultGapRatio
	}
	if cfg.Merge.SuspectRun == 0 {
		cfg.Merge.SuspectRun = nlp.DefaultSuspectRun
	}
	if len(cfg.Merge.StopLabels) == 0 {
		cfg.Merge.StopLabels = append([]string(nil), merge.DefaultStopLabels...)
	}
	if len(cfg.Sections.Targets) == 0 {
		cfg.Sections.Targets = append([]sections.Target(nil), sections.DefaultTargets...)
	}
	if cfg.Sections.ContactLabel == "" {
		cfg.Sections.ContactLabel = sections.DefaultContactLabel
	}
	if cfg.FreeForm.Clusterer == "" {
		cfg.FreeForm.Clusterer = ClustererCPM
	}
	cfg.FreeForm.Params = cfg.FreeForm.Params.WithDefaults()
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/kugiri.db"
	}
	if cfg.Batch.OutputDir == "" {
		cfg.Batch.OutputDir = "./output"
	}
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = 4
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".html", ".htm", ".pdf", ".docx"}
	}
	if cfg.Watch.OutputDir == "" {
		cfg.Watch.OutputDir = "./output/inbox"
	}
	if cfg.Watch.DefaultDocType == "" {
		cfg.Watch.DefaultDocType = "essays"
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
