package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kugiri/internal/changepoint"
	"github.com/hyperjump/kugiri/internal/config"
	"github.com/hyperjump/kugiri/internal/embedding"
	"github.com/hyperjump/kugiri/internal/features"
	"github.com/hyperjump/kugiri/internal/freeform"
	"github.com/hyperjump/kugiri/internal/graph"
	"github.com/hyperjump/kugiri/internal/headings"
	"github.com/hyperjump/kugiri/internal/merge"
	"github.com/hyperjump/kugiri/internal/nlp"
	"github.com/hyperjump/kugiri/internal/nlp/gemini"
	"github.com/hyperjump/kugiri/internal/sections"
	"github.com/hyperjump/kugiri/pkg/utils"
)

// Providers are the language capabilities a Pipeline consumes.
type Providers struct {
	Classifier nlp.Classifier
	Recognizer nlp.EntityRecognizer
	Validator  nlp.GrammarValidator
}

// HeuristicProviders returns the offline providers.
func HeuristicProviders(hm *headings.Map, suspectRun int) Providers {
	return Providers{
		Classifier: nlp.NewKeywordClassifier(hm),
		Recognizer: nlp.NewPatternRecognizer(hm),
		Validator:  nlp.NewHeuristicValidator(suspectRun),
	}
}

// GeminiProviders returns providers backed by one Gemini generator.
func GeminiProviders(ctx context.Context, cfg config.ProvidersConfig, logger *zap.Logger) (Providers, error) {
	apiKey := cfg.APIKeyOrEnv()
	if apiKey == "" {
		return Providers{}, fmt.Errorf("gemini providers need an API key (set providers.api_key or %s)", config.APIKeyEnv)
	}
	gen, err := gemini.NewGenerator(ctx, apiKey, cfg.Model)
	if err != nil {
		return Providers{}, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return Providers{
		Classifier: gemini.NewClassifier(gen, gemini.WithLogger(logger)),
		Recognizer: gemini.NewRecognizer(gen, gemini.WithLogger(logger)),
		Validator:  gemini.NewValidator(gen, gemini.WithLogger(logger)),
	}, nil
}

// Build assembles a Pipeline from cfg. store, when non-nil and embedding
// persistence is enabled, backs the embedder with stored vectors. A missing
// or malformed heading dictionary is returned immediately.
func Build(ctx context.Context, cfg *config.Config, store embedding.VectorStore, logger *zap.Logger) (*Pipeline, error) {
	logger = utils.OrNop(logger)

	hm, err := headings.Load(cfg.Headings.DictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load heading dictionary: %w", err)
	}

	var prov Providers
	switch cfg.Providers.Backend {
	case config.ProviderGemini:
		prov, err = GeminiProviders(ctx, cfg.Providers, logger)
		if err != nil {
			return nil, err
		}
	default:
		prov = HeuristicProviders(hm, cfg.Merge.SuspectRun)
	}

	apiKey := cfg.Providers.APIKeyOrEnv()
	emb, err := embedding.New(ctx, embedding.Config{
		Backend:     cfg.Embedding.Backend,
		ModelPath:   cfg.Embedding.ModelPath,
		Dimensions:  cfg.Embedding.Dimensions,
		MaxTokens:   cfg.Embedding.MaxTokens,
		CacheSize:   cfg.Embedding.CacheSize,
		GeminiModel: cfg.Embedding.GeminiModel,
		APIKey:      apiKey,
	}, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Embedding.Persist && store != nil {
		emb = embedding.NewPersistentEmbedder(emb, store, embeddingNamespace(cfg.Embedding), logger)
	}

	var chain headings.Chain
	if cfg.Headings.FuzzyDistance > 0 {
		chain = append(chain, headings.NewFuzzyMatcher(hm, cfg.Headings.FuzzyDistance))
	}
	if cfg.Headings.EmbeddingThreshold > 0 {
		chain = append(chain, headings.NewEmbeddingMatcher(hm, emb, cfg.Headings.EmbeddingThreshold))
	}
	extractorOpts := []features.ExtractorOption{
		features.WithLogger(logger.Named("features")),
		features.WithLabels(cfg.Features.Labels),
		features.WithGapRatio(cfg.Features.GapRatio),
		features.WithConcurrency(cfg.Providers.Concurrency),
		features.WithTimeout(cfg.Providers.Timeout),
	}
	if len(chain) > 0 {
		extractorOpts = append(extractorOpts, features.WithHeadingMatcher(chain))
	}

	var clusterer graph.Clusterer = graph.NewCPMClusterer()
	if cfg.FreeForm.Clusterer == config.ClustererLouvain {
		clusterer = graph.NewLouvainClusterer(cfg.FreeForm.Seed)
	}

	c := Components{
		Extractor: features.NewExtractor(hm, prov.Classifier, prov.Recognizer, extractorOpts...),
		Merger: merge.NewEngine(prov.Validator,
			merge.WithLogger(logger.Named("merge")),
			merge.WithStopLabels(cfg.Merge.StopLabels)),
		Sections: sections.NewSegmenter(
			sections.WithLogger(logger.Named("sections")),
			sections.WithTargets(cfg.Sections.Targets),
			sections.WithContactLabel(cfg.Sections.ContactLabel)),
		Chunker: freeform.NewChunker(nlp.NewProseSegmenter(), emb, nlp.NewBleveTokenCounter(0),
			freeform.WithLogger(logger.Named("freeform")),
			freeform.WithParams(cfg.FreeForm.Params),
			freeform.WithClusterer(clusterer)),
		ChangePoint: changepoint.NewSegmenter(emb,
			changepoint.WithLogger(logger.Named("changepoint")),
			changepoint.WithOptions(cfg.ChangePoint.Options())),
		Embedder: emb,
	}
	logger.Debug("pipeline ready",
		zap.String("providers", cfg.Providers.Backend),
		zap.String("embedding", cfg.Embedding.Backend),
		zap.String("clusterer", cfg.FreeForm.Clusterer),
		zap.Int("headings", hm.Len()))
	return New(c, WithLogger(logger)), nil
}

// embeddingNamespace identifies the vector space of the configured backend.
func embeddingNamespace(cfg config.EmbeddingConfig) string {
	switch cfg.Backend {
	case embedding.BackendGemini:
		return fmt.Sprintf("gemini:%s:%d", cfg.GeminiModel, cfg.Dimensions)
	case embedding.BackendONNX:
		return fmt.Sprintf("onnx:%s:%d", cfg.ModelPath, cfg.Dimensions)
	default:
		return fmt.Sprintf("%s:%d", cfg.Backend, cfg.Dimensions)
	}
}
