package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"topicmon/internal/analysis"
	"topicmon/internal/categorization"
	"topicmon/internal/config"
	"topicmon/internal/core"
	"topicmon/internal/feeds"
	"topicmon/internal/heat"
	"topicmon/internal/llm"
	"topicmon/internal/persistence"
	"topicmon/internal/report"
	"topicmon/internal/store"
)

// Builder helps construct a fully configured Pipeline
type Builder struct {
	cfg       *config.Config
	llmClient analysis.LLMClient
	log       zerolog.Logger
	skipCache bool

	store *store.Store
}

// NewBuilder creates a new pipeline builder for cfg
func NewBuilder(cfg *config.Config, log zerolog.Logger) *Builder {
	return &Builder{
		cfg: cfg,
		log: log,
	}
}

// WithLLMClient sets the LLM client instead of building one from configuration
func (b *Builder) WithLLMClient(client analysis.LLMClient) *Builder {
	b.llmClient = client
	return b
}

// WithoutCache disables the extraction cache and run history
func (b *Builder) WithoutCache() *Builder {
	b.skipCache = true
	return b
}

// Store returns the cache store opened by Build, or nil
func (b *Builder) Store() *store.Store {
	return b.store
}

// Close releases resources opened by Build
func (b *Builder) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

// Build constructs a fully configured Pipeline
func (b *Builder) Build(ctx context.Context) (*Pipeline, error) {
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	table, err := categorization.Load(cfg.Analysis.CategoriesFile, cfg.Analysis.DefaultCategory)
	if err != nil {
		return nil, err
	}

	if b.llmClient == nil {
		client, err := llm.NewFromConfig(ctx, cfg.AI)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		b.llmClient = client
	}

	fetcher := feeds.NewFetcher(feeds.Options{
		Timeout:         config.Duration(cfg.Feeds.Timeout, 15*time.Second),
		Retries:         cfg.Feeds.Retries,
		RetryDelay:      config.Duration(cfg.Feeds.RetryDelay, 2*time.Second),
		UserAgent:       cfg.Feeds.UserAgent,
		MaxContentChars: cfg.Feeds.MaxContentChars,
	}, b.component("feeds"))
	source := NewFeedAdapter(fetcher, cfg.Feeds.OPMLFile)

	var annotator TopicAnnotator = analysis.NewExtractor(b.llmClient, table, b.component("extractor"))
	var recorder RunRecorder

	// Initialize cache (optional)
	if !b.skipCache && cfg.Cache.Enabled {
		st, err := store.NewStore(cfg.App.DataDir, config.Duration(cfg.Cache.TTL, 72*time.Hour))
		if err != nil {
			// Non-fatal: continue without cache
			b.log.Warn().Err(err).Msg("Failed to open extraction cache, continuing without it")
		} else {
			b.store = st
			annotator = store.NewCachedAnnotator(annotator, st, b.component("cache"))
			recorder = st
		}
	}

	var translator report.Translator
	if cfg.Output.Translate {
		translator = analysis.NewTranslator(b.llmClient, cfg.Output.Language)
	}
	reporter := report.NewGenerator(
		analysis.NewRecommender(b.llmClient, cfg.Output.RecommendationMaxChars, cfg.Output.Language),
		translator,
		report.Options{
			ReportsDir:       cfg.App.ReportsDir,
			ArticlesPerTopic: cfg.Output.ArticlesPerTopic,
		},
		b.component("report"),
	)

	pipelineConfig := &Config{
		WindowHours:          cfg.Feeds.WindowHours,
		MinArticlesThreshold: cfg.Analysis.MinArticlesThreshold,
		TopicsPerReport:      cfg.Output.TopicsPerReport,
		DefaultCategory:      table.DefaultCategory(),
		Location:             cfg.App.Location(),
		SlotTimes:            make(map[core.TimeSlot]string, 3),
	}
	for _, slot := range core.Slots() {
		pipelineConfig.SlotTimes[slot] = cfg.Schedule.TimeFor(slot)
	}

	return NewPipeline(
		source,
		annotator,
		analysis.NewGrouper(b.llmClient, table.DefaultCategory()),
		heat.NewScorer(table.Weight),
		persistence.NewFileStore(cfg.App.DataDir),
		reporter,
		recorder,
		pipelineConfig,
		b.component("pipeline"),
	), nil
}

func (b *Builder) component(name string) zerolog.Logger {
	return b.log.With().Str("component", name).Logger()
}
