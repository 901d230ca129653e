// Package report turns ranked topics into the daily Markdown report.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"topicmon/internal/analysis"
	"topicmon/internal/core"
	"topicmon/internal/render"
)

// DefaultArticlesPerTopic is used when Options.ArticlesPerTopic is not set
const DefaultArticlesPerTopic = 5

// Recommender writes the pitch shown for a topic.
type Recommender interface {
	Recommend(ctx context.Context, cluster core.TopicCluster) (string, error)
}

// Translator translates article titles and summaries in one batch.
type Translator interface {
	TranslateBatch(ctx context.Context, items []analysis.Translation) ([]analysis.Translation, error)
}

// Options controls report generation
type Options struct {
	ReportsDir       string
	ArticlesPerTopic int
}

// Generator builds and writes slot sections of the daily report.
type Generator struct {
	recommender Recommender
	translator  Translator // nil disables translation
	opts        Options
	log         zerolog.Logger
}

// NewGenerator creates a report generator. translator may be nil.
func NewGenerator(recommender Recommender, translator Translator, opts Options, log zerolog.Logger) *Generator {
	if opts.ArticlesPerTopic <= 0 {
		opts.ArticlesPerTopic = DefaultArticlesPerTopic
	}
	return &Generator{
		recommender: recommender,
		translator:  translator,
		opts:        opts,
		log:         log,
	}
}

// Input is everything one slot section is built from.
type Input struct {
	Date          string
	Slot          core.TimeSlot
	GeneratedAt   time.Time
	Topics        []core.TopicCluster // ranked, already cut to the report size
	TotalArticles int
	Sources       int
}

// Result describes a written report.
type Result struct {
	Path                    string
	RecommendationFallbacks int
	TranslationFallbacks    int
}

// Generate writes the slot section for in. Recommendation and translation
// failures fall back to templated or original text; only file errors are returned.
func (g *Generator) Generate(ctx context.Context, in Input) (*Result, error) {
	result := &Result{}
	section := render.SlotSection{
		Slot:          in.Slot,
		GeneratedAt:   in.GeneratedAt,
		TotalArticles: in.TotalArticles,
		Topics:        make([]render.TopicData, 0, len(in.Topics)),
	}

	for i, cluster := range in.Topics {
		rank := cluster.Rank
		if rank == 0 {
			rank = i + 1
		}

		recommendation, err := g.recommender.Recommend(ctx, cluster)
		if err != nil {
			result.RecommendationFallbacks++
			g.log.Warn().Err(err).Str("topic", cluster.CanonicalName).Str("fallback", "template").Msg("Recommendation failed")
			recommendation = analysis.FallbackRecommendation(cluster)
		}

		articles, translated := g.articles(ctx, cluster)
		if !translated {
			result.TranslationFallbacks++
		}

		section.Topics = append(section.Topics, render.TopicData{
			Rank:           rank,
			Name:           cluster.CanonicalName,
			Category:       cluster.Category,
			HeatScore:      cluster.HeatScore,
			Mentions:       cluster.TotalMentions,
			AvgDepth:       cluster.AvgDepth,
			Recommendation: recommendation,
			Articles:       articles,
		})
	}

	overview := render.Overview{
		Sources:     in.Sources,
		Articles:    in.TotalArticles,
		Topics:      len(in.Topics),
		Slot:        in.Slot,
		GeneratedAt: in.GeneratedAt,
	}

	path, err := render.WriteDailyReport(g.opts.ReportsDir, in.Date, section, overview)
	if err != nil {
		return result, fmt.Errorf("failed to write report: %w", err)
	}
	result.Path = path

	g.log.Info().
		Str("path", path).
		Int("topics", len(section.Topics)).
		Int("recommendation_fallbacks", result.RecommendationFallbacks).
		Int("translation_fallbacks", result.TranslationFallbacks).
		Msg("Report written")
	return result, nil
}

// articles picks the deepest articles of the cluster and translates them.
// The second return is false when translation was wanted but failed.
func (g *Generator) articles(ctx context.Context, cluster core.TopicCluster) ([]render.ArticleData, bool) {
	top := TopArticles(cluster, g.opts.ArticlesPerTopic)

	out := make([]render.ArticleData, len(top))
	for i, a := range top {
		out[i] = render.ArticleData{
			Title:     a.Title,
			URL:       a.Link,
			Source:    a.Source,
			Published: a.Published,
			Summary:   a.Summary,
			Depth:     a.Depth,
		}
	}

	if g.translator == nil || len(out) == 0 {
		return out, true
	}

	items := make([]analysis.Translation, len(out))
	for i, a := range out {
		items[i] = analysis.Translation{Title: a.Title, Summary: a.Summary}
	}

	translated, err := g.translator.TranslateBatch(ctx, items)
	if err != nil || len(translated) != len(out) {
		g.log.Warn().Err(err).Str("topic", cluster.CanonicalName).Str("fallback", "original text").Msg("Translation failed")
		return out, false
	}

	for i := range out {
		out[i].Title = translated[i].Title
		out[i].Summary = translated[i].Summary
	}
	return out, true
}

// TopArticles returns up to n articles of the cluster ordered by depth,
// deepest first. Ties keep cluster order.
func TopArticles(cluster core.TopicCluster, n int) []core.ClusterArticle {
	sorted := make([]core.ClusterArticle, len(cluster.Articles))
	copy(sorted, cluster.Articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Depth > sorted[j].Depth
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
