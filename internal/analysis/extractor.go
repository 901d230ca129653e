package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"topicmon/internal/categorization"
	"topicmon/internal/core"
	"topicmon/internal/llm"
	"topicmon/internal/topics"
)

// LLMClient is the model capability the analysis services need
type LLMClient interface {
	GenerateText(ctx context.Context, prompt string, options llm.TextGenerationOptions) (string, error)
}

// Extractor asks the model for the topics of a single article.
type Extractor struct {
	llmClient LLMClient
	table     *categorization.Table
	log       zerolog.Logger
}

// NewExtractor creates a topic extractor
func NewExtractor(llmClient LLMClient, table *categorization.Table, log zerolog.Logger) *Extractor {
	return &Extractor{
		llmClient: llmClient,
		table:     table,
		log:       log,
	}
}

// rawAnnotation mirrors the model's JSON answer. Pointers tell missing fields apart.
type rawAnnotation struct {
	MainTopics      *[]string      `json:"main_topics"`
	Category        *string        `json:"category"`
	Keywords        []string       `json:"keywords"`
	DiscussionDepth map[string]any `json:"discussion_depth"`
}

// Annotate extracts topics for one article. Missing fields are defaulted and
// depths are clamped into [0,1]; an error means the article yields no topics.
func (e *Extractor) Annotate(ctx context.Context, article core.Article) (core.TopicAnnotation, error) {
	prompt := buildExtractionPrompt(article, e.table.Categories())

	response, err := e.llmClient.GenerateText(ctx, prompt, llm.TextGenerationOptions{JSON: true})
	if err != nil {
		return core.TopicAnnotation{}, fmt.Errorf("failed to extract topics: %w", err)
	}

	annotation, err := e.parse(response)
	if err != nil {
		return core.TopicAnnotation{}, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	e.log.Debug().
		Str("article", article.Link).
		Int("topics", len(annotation.MainTopics)).
		Str("category", annotation.Category).
		Msg("Extracted topics")
	return annotation, nil
}

func (e *Extractor) parse(response string) (core.TopicAnnotation, error) {
	var raw rawAnnotation
	if err := json.Unmarshal([]byte(llm.ExtractJSON(response)), &raw); err != nil {
		return core.TopicAnnotation{}, err
	}

	annotation := core.TopicAnnotation{
		MainTopics:      []string{},
		Category:        e.table.DefaultCategory(),
		Keywords:        raw.Keywords,
		DiscussionDepth: map[string]float64{},
	}
	if annotation.Keywords == nil {
		annotation.Keywords = []string{}
	}
	if raw.MainTopics != nil {
		for _, label := range *raw.MainTopics {
			if label = strings.TrimSpace(label); label != "" {
				annotation.MainTopics = append(annotation.MainTopics, label)
			}
		}
	}
	if raw.Category != nil && strings.TrimSpace(*raw.Category) != "" {
		annotation.Category = strings.TrimSpace(*raw.Category)
	}

	for label, value := range raw.DiscussionDepth {
		depth, ok := toFloat(value)
		if !ok {
			e.log.Warn().Str("topic", label).Interface("value", value).Msg("Ignoring non-numeric discussion depth")
			continue
		}
		if clamped := topics.ClampDepth(depth); clamped != depth {
			e.log.Warn().Str("topic", label).Float64("depth", depth).Float64("clamped", clamped).Msg("Discussion depth out of range")
			depth = clamped
		}
		annotation.DiscussionDepth[strings.TrimSpace(label)] = depth
	}

	return annotation, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
