package analysis

import (
	"context"
	"fmt"
	"strings"

	"topicmon/internal/core"
	"topicmon/internal/llm"
)

// DefaultRecommendationChars caps recommendation length.
const DefaultRecommendationChars = 300

// Recommender writes the short editorial pitch shown for each reported topic.
type Recommender struct {
	llmClient LLMClient
	maxChars  int
	language  string
}

// NewRecommender creates a recommender. maxChars <= 0 selects DefaultRecommendationChars.
func NewRecommender(llmClient LLMClient, maxChars int, language string) *Recommender {
	if maxChars <= 0 {
		maxChars = DefaultRecommendationChars
	}
	if language == "" {
		language = "English"
	}
	return &Recommender{
		llmClient: llmClient,
		maxChars:  maxChars,
		language:  language,
	}
}

// Recommend asks the model for a recommendation, truncated to the length cap.
func (r *Recommender) Recommend(ctx context.Context, cluster core.TopicCluster) (string, error) {
	prompt := buildRecommendationPrompt(cluster, r.maxChars, r.language)

	response, err := r.llmClient.GenerateText(ctx, prompt, llm.TextGenerationOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to generate recommendation: %w", err)
	}

	text := strings.TrimSpace(response)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return Truncate(text, r.maxChars), nil
}

// FallbackRecommendation is the templated text used when the model is unavailable.
func FallbackRecommendation(cluster core.TopicCluster) string {
	return fmt.Sprintf("%s reached a heat score of %.1f with %d articles discussing it in depth; worth a look.",
		cluster.CanonicalName, cluster.HeatScore, cluster.TotalMentions)
}
