package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"topicmon/internal/core"
	"topicmon/internal/llm"
	"topicmon/internal/topics"
)

// Grouper asks the model to merge semantically similar topic labels.
// It satisfies topics.Grouper.
type Grouper struct {
	llmClient       LLMClient
	defaultCategory string
}

// NewGrouper creates a label grouper
func NewGrouper(llmClient LLMClient, defaultCategory string) *Grouper {
	return &Grouper{
		llmClient:       llmClient,
		defaultCategory: defaultCategory,
	}
}

var _ topics.Grouper = (*Grouper)(nil)

// Group returns the proposed groups in the order the model gave them.
// Unparsable answers are reported as topics.ErrMalformedGrouping.
func (g *Grouper) Group(ctx context.Context, labels []string) ([]core.ProposedGroup, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no labels to group", topics.ErrMalformedGrouping)
	}

	response, err := g.llmClient.GenerateText(ctx, buildGroupingPrompt(labels), llm.TextGenerationOptions{JSON: true})
	if err != nil {
		return nil, fmt.Errorf("failed to group topics: %w", err)
	}

	var groups []core.ProposedGroup
	if err := json.Unmarshal([]byte(llm.ExtractJSON(response)), &groups); err != nil {
		return nil, fmt.Errorf("%w: %v", topics.ErrMalformedGrouping, err)
	}

	for i := range groups {
		groups[i].CanonicalName = strings.TrimSpace(groups[i].CanonicalName)
		groups[i].Category = strings.TrimSpace(groups[i].Category)
		if groups[i].Category == "" {
			groups[i].Category = g.defaultCategory
		}
	}
	return groups, nil
}
