package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"topicmon/internal/llm"
)

// Translation is one article's title and summary, before or after translation.
type Translation struct {
	Title   string
	Summary string
}

// Translator translates article titles and summaries in one batch call.
type Translator struct {
	llmClient LLMClient
	language  string
}

// NewTranslator creates a translator targeting language
func NewTranslator(llmClient LLMClient, language string) *Translator {
	return &Translator{
		llmClient: llmClient,
		language:  language,
	}
}

// TranslateBatch returns one entry per input in the same order. Entries the
// model skipped or left blank keep their original text; a failed call
// returns the error and no entries.
func (t *Translator) TranslateBatch(ctx context.Context, items []Translation) ([]Translation, error) {
	if len(items) == 0 {
		return nil, nil
	}

	inputs := make([]translationInput, len(items))
	for i, item := range items {
		inputs[i] = translationInput{
			ID:      i,
			Title:   item.Title,
			Summary: clip(item.Summary, promptSummaryChars),
		}
	}

	response, err := t.llmClient.GenerateText(ctx, buildTranslationPrompt(inputs, t.language), llm.TextGenerationOptions{JSON: true})
	if err != nil {
		return nil, fmt.Errorf("failed to translate articles: %w", err)
	}

	var outputs []translationInput
	if err := json.Unmarshal([]byte(llm.ExtractJSON(response)), &outputs); err != nil {
		return nil, fmt.Errorf("failed to parse translation response: %w", err)
	}

	translated := make([]Translation, len(items))
	copy(translated, items)
	for _, out := range outputs {
		if out.ID < 0 || out.ID >= len(items) {
			continue
		}
		if title := strings.TrimSpace(out.Title); title != "" {
			translated[out.ID].Title = title
		}
		if summary := strings.TrimSpace(out.Summary); summary != "" {
			translated[out.ID].Summary = summary
		}
	}
	return translated, nil
}
