// Package analysis turns language model answers into topic annotations,
// proposed groupings, recommendations and translations.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"topicmon/internal/categorization"
	"topicmon/internal/core"
)

const (
	promptSummaryChars   = 500
	promptContentChars   = 1000
	representativeTitles = 3
)

// buildExtractionPrompt creates the prompt asking for topics, category,
// keywords and per-topic depth of one article
func buildExtractionPrompt(article core.Article, categories []categorization.Category) string {
	var sb strings.Builder

	sb.WriteString("Analyze the following technical blog article and extract its key information.\n\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", article.Title))
	sb.WriteString(fmt.Sprintf("Source: %s\n", article.Source))
	sb.WriteString(fmt.Sprintf("Summary: %s\n", clip(article.Summary, promptSummaryChars)))
	sb.WriteString(fmt.Sprintf("Content excerpt: %s\n\n", clip(article.Content, promptContentChars)))

	sb.WriteString("Return a JSON object with:\n")
	sb.WriteString("1. main_topics: the 1-3 main topics the article discusses.\n")
	sb.WriteString("   Topic names must be SPECIFIC and informative: name the company, project or\n")
	sb.WriteString("   paper together with the concrete event or claim.\n")
	sb.WriteString("   Good: \"OpenAI ships Codex desktop app\", \"Running cost of open source projects\".\n")
	sb.WriteString("   Bad: \"AI progress\", \"Cost analysis\", \"Product launch\" (too generic).\n")
	sb.WriteString("2. category: exactly one of the following:\n")
	for _, cat := range categories {
		if cat.Description != "" {
			sb.WriteString(fmt.Sprintf("   - %s: %s\n", cat.Name, cat.Description))
		} else {
			sb.WriteString(fmt.Sprintf("   - %s\n", cat.Name))
		}
	}
	sb.WriteString("3. keywords: 5-10 keywords.\n")
	sb.WriteString("4. discussion_depth: an object mapping every main topic to a depth score\n")
	sb.WriteString("   between 0 and 1, where 1 means in-depth analysis.\n\n")

	sb.WriteString("Notes:\n")
	sb.WriteString("- If the article is unrelated to AI or software engineering, return an empty main_topics array.\n")
	sb.WriteString("- The keys of discussion_depth must match the main_topics entries exactly.\n\n")

	sb.WriteString("Example:\n")
	sb.WriteString(`{
  "main_topics": ["Cutting LLM inference latency in production", "Accuracy impact of INT8 quantization"],
  "category": "Technical Deep Dive",
  "keywords": ["LLM", "INT8", "quantization", "inference", "latency"],
  "discussion_depth": {"Cutting LLM inference latency in production": 0.9, "Accuracy impact of INT8 quantization": 0.7}
}`)
	sb.WriteString("\n\nReturn only the JSON, with no other text.")

	return sb.String()
}

// buildGroupingPrompt creates the prompt asking the model to merge
// semantically similar topic labels
func buildGroupingPrompt(labels []string) string {
	encoded, _ := json.MarshalIndent(labels, "", "  ")

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Below are %d topics extracted from several technical blogs:\n\n", len(labels)))
	sb.Write(encoded)
	sb.WriteString("\n\nMerge semantically similar topics into clusters. Rules:\n")
	sb.WriteString("1. Only merge topics that are closely related and mean the same thing.\n")
	sb.WriteString("2. Do not over-merge; keep topics distinguishable.\n")
	sb.WriteString("3. canonical_name must be a SPECIFIC topic name, not a broad category.\n")
	sb.WriteString("   Good: \"OpenAI ships Codex app\", \"Supply chain attack on npm packages\".\n")
	sb.WriteString("   Bad: \"Artificial intelligence\", \"Security\", \"Product launch\".\n")
	sb.WriteString("4. A unique topic may form a cluster on its own.\n")
	sb.WriteString("5. category is a broad category; canonical_name stays specific.\n")
	sb.WriteString("6. Copy topics into merged_topics exactly as they appear in the list.\n\n")
	sb.WriteString("Return a JSON array:\n")
	sb.WriteString(`[
  {
    "canonical_name": "Speeding up LLM inference",
    "merged_topics": ["LLM inference optimization", "Faster LLM serving"],
    "category": "Technical Deep Dive"
  }
]`)
	sb.WriteString("\n\nReturn only the JSON array, with no other text.")
	return sb.String()
}

// buildRecommendationPrompt creates the prompt for a short editorial pitch of a cluster
func buildRecommendationPrompt(cluster core.TopicCluster, maxChars int, language string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a short editorial recommendation (strictly at most %d characters, in %s) for the following technical topic:\n\n", maxChars, language))
	sb.WriteString(fmt.Sprintf("Topic: %s\n", cluster.CanonicalName))
	sb.WriteString(fmt.Sprintf("Category: %s\n", cluster.Category))
	sb.WriteString(fmt.Sprintf("Heat score: %.1f/100\n", cluster.HeatScore))
	sb.WriteString(fmt.Sprintf("Related articles: %d\n", cluster.TotalMentions))
	sb.WriteString(fmt.Sprintf("Average discussion depth: %.2f/1.0\n\n", cluster.AvgDepth))

	sb.WriteString("Representative article titles:\n")
	for i, a := range cluster.Articles {
		if i == representativeTitles {
			break
		}
		sb.WriteString("- " + a.Title + "\n")
	}

	sb.WriteString("\nRequirements:\n")
	sb.WriteString("1. Explain why the topic deserves attention (technical value, industry significance).\n")
	sb.WriteString("2. Describe how hot and how deep the current discussion is.\n")
	sb.WriteString("3. State what readers gain: insight, trends or practical lessons.\n")
	sb.WriteString("4. Professional but accessible tone.\n")
	sb.WriteString("5. Refer to the topic by its content, not as \"this topic\".\n\n")
	sb.WriteString("Return only the recommendation text, without a heading.")
	return sb.String()
}

type translationInput struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// buildTranslationPrompt creates the prompt for a batch translation of titles and summaries
func buildTranslationPrompt(items []translationInput, language string) string {
	encoded, _ := json.MarshalIndent(items, "", "  ")

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Translate the titles and summaries of the following %d technical articles into %s.\n\n", len(items), language))
	sb.WriteString("Requirements:\n")
	sb.WriteString("1. Keep technical terms accurate; terms like LLM, API or GPU may stay untranslated.\n")
	sb.WriteString("2. Titles should be concise.\n")
	sb.WriteString("3. Summaries should cover the core content, main arguments and technical details.\n")
	sb.WriteString("4. Use fluent, natural language.\n\n")
	sb.WriteString("Input JSON:\n")
	sb.Write(encoded)
	sb.WriteString("\n\nOutput format (JSON array, same ids):\n")
	sb.WriteString(`[{"id": 0, "title": "translated title", "summary": "translated summary"}]`)
	sb.WriteString("\n\nReturn only the JSON array, with no other text.")
	return sb.String()
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Truncate cuts s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
