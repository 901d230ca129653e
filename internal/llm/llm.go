package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"topicmon/internal/config"
)

const (
	// DefaultGeminiModel is used when no Gemini model is configured.
	DefaultGeminiModel = "gemini-2.5-flash"
	// DefaultOpenAIModel is used when no OpenAI-compatible model is configured.
	DefaultOpenAIModel = "glm-4-flash"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("empty response from LLM")

// TextGenerationOptions contains options for text generation
type TextGenerationOptions struct {
	MaxTokens   int     // Maximum number of tokens to generate
	Temperature float64 // Temperature for randomness (0.0 to 1.0)
	Model       string  // Model to use (optional, defaults to client's model)
	JSON        bool    // Ask for a JSON-only answer where the provider supports it
}

// TextGenerator is the single capability every provider client offers.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, options TextGenerationOptions) (string, error)
}

// NewFromConfig builds the configured provider client wrapped with pacing and
// default options.
func NewFromConfig(ctx context.Context, cfg config.AI) (*PacedClient, error) {
	var (
		gen   TextGenerator
		model string
		err   error
	)

	switch cfg.Provider {
	case "openai", "":
		var c *OpenAIClient
		c, err = NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
		if c != nil {
			gen, model = c, c.ModelName()
		}
	case "gemini":
		var c *GeminiClient
		c, err = NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if c != nil {
			gen, model = c, c.ModelName()
		}
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewPacedClient(gen, PacingOptions{
		Provider:          cfg.Provider,
		Model:             model,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Timeout:           config.Duration(cfg.Timeout, 60*time.Second),
		Defaults: TextGenerationOptions{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
	}), nil
}

var codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// ExtractJSON strips markdown code fences and any prose around the outermost
// JSON object or array in a model response.
func ExtractJSON(response string) string {
	s := strings.TrimSpace(response)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}
