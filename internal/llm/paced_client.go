package llm

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"topicmon/internal/logger"
)

// PacingOptions configures a PacedClient.
type PacingOptions struct {
	Provider          string
	Model             string
	RequestsPerMinute int           // 0 disables rate limiting
	Timeout           time.Duration // per call; 0 disables
	Defaults          TextGenerationOptions
	Logger            *zerolog.Logger
}

// PacedClient wraps a provider client so that calls run one at a time, stay
// under the configured request rate and carry default generation options.
type PacedClient struct {
	client   TextGenerator
	limiter  *rate.Limiter
	mu       sync.Mutex
	opts     PacingOptions
	log      zerolog.Logger
	calls    int
	failures int
}

// NewPacedClient creates a paced wrapper around client.
func NewPacedClient(client TextGenerator, opts PacingOptions) *PacedClient {
	pc := &PacedClient{
		client: client,
		opts:   opts,
	}
	if opts.RequestsPerMinute > 0 {
		pc.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	if opts.Logger != nil {
		pc.log = *opts.Logger
	} else {
		pc.log = logger.For("llm")
	}
	return pc
}

// GenerateText waits for its turn, applies defaults and forwards the call.
func (pc *PacedClient) GenerateText(ctx context.Context, prompt string, options TextGenerationOptions) (string, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.limiter != nil {
		if err := pc.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	if pc.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pc.opts.Timeout)
		defer cancel()
	}

	options = pc.withDefaults(options)

	startTime := time.Now()
	result, err := pc.client.GenerateText(ctx, prompt, options)
	latency := time.Since(startTime)

	pc.calls++
	event := pc.log.Debug()
	if err != nil {
		pc.failures++
		event = pc.log.Warn().Err(err)
	}
	event.
		Str("provider", pc.opts.Provider).
		Str("model", pc.model(options)).
		Dur("latency", latency).
		Int("prompt_chars", len(prompt)).
		Int("response_chars", len(result)).
		Msg("LLM call finished")

	return result, err
}

// Stats returns the number of calls made and how many failed.
func (pc *PacedClient) Stats() (calls, failures int) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.calls, pc.failures
}

func (pc *PacedClient) withDefaults(options TextGenerationOptions) TextGenerationOptions {
	if options.MaxTokens == 0 {
		options.MaxTokens = pc.opts.Defaults.MaxTokens
	}
	if options.Temperature == 0 {
		options.Temperature = pc.opts.Defaults.Temperature
	}
	if options.Model == "" {
		options.Model = pc.opts.Defaults.Model
	}
	return options
}

func (pc *PacedClient) model(options TextGenerationOptions) string {
	if options.Model != "" {
		return options.Model
	}
	return pc.opts.Model
}
