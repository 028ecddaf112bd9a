// Package gemini implements the model invocation step of task processing
// on top of Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"google.golang.org/genai"

	"github.com/cleohq/cleo-api/internal/config"
)

// systemInstruction frames every task invocation the same way; the
// per-task variation lives entirely in the prompt.
const systemInstruction = "You are an AI assistant processing a task."

// Invoker calls the Gemini API to produce a completion for a task prompt.
type Invoker struct {
	logger *slog.Logger
	config config.LLMConfig
	client *genai.Client
	model  string
}

// NewInvoker creates a Gemini invoker with the provided dependencies.
// The API key and model name are required; retry settings fall back to
// sane defaults when unset.
func NewInvoker(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Invoker, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %v", ErrInvalidConfig, err)
	}

	return &Invoker{
		logger: logger.With(slog.String("component", "gemini_invoker")),
		config: cfg,
		client: client,
		model:  cfg.ModelName,
	}, nil
}

// Invoke sends the prompt to the model and returns the generated text.
// Transient API errors are retried with exponential backoff and jitter;
// safety blocks and empty responses are returned immediately.
func (g *Invoker) Invoke(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	maxRetries := g.config.MaxRetries
	baseDelaySeconds := g.config.RetryDelaySeconds
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}
	if baseDelaySeconds < 1 {
		g.logger.WarnContext(ctx, "invalid retry delay value, using default", "base_delay_seconds", 2)
		baseDelaySeconds = 2
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.config.Temperature),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		g.logger.DebugContext(ctx, "making gemini API call",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		text, transient, callErr := g.callOnce(ctx, prompt, genConfig)
		if callErr == nil {
			g.logger.DebugContext(ctx, "gemini API call successful", "attempt", attemptNum)
			return text, nil
		}

		g.logger.ErrorContext(ctx, "gemini API call failed",
			"attempt", attemptNum,
			"error", callErr)

		if !transient {
			return "", callErr
		}

		if attempt >= maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				ErrTransientFailure, maxRetries, callErr)
		}

		// delay = baseDelay * (2^attempt) * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		g.logger.DebugContext(ctx, "retrying after delay",
			"attempt", attemptNum,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}

// callOnce performs a single GenerateContent call and classifies its
// outcome. The transient return reports whether a failure is worth retrying.
func (g *Invoker) callOnce(
	ctx context.Context,
	prompt string,
	genConfig *genai.GenerateContentConfig,
) (text string, transient bool, err error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
	if err != nil {
		return "", true, fmt.Errorf("gemini API call error: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", false, fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", false, ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", false, fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	text = resp.Text()
	if text == "" {
		return "", false, fmt.Errorf("%w: no text in response", ErrInvalidResponse)
	}

	return text, false, nil
}
