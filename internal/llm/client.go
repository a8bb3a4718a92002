package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the text-completion surface the pipeline components consume.
type Client interface {
	// Complete sends a system/user prompt pair and returns the model's text.
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32, maxTokens int) (string, error)
}

// OpenAIConfig holds configuration for OpenAI API usage.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     int // seconds
}

// DefaultOpenAIConfig returns sensible defaults for article generation.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:       openai.GPT4TurboPreview,
		Temperature: 0.7,
		MaxTokens:   3000,
		Timeout:     120,
	}
}

// ConfigFromEnv creates config from environment variables with sensible defaults.
func ConfigFromEnv() OpenAIConfig {
	config := DefaultOpenAIConfig()
	config.APIKey = os.Getenv("OPENAI_API_KEY")

	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.Model = model
	}

	if tempStr := os.Getenv("OPENAI_TEMPERATURE"); tempStr != "" {
		if temp, err := strconv.ParseFloat(tempStr, 32); err == nil {
			config.Temperature = float32(temp)
		}
	}

	return config
}

// OpenAIClient wraps the OpenAI API for content generation.
type OpenAIClient struct {
	client *openai.Client
	config OpenAIConfig
	logger *slog.Logger
}

// NewOpenAIClient creates an OpenAI-backed completion client.
func NewOpenAIClient(config OpenAIConfig, logger *slog.Logger) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai api key not configured")
	}

	return &OpenAIClient{
		client: openai.NewClient(config.APIKey),
		config: config,
		logger: logger,
	}, nil
}

// Complete sends one chat completion request with bounded retries on rate limits.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32, maxTokens int) (string, error) {
	timeout := 120
	if c.config.Timeout > 0 {
		timeout = c.config.Timeout
	}

	// Reasoning models (o1, o3, o4, gpt-5) reject temperature and system
	// messages; merge prompts and drop the sampling knobs for them.
	lower := strings.ToLower(c.config.Model)
	isReasoningModel := strings.Contains(lower, "o1") ||
		strings.Contains(lower, "o3") ||
		strings.Contains(lower, "o4") ||
		strings.Contains(lower, "gpt-5")

	var request openai.ChatCompletionRequest
	if isReasoningModel {
		request = openai.ChatCompletionRequest{
			Model: c.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: systemPrompt + "\n\n" + userPrompt,
				},
			},
		}
	} else {
		request = openai.ChatCompletionRequest{
			Model:       c.config.Model,
			Temperature: temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
		}
	}
	if maxTokens > 0 {
		request.MaxCompletionTokens = maxTokens
	}

	maxRetries := 3
	baseDelay := 1 * time.Second

	var resp openai.ChatCompletionResponse
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		apiCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		resp, err = c.client.CreateChatCompletion(apiCtx, request)
		cancel()

		if err == nil {
			break
		}

		errStr := err.Error()
		if strings.Contains(errStr, "429") || strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "Rate limit") {
			delay := baseDelay * time.Duration(1<<uint(attempt))
			delay += time.Duration(rand.Intn(500)) * time.Millisecond

			if attempt < maxRetries-1 {
				c.logger.Warn("rate limited, retrying with backoff",
					"attempt", attempt+1,
					"delay_ms", delay.Milliseconds(),
					"max_retries", maxRetries)
				select {
				case <-ctx.Done():
					return "", fmt.Errorf("completion cancelled: %w", ctx.Err())
				case <-time.After(delay):
				}
				continue
			}
			c.logger.Error("rate limit exceeded, max retries reached",
				"attempts", maxRetries,
				"error", errStr)
		}
		break
	}

	if err != nil {
		return "", fmt.Errorf("openai api call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned from model %s", c.config.Model)
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response from model %s (finish_reason: %s)", c.config.Model, resp.Choices[0].FinishReason)
	}

	c.logger.Debug("completion returned",
		"model", c.config.Model,
		"content_length", len(content),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return content, nil
}
