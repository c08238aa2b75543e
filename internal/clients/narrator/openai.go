package narrator

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/KirkDiggler/gamemaster-api/internal/errors"
)

const (
	defaultTimeout = 120 * time.Second
	defaultRetries = 2
)

// OpenAIConfig contains configuration for the OpenAI-backed narrator client.
// BaseURL is optional and supports OpenAI-compatible gateways.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Retries int
}

// Validate validates the OpenAIConfig.
func (cfg *OpenAIConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.APIKey == "" {
		return errors.InvalidArgument("API key cannot be empty")
	}
	if cfg.Model == "" {
		return errors.InvalidArgument("model cannot be empty")
	}
	return nil
}

type openAIClient struct {
	client  *openai.Client
	model   string
	retries int
}

// NewOpenAI creates a narrator client backed by an OpenAI-compatible
// chat-completion endpoint
func NewOpenAI(cfg *OpenAIConfig) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}

	return &openAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		retries: retries,
	}, nil
}

func (c *openAIClient) GenerateNarration(ctx context.Context, input *GenerateInput) (*GenerateOutput, error) {
	if input == nil || strings.TrimSpace(input.Prompt) == "" {
		return nil, errors.InvalidArgument("prompt cannot be empty")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(input.History)+2)
	if input.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: input.SystemPrompt,
		})
	}
	for _, m := range input.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: input.Prompt,
	})

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			slog.WarnContext(ctx, "retrying narration request",
				"attempt", attempt,
				"error", lastErr)
		}

		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: messages,
		})
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			lastErr = errors.Unavailable("model returned an empty reply")
			continue
		}

		return &GenerateOutput{Raw: resp.Choices[0].Message.Content}, nil
	}

	return nil, errors.WrapWithCode(lastErr, errors.CodeUnavailable, "narration request failed")
}
