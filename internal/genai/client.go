// Package genai wraps the chat-completions API used for bot decisions.
// The default endpoint is Groq's OpenAI-compatible API.
package genai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type Config struct {
	// API key for the generation service
	APIKey string `envconfig:"ITSU_GENAI_API_KEY"`

	BaseURL string `envconfig:"ITSU_GENAI_BASE_URL" default:"https://api.groq.com/openai/v1"`

	Model string `envconfig:"ITSU_GENAI_MODEL" default:"llama-3.1-8b-instant"`

	MaxCompletionTokens int64 `envconfig:"ITSU_GENAI_MAX_TOKENS" default:"60"`

	// Advisory request timeout, a timed-out request counts as a failure
	Timeout time.Duration `envconfig:"ITSU_GENAI_TIMEOUT" default:"20s"`
}

func New(config Config) *Client {
	api := openai.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
	)
	return &Client{config: config, api: api}
}

type Client struct {
	config Config
	api    openai.Client
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt, false)
}

func (c *Client) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt, true)
}

func (c *Client) complete(ctx context.Context, prompt string, jsonObject bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:               shared.ChatModel(c.config.Model),
		MaxCompletionTokens: openai.Int(c.config.MaxCompletionTokens),
	}

	if jsonObject {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}
