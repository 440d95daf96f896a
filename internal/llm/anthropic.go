package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicClient struct {
	cfg      LLMConfig
	client   *anthropic.Client
	observer Observer
}

// NewAnthropicClient creates an LLMClient backed by the Anthropic Messages
// API. SDK-level retries are disabled; overloads surface as ErrOverloaded.
func NewAnthropicClient(cfg LLMConfig, observer Observer) LLMClient {
	if observer == nil {
		observer = NoopObserver{}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")+"/"))
	}
	return &anthropicClient{
		cfg:      cfg,
		client:   anthropic.NewClient(opts...),
		observer: observer,
	}
}

func (c *anthropicClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	return generate(ctx, c.cfg, c.observer, req, c.complete)
}

func (c *anthropicClient) complete(ctx context.Context, req GenerateRequest, s sampling) (string, string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.F(c.cfg.Model),
		MaxTokens:   anthropic.F(int64(s.MaxTokens)),
		Temperature: anthropic.F(s.Temperature),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		}),
	}
	if req.SystemPrompt != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(req.SystemPrompt),
		})
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", "", statusErr(ProviderAnthropic, apiErr.StatusCode, err.Error())
		}
		return "", "", err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsUnion().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		}
	}
	return text.String(), string(msg.Model), nil
}

// Available reports whether an API key is configured. The Messages API has
// no free health endpoint.
func (c *anthropicClient) Available(context.Context) bool {
	return c.cfg.APIKey != ""
}
