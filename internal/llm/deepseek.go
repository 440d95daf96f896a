package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	deepseek "github.com/cohesion-org/deepseek-go"
	"github.com/cohesion-org/deepseek-go/constants"
)

// deepseek-go formats HTTP failures into the error text.
var overloadStatusPattern = regexp.MustCompile(`\b(429|503|529)\b`)

type deepseekClient struct {
	cfg      LLMConfig
	client   *deepseek.Client
	observer Observer
}

// NewDeepSeekClient creates an LLMClient backed by the DeepSeek chat API.
func NewDeepSeekClient(cfg LLMConfig, observer Observer) LLMClient {
	if observer == nil {
		observer = NoopObserver{}
	}
	var client *deepseek.Client
	if cfg.Endpoint != "" {
		client = deepseek.NewClient(cfg.APIKey, strings.TrimSuffix(cfg.Endpoint, "/")+"/")
	} else {
		client = deepseek.NewClient(cfg.APIKey)
	}
	return &deepseekClient{cfg: cfg, client: client, observer: observer}
}

func (c *deepseekClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	return generate(ctx, c.cfg, c.observer, req, c.complete)
}

func (c *deepseekClient) complete(ctx context.Context, req GenerateRequest, s sampling) (string, string, error) {
	var messages []deepseek.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, deepseek.ChatCompletionMessage{
			Role:    constants.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, deepseek.ChatCompletionMessage{
		Role:    constants.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, &deepseek.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: float32(s.Temperature),
		MaxTokens:   s.MaxTokens,
	})
	if err != nil {
		return "", "", deepseekErr(err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("%w: deepseek returned no choices", ErrInvalidOutput)
	}
	return resp.Choices[0].Message.Content, resp.Model, nil
}

func deepseekErr(err error) error {
	if m := overloadStatusPattern.FindString(err.Error()); m != "" {
		code, _ := strconv.Atoi(m)
		return statusErr(ProviderDeepSeek, code, err.Error())
	}
	return err
}

func (c *deepseekClient) Available(context.Context) bool {
	return c.cfg.APIKey != ""
}
