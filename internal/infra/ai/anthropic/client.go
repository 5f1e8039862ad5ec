package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	domai "github.com/bryanwahyu/copyguard/internal/domain/ai"
)

const defaultModel = "claude-opus-4-6"

type Client struct {
	client    anthropic.Client
	Model     string
	MaxTokens int
}

// NewClient builds a Messages client. Retries are disabled: a failed
// analysis is recorded, not retried. Extra options are applied last.
func NewClient(apiKey, model string, maxTokens int, opts ...option.RequestOption) *Client {
	if model == "" {
		model = defaultModel
	}
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &Client{
		client:    anthropic.NewClient(opts...),
		Model:     model,
		MaxTokens: maxTokens,
	}
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.Model),
		MaxTokens: int64(c.MaxTokens),
		System: []anthropic.TextBlockParam{{
			Text: system,
			// guideline section is stable across calls
			CacheControl: anthropic.NewCacheControlEphemeralParam(),
		}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", domai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	// first text block wins; thinking blocks are skipped
	for _, block := range msg.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", errors.New("empty response from model")
}
