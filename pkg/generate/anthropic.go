package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultBaseURL = "https://api.anthropic.com"

const systemPrompt = "You are a support assistant drafting a first reply to an incoming " +
	"support question. Answer briefly and helpfully. A human operator reviews your draft " +
	"before it is sent, so never promise actions you cannot take."

// Anthropic generates reply drafts with the Anthropic Messages API.
type Anthropic struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropic(apiKey, apiBase, model string, maxTokens int) *Anthropic {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(normalizeBaseURL(apiBase)),
	)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Anthropic{
		client:    &client,
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

func (a *Anthropic) Generate(ctx context.Context, question string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			tb := block.AsText()
			sb.WriteString(tb.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func normalizeBaseURL(apiBase string) string {
	base := strings.TrimSpace(apiBase)
	if base == "" {
		return defaultBaseURL
	}

	base = strings.TrimRight(base, "/")
	if b, ok := strings.CutSuffix(base, "/v1"); ok {
		base = b
	}
	if base == "" {
		return defaultBaseURL
	}

	return base
}
