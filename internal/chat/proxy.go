package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"fashion-auth/pkg/errors"
	"fashion-auth/pkg/logger"
)

const systemPrompt = "You are a concise fashion stylist. Give practical outfit advice."

// Proxy forwards one chat message to a third-party completion API. Stateless:
// no retry, no streaming, a fixed token cap per reply.
type Proxy struct {
	client    *resty.Client
	maxTokens int
	log       *logger.Logger
}

// NewProxy creates a proxy against the given completion endpoint
func NewProxy(upstreamURL, apiKey string, maxTokens int, log *logger.Logger) *Proxy {
	client := resty.New().
		SetBaseURL(upstreamURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey)

	return &Proxy{client: client, maxTokens: maxTokens, log: log}
}

type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Forward sends the message upstream and returns the single reply
func (p *Proxy) Forward(ctx context.Context, message string) (string, error) {
	body := completionRequest{
		Model: "gpt-4o-mini",
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens: p.maxTokens,
	}

	var result completionResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/v1/chat/completions")
	if err != nil {
		return "", errors.NewTransportError("Failed to reach completion API", err)
	}
	if resp.IsError() {
		return "", errors.NewExternalError(
			fmt.Sprintf("completion API returned status %d", resp.StatusCode()), nil)
	}
	if len(result.Choices) == 0 {
		return "", errors.NewInternalError("Completion API returned no choices", nil)
	}

	p.log.WithField("reply_length", len(result.Choices[0].Message.Content)).Debug("Chat reply forwarded")

	return result.Choices[0].Message.Content, nil
}
