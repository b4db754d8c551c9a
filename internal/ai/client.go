package ai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Client wraps an OpenAI-compatible chat endpoint for trade commentary.
// With no API key configured the client stays nil-safe and Commentary
// reports unavailability instead of erroring.
type Client struct {
	client *openai.Client
	model  string
	log    *logrus.Logger
}

func NewClient(apiKey, baseURL, model string, log *logrus.Logger) *Client {
	c := &Client{model: model, log: log}
	if apiKey == "" {
		return c
	}
	ocfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		ocfg.BaseURL = baseURL
	}
	c.client = openai.NewClientWithConfig(ocfg)
	return c
}

func (c *Client) Available() bool {
	return c.client != nil
}

func (c *Client) Commentary(ctx context.Context, req CommentaryRequest) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("ai client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	userPrompt := buildUserPrompt(req)
	c.log.WithFields(logrus.Fields{"symbol": req.Symbol, "candles": len(req.Candles)}).
		Info("requesting ai commentary")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
