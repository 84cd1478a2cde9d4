package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"cv-review-backend/internal/llm"
)

const defaultModel = "gemini-1.5-flash"

// Client implements llm.Client backed by the Gemini API.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
}

// New creates a Gemini-backed LLM client.
func New(ctx context.Context, apiKey string, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}

	return &Client{
		client:      client,
		model:       model,
		temperature: 0.4,
	}, nil
}

// Complete sends the prompt to Gemini and returns the raw response text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	temperature := c.temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content model=%s: %w", c.model, err)
	}
	if resp == nil {
		return "", fmt.Errorf("gemini generate content model=%s: nil response", c.model)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini generate content model=%s: empty response text", c.model)
	}
	return text, nil
}

var _ llm.Client = (*Client)(nil)
