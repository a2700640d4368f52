package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
)

const DefaultModel = "gemini-2.5-flash"

// Client explains commands through the Gemini API
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// Config holds Gemini client settings
type Config struct {
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
	// BaseURL overrides the API endpoint; empty uses the public one.
	BaseURL string
}

// NewClient creates a new explainer client. No request is made until the
// first Explain or Warmup call.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client:      client,
		model:       cfg.Model,
		temperature: 0.3,
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// Explain returns the tagged explanation text for a command
func (c *Client) Explain(ctx context.Context, command string, style ai.Style) (string, error) {
	system, user := ai.ExplainPrompt(command, style)

	temperature := c.temperature
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   c.maxTokens,
		// thinking tokens count against MaxOutputTokens
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	})
	if err != nil {
		return "", fmt.Errorf("explain request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("explain request returned no text")
	}
	return ai.NormalizeTags(text), nil
}

// Warmup lists a single model, which opens the connection without generating
func (c *Client) Warmup(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1}); err != nil {
		return fmt.Errorf("warmup failed: %w", err)
	}
	return nil
}
