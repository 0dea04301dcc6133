package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/charmbracelet/log"
)

const anthropicMaxTokens = 2048

// AnthropicClient implements Generator with the Messages API. Structured mode has no
// server-side schema enforcement, so the schema is sent in the system prompt.
type AnthropicClient struct {
	client       anthropic.Client
	model        string
	systemPrompt string
	timeout      time.Duration
	logger       *log.Logger
	tracker      *UsageTracker
}

func NewAnthropicClient(cfg Config) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}

	return &AnthropicClient{
		client:       anthropic.NewClient(opts...),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		timeout:      cfg.Timeout,
		logger:       cfg.Logger,
		tracker:      cfg.Tracker,
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt, c.systemPrompt)
}

func (c *AnthropicClient) GenerateStructured(ctx context.Context, prompt string, schema Schema) (string, error) {
	raw, err := json.Marshal(schema.Schema)
	if err != nil {
		return "", fmt.Errorf("marshal schema %s: %w", schema.Name, err)
	}

	system := strings.TrimSpace(c.systemPrompt + "\n\n" +
		"Respond with a single JSON object and nothing else. " + schema.Description +
		"\nJSON schema:\n" + string(raw))

	return c.complete(ctx, prompt, system)
}

func (c *AnthropicClient) complete(ctx context.Context, prompt, system string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	step := StepFrom(ctx)
	startTime := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(callCtx, params)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Error("Anthropic API request failed",
			"error", err,
			"model", c.model,
			"step", step,
			"duration", duration,
		)
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	if len(resp.Content) == 0 {
		return "", fmt.Errorf("no response from anthropic")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		sb.WriteString(block.Text)
	}
	content := sb.String()

	inputTokens := int(resp.Usage.InputTokens)
	outputTokens := int(resp.Usage.OutputTokens)
	recordUsage(ctx, c.tracker, c.model, inputTokens, outputTokens, prompt, content)

	c.logger.Info("Anthropic API request completed",
		"model", c.model,
		"step", step,
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
		"duration", duration,
		"request_id", resp.ID,
	)

	return content, nil
}
