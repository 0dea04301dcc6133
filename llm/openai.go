package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Generator with the chat completions API.
type OpenAIClient struct {
	client       openai.Client
	model        string
	systemPrompt string
	timeout      time.Duration
	logger       *log.Logger
	tracker      *UsageTracker
}

func NewOpenAIClient(cfg Config) *OpenAIClient {
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
		cfg.Model = DefaultOpenAIModel
	}

	return &OpenAIClient{
		client:       openai.NewClient(opts...),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		timeout:      cfg.Timeout,
		logger:       cfg.Logger,
		tracker:      cfg.Tracker,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt, openai.ChatCompletionNewParams{})
}

func (c *OpenAIClient) GenerateStructured(ctx context.Context, prompt string, schema Schema) (string, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        schema.Name,
		Description: openai.String(schema.Description),
		Schema:      schema.Schema,
		Strict:      openai.Bool(true),
	}

	return c.complete(ctx, prompt, openai.ChatCompletionNewParams{
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, params openai.ChatCompletionNewParams) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	step := StepFrom(ctx)
	startTime := time.Now()

	var messages []openai.ChatCompletionMessageParamUnion
	if c.systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(c.systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params.Messages = messages
	params.Model = openai.ChatModel(c.model)

	resp, err := c.client.Chat.Completions.New(callCtx, params)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Error("OpenAI API request failed",
			"error", err,
			"model", c.model,
			"step", step,
			"duration", duration,
		)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	content := resp.Choices[0].Message.Content

	inputTokens := int(resp.Usage.PromptTokens)
	outputTokens := int(resp.Usage.CompletionTokens)
	recordUsage(ctx, c.tracker, c.model, inputTokens, outputTokens, prompt, content)

	c.logger.Info("OpenAI API request completed",
		"model", c.model,
		"step", step,
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
		"duration", duration,
		"request_id", resp.ID,
	)

	return content, nil
}
