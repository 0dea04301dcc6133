package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-haiku-4-5"
	DefaultTimeout        = 180 * time.Second
)

// Schema describes the JSON shape requested in structured mode.
type Schema struct {
	Name        string
	Description string
	Schema      any
}

// Generator is the text generation interface used by the workflow steps.
type Generator interface {
	// Generate returns the model's free-form answer to prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateStructured asks for a JSON document matching schema and returns the raw text.
	GenerateStructured(ctx context.Context, prompt string, schema Schema) (string, error)
}

// Config selects and configures a Generator implementation.
type Config struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	SystemPrompt string
	Timeout      time.Duration
	Logger       *log.Logger
	Tracker      *UsageTracker
}

// New builds the Generator named by cfg.Provider.
func New(cfg Config) (Generator, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = DefaultOpenAIModel
		}
		return NewOpenAIClient(cfg), nil
	case ProviderAnthropic:
		if cfg.Model == "" {
			cfg.Model = DefaultAnthropicModel
		}
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

type stepKey struct{}

// WithStep tags ctx so usage recorded during the call is attributed to step.
func WithStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, stepKey{}, step)
}

// StepFrom returns the step name set by WithStep, or "unknown".
func StepFrom(ctx context.Context) string {
	if step, ok := ctx.Value(stepKey{}).(string); ok && step != "" {
		return step
	}
	return "unknown"
}
