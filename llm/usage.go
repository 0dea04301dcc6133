package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tiktoken-go/tokenizer"
)

var modelPricing = map[string]struct {
	InputCostPer1K  float64
	OutputCostPer1K float64
}{
	"gpt-4o":            {0.0025, 0.01},
	"gpt-4o-mini":       {0.00015, 0.0006},
	"gpt-4.1-mini":      {0.0004, 0.0016},
	"gpt-4-turbo":       {0.01, 0.03},
	"gpt-3.5-turbo":     {0.0015, 0.002},
	"claude-haiku-4-5":  {0.001, 0.005},
	"claude-sonnet-4-5": {0.003, 0.015},
}

// CalculateCost estimates the USD cost of one call. Unknown models are priced as gpt-4o-mini.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, exists := modelPricing[model]
	if !exists {
		pricing = modelPricing[DefaultOpenAIModel]
	}

	inputCost := float64(inputTokens) / 1000.0 * pricing.InputCostPer1K
	outputCost := float64(outputTokens) / 1000.0 * pricing.OutputCostPer1K

	return inputCost + outputCost
}

// TokenCounter estimates token counts when a provider does not report usage.
type TokenCounter struct {
	encoder tokenizer.Codec
}

func NewTokenCounter() (*TokenCounter, error) {
	encoder, err := tokenizer.ForModel(tokenizer.GPT4o)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}
	return &TokenCounter{encoder: encoder}, nil
}

func (tc *TokenCounter) CountTokens(text string) int {
	tokens, _, _ := tc.encoder.Encode(text)
	return len(tokens)
}

// Usage is token consumption and cost for one step or for a whole session.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Cost         float64 `json:"cost_usd"`
	Calls        int     `json:"calls"`
}

func (u *Usage) add(inputTokens, outputTokens int, cost float64) {
	u.InputTokens += inputTokens
	u.OutputTokens += outputTokens
	u.TotalTokens += inputTokens + outputTokens
	u.Cost += cost
	u.Calls++
}

// UsageTracker accumulates usage per step. Safe for concurrent use.
type UsageTracker struct {
	mu           sync.RWMutex
	total        Usage
	steps        map[string]*Usage
	sessionStart time.Time
	counter      *TokenCounter
}

func NewUsageTracker() *UsageTracker {
	counter, err := NewTokenCounter()
	if err != nil {
		counter = nil
	}
	return &UsageTracker{
		steps:        make(map[string]*Usage),
		sessionStart: time.Now(),
		counter:      counter,
	}
}

// Record adds one call's usage. Zero token counts are estimated from the texts.
func (t *UsageTracker) Record(step, model string, inputTokens, outputTokens int, prompt, response string) {
	if t == nil {
		return
	}
	if inputTokens == 0 && t.counter != nil {
		inputTokens = t.counter.CountTokens(prompt)
	}
	if outputTokens == 0 && t.counter != nil {
		outputTokens = t.counter.CountTokens(response)
	}
	cost := CalculateCost(model, inputTokens, outputTokens)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.steps[step] == nil {
		t.steps[step] = &Usage{}
	}
	t.steps[step].add(inputTokens, outputTokens, cost)
	t.total.add(inputTokens, outputTokens, cost)
}

func (t *UsageTracker) Total() Usage {
	if t == nil {
		return Usage{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// Step returns a copy of the usage recorded for step.
func (t *UsageTracker) Step(step string) Usage {
	if t == nil {
		return Usage{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if u, ok := t.steps[step]; ok {
		return *u
	}
	return Usage{}
}

// SessionDuration is the time since the tracker was created.
func (t *UsageTracker) SessionDuration() time.Duration {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return time.Since(t.sessionStart)
}

type usageKey struct{}

// WithUsage attaches a tracker that receives the usage of every call made with
// ctx, alongside the client's own tracker. It scopes accounting to one run.
func WithUsage(ctx context.Context, t *UsageTracker) context.Context {
	return context.WithValue(ctx, usageKey{}, t)
}

// UsageFrom returns the tracker set by WithUsage, or nil.
func UsageFrom(ctx context.Context) *UsageTracker {
	t, _ := ctx.Value(usageKey{}).(*UsageTracker)
	return t
}

// recordUsage records one call in the client's tracker and in the ctx tracker, once each.
func recordUsage(ctx context.Context, client *UsageTracker, model string, inputTokens, outputTokens int, prompt, response string) {
	step := StepFrom(ctx)
	client.Record(step, model, inputTokens, outputTokens, prompt, response)
	if scoped := UsageFrom(ctx); scoped != client {
		scoped.Record(step, model, inputTokens, outputTokens, prompt, response)
	}
}
