package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"news-sentiment-agents/llm"

	"github.com/invopop/jsonschema"
)

// SentimentResponse is the structured output expected from the classifier.
type SentimentResponse struct {
	Sentiment string `json:"sentiment" jsonschema:"enum=positive,enum=negative,enum=mixed" jsonschema_description:"Overall tone of the article summary"`
}

// Classifier labels a summary with a sentiment.
type Classifier struct {
	generator llm.Generator
	schema    llm.Schema
}

func NewClassifier(generator llm.Generator) *Classifier {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	return &Classifier{
		generator: generator,
		schema: llm.Schema{
			Name:        "sentiment_response",
			Description: "Sentiment label for a news summary",
			Schema:      reflector.Reflect(SentimentResponse{}),
		},
	}
}

// SentimentPrompt builds the classification instruction.
func SentimentPrompt(summary string) string {
	return fmt.Sprintf("Provide a JSON object with key 'sentiment' and value should be any one of ['%s', '%s', '%s'] for a article summary. %s",
		SentimentPositive, SentimentNegative, SentimentMixed, summary)
}

// Classify fails with ErrMalformedSentiment when the answer has no usable label.
func (c *Classifier) Classify(ctx context.Context, st State) (Update, error) {
	raw, err := c.generator.GenerateStructured(ctx, SentimentPrompt(st.Summary), c.schema)
	if err != nil {
		return Update{}, fmt.Errorf("classify sentiment: %w", err)
	}

	label, err := ParseSentimentResponse(raw)
	if err != nil {
		return Update{}, err
	}
	return Update{Sentiment: ptr(label)}, nil
}

// ParseSentimentResponse extracts the sentiment label from a model answer.
func ParseSentimentResponse(raw string) (Sentiment, error) {
	content := llm.CleanJSON(raw)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", fmt.Errorf("%w: %v, content: %s", ErrMalformedSentiment, err, content)
	}

	value, ok := parsed["sentiment"].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: missing sentiment field, content: %s", ErrMalformedSentiment, content)
	}
	return ParseSentiment(value), nil
}
