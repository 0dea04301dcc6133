package agent

import (
	"context"
	"fmt"

	"news-sentiment-agents/llm"
)

// Summarizer asks the model for a prose summary of the fetched articles.
type Summarizer struct {
	generator llm.Generator
}

func NewSummarizer(generator llm.Generator) *Summarizer {
	return &Summarizer{generator: generator}
}

// SummaryPrompt builds the summarization instruction. newsText may be empty.
func SummaryPrompt(topic, newsText string) string {
	return fmt.Sprintf("I need a complete summary of the topic %s from the following data %s", topic, newsText)
}

// Summarize stores the model's answer verbatim.
func (s *Summarizer) Summarize(ctx context.Context, st State) (Update, error) {
	summary, err := s.generator.Generate(ctx, SummaryPrompt(st.Topic, st.News))
	if err != nil {
		return Update{}, fmt.Errorf("summarize %q: %w", st.Topic, err)
	}
	return Update{Summary: ptr(summary)}, nil
}
