package agent

import (
	"context"
	"fmt"

	"news-sentiment-agents/llm"
)

const (
	MinReportSentences = 2
	MaxReportURLs      = 8
)

// Reporter writes the final citation-bearing report.
type Reporter struct {
	generator llm.Generator
}

func NewReporter(generator llm.Generator) *Reporter {
	return &Reporter{generator: generator}
}

// ReportPrompt builds the report instruction. Sentence and URL counts are hints to
// the model, not checked afterwards.
func ReportPrompt(summary, newsText string) string {
	return fmt.Sprintf(`Generate a concise report based on the article/news summary %s.
Note:
- Generate a concise report with at least %d sentences from %s
- Mention at most %d URLs at the bottom as bullet points from %s:
`, summary, MinReportSentences, summary, MaxReportURLs, newsText)
}

// Report stores the model's answer without further processing.
func (r *Reporter) Report(ctx context.Context, st State) (Update, error) {
	concise, err := r.generator.Generate(ctx, ReportPrompt(st.Summary, st.News))
	if err != nil {
		return Update{}, fmt.Errorf("concise report: %w", err)
	}
	return Update{Concise: ptr(concise)}, nil
}
