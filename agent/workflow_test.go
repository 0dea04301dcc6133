package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"news-sentiment-agents/llm"
	"news-sentiment-agents/news"
)

const (
	positive = `{"sentiment":"positive"}`
	negative = `{"sentiment":"negative"}`
	mixed    = `{"sentiment":"mixed"}`
)

var sampleArticles = []news.Article{
	{Author: "A", Title: "Go wins", PublishedAt: "2026-01-01T00:00:00Z", Content: "Great news", URL: "https://example.com/a"},
	{Title: "More Go", URL: "https://example.com/b"},
}

func TestRunZeroArticlesTerminatesAfterThreeAttempts(t *testing.T) {
	source := &fakeSource{response: news.Response{Status: news.StatusOK, TotalResults: 0}}
	gen := newFakeGenerator(negative)

	result, err := newTestWorkflow(source, gen).Run(context.Background(), "nothing matches", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if source.calls != MaxFetchAttempts {
		t.Errorf("expected %d fetch attempts, got %d", MaxFetchAttempts, source.calls)
	}
	if result.State.Attempts != MaxFetchAttempts {
		t.Errorf("expected %d attempts recorded, got %d", MaxFetchAttempts, result.State.Attempts)
	}
	if result.State.FetchCount != 0 {
		t.Errorf("expected fetch count 0, got %d", result.State.FetchCount)
	}
	for i, prompt := range gen.prompts[string(NodeCollectSummarize)] {
		if prompt != SummaryPrompt("nothing matches", "") {
			t.Errorf("summary %d saw non-empty news: %q", i+1, prompt)
		}
	}
	if result.State.Concise != "The report." {
		t.Errorf("expected report to be written, got %q", result.State.Concise)
	}
	if gen.count(NodeConciseReport) != 1 {
		t.Errorf("expected one report, got %d", gen.count(NodeConciseReport))
	}
}

func TestRunFetchTransportFailureIsRecovered(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	gen := newFakeGenerator(positive)

	var fetchErr error
	result, err := newTestWorkflow(source, gen).Run(context.Background(), "golang", func(u ProgressUpdate) {
		if u.Node == NodeFetchNews && u.Status == StatusCompleted {
			fetchErr = u.Error
		}
	})
	if err != nil {
		t.Fatalf("fetch failures must not abort the run: %v", err)
	}

	var stepErr *StepError
	if !errors.As(fetchErr, &stepErr) {
		t.Fatalf("expected a StepError on the fetch progress update, got %v", fetchErr)
	}
	if stepErr.Node != NodeFetchNews || stepErr.Kind != FailureRecoverable {
		t.Errorf("expected recoverable fetch_news failure, got %s", stepErr)
	}
	if result.State.News != "" || result.State.FetchCount != 0 {
		t.Errorf("expected empty news and zero fetch count, got %+v", result.State)
	}
	if result.State.Concise == "" {
		t.Error("expected run to reach the report")
	}
}

func TestRunFetchCountNeverExceedsCeiling(t *testing.T) {
	source := &fakeSource{response: articlesResponse(sampleArticles...)}
	gen := newFakeGenerator(negative)

	result, err := newTestWorkflow(source, gen).Run(context.Background(), "golang", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.State.FetchCount != MaxFetchAttempts {
		t.Errorf("expected fetch count %d, got %d", MaxFetchAttempts, result.State.FetchCount)
	}
	if source.calls != MaxFetchAttempts {
		t.Errorf("expected %d searches, got %d", MaxFetchAttempts, source.calls)
	}
	if gen.count(NodeFindSentiment) != MaxFetchAttempts {
		t.Errorf("expected %d classifications, got %d", MaxFetchAttempts, gen.count(NodeFindSentiment))
	}
	if result.State.Sentiment != SentimentNegative {
		t.Errorf("expected final sentiment negative, got %s", result.State.Sentiment)
	}
}

func TestRunPositiveFirstFetchesOnce(t *testing.T) {
	source := &fakeSource{response: articlesResponse(sampleArticles...)}
	gen := newFakeGenerator(positive)

	result, err := newTestWorkflow(source, gen).Run(context.Background(), "golang", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.State.FetchCount != 1 || source.calls != 1 {
		t.Errorf("expected exactly one fetch, got count=%d calls=%d", result.State.FetchCount, source.calls)
	}
	if result.Stats.Visits[NodeFetchNews] != 1 {
		t.Errorf("retry edge taken: %d fetch visits", result.Stats.Visits[NodeFetchNews])
	}
	if result.State.Sentiment != SentimentPositive {
		t.Errorf("expected positive, got %s", result.State.Sentiment)
	}
}

func TestRunMixedFinishes(t *testing.T) {
	source := &fakeSource{response: articlesResponse(sampleArticles...)}
	gen := newFakeGenerator(mixed)

	result, err := newTestWorkflow(source, gen).Run(context.Background(), "golang", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 1 || result.State.Sentiment != SentimentMixed {
		t.Errorf("expected one fetch with mixed sentiment, got calls=%d sentiment=%s", source.calls, result.State.Sentiment)
	}
}

func TestRunUnknownLabelIsTreatedAsNegative(t *testing.T) {
	source := &fakeSource{response: articlesResponse(sampleArticles...)}
	gen := newFakeGenerator(`{"sentiment":"Neutral"}`, positive)

	result, err := newTestWorkflow(source, gen).Run(context.Background(), "golang", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 2 || result.State.FetchCount != 2 {
		t.Errorf("expected a refetch after unknown label, got calls=%d count=%d", source.calls, result.State.FetchCount)
	}
}

func TestRunNegativeTwiceThenPositive(t *testing.T) {
	source := &fakeSource{response: articlesResponse(sampleArticles...)}
	gen := newFakeGenerator(negative, negative, positive)

	result, err := newTestWorkflow(source, gen).Run(context.Background(), "golang", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.State.FetchCount != 3 {
		t.Errorf("expected fetch count 3, got %d", result.State.FetchCount)
	}
	if gen.count(NodeConciseReport) != 1 {
		t.Fatalf("expected one report, got %d", gen.count(NodeConciseReport))
	}

	want := []string{
		"collect_summarize", "find_sentiment",
		"collect_summarize", "find_sentiment",
		"collect_summarize", "find_sentiment",
		"concise_report",
	}
	if strings.Join(gen.steps, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected step order:\n got  %v\n want %v", gen.steps, want)
	}
}

func TestRunBlankTopicInvokesNothing(t *testing.T) {
	for _, topic := range []string{"", "   ", "\t\n "} {
		t.Run(fmt.Sprintf("%q", topic), func(t *testing.T) {
			source := &fakeSource{response: articlesResponse(sampleArticles...)}
			gen := newFakeGenerator(positive)
			var updates int

			_, err := newTestWorkflow(source, gen).Run(context.Background(), topic, func(ProgressUpdate) { updates++ })

			if !errors.Is(err, ErrBlankTopic) {
				t.Errorf("expected ErrBlankTopic, got %v", err)
			}
			if source.calls != 0 || gen.totalCalls() != 0 || updates != 0 {
				t.Errorf("blank topic ran steps: searches=%d generations=%d updates=%d", source.calls, gen.totalCalls(), updates)
			}
		})
	}
}

func TestRunConciseIsVerbatim(t *testing.T) {
	source := &fakeSource{response: articlesResponse(sampleArticles...)}
	gen := newFakeGenerator(positive)
	gen.report = "  Go had a great week. Adoption grew.\n\n- https://example.com/a\n"

	result, err := newTestWorkflow(source, gen).Run(context.Background(), "golang", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State.Concise != gen.report {
		t.Errorf("concise was transformed:\n got  %q\n want %q", result.State.Concise, gen.report)
	}

	prompt := gen.prompts[string(NodeConciseReport)][0]
	if !strings.Contains(prompt, "https://example.com/a") || !strings.Contains(prompt, "The summary.") {
		t.Errorf("report prompt missing summary or news: %q", prompt)
	}
}

func TestRunMalformedSentimentAborts(t *testing.T) {
	for name, raw := range map[string]string{
		"missing field": `{"label":"positive"}`,
		"not json":      "I think it is positive",
		"wrong type":    `{"sentiment": 1}`,
	} {
		t.Run(name, func(t *testing.T) {
			source := &fakeSource{response: articlesResponse(sampleArticles...)}
			gen := newFakeGenerator(raw)

			result, err := newTestWorkflow(source, gen).Run(context.Background(), "golang", nil)

			if !errors.Is(err, ErrMalformedSentiment) {
				t.Fatalf("expected ErrMalformedSentiment, got %v", err)
			}
			var stepErr *StepError
			if !errors.As(err, &stepErr) || stepErr.Node != NodeFindSentiment || stepErr.Kind != FailureFatal {
				t.Errorf("expected fatal find_sentiment StepError, got %#v", err)
			}
			if result.State.Concise != "" {
				t.Errorf("concise populated after abort: %q", result.State.Concise)
			}
			if gen.count(NodeConciseReport) != 0 {
				t.Error("report ran after abort")
			}
		})
	}
}

func TestRunSummarizerFailureIsFatal(t *testing.T) {
	source := &fakeSource{response: articlesResponse(sampleArticles...)}
	gen := newFakeGenerator(positive)
	gen.errs[string(NodeCollectSummarize)] = errors.New("rate limited")

	_, err := newTestWorkflow(source, gen).Run(context.Background(), "golang", nil)

	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Node != NodeCollectSummarize {
		t.Fatalf("expected collect_summarize StepError, got %v", err)
	}
	if gen.count(NodeFindSentiment) != 0 {
		t.Error("classifier ran after summarizer failure")
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{response: articlesResponse(sampleArticles...)}
	_, err := newTestWorkflow(source, newFakeGenerator(positive)).Run(ctx, "golang", nil)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if source.calls != 0 {
		t.Error("fetch ran on a cancelled context")
	}
}

func TestRunProgressUpdates(t *testing.T) {
	source := &fakeSource{response: articlesResponse(sampleArticles...)}
	gen := newFakeGenerator(positive)

	var got []string
	_, err := newTestWorkflow(source, gen).Run(context.Background(), "golang", func(u ProgressUpdate) {
		got = append(got, string(u.Node)+":"+u.Status)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"fetch_news:started", "fetch_news:completed",
		"collect_summarize:started", "collect_summarize:completed",
		"find_sentiment:started", "find_sentiment:completed",
		"concise_report:started", "concise_report:completed",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected progress:\n got  %v\n want %v", got, want)
	}
}

func TestRunTopicIsNotMutated(t *testing.T) {
	source := &fakeSource{response: articlesResponse(sampleArticles...)}
	gen := newFakeGenerator(negative, positive)

	result, err := newTestWorkflow(source, gen).Run(context.Background(), "  golang  ", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State.Topic != "golang" {
		t.Errorf("unexpected topic %q", result.State.Topic)
	}
	for _, q := range source.queries {
		if q.Text != "golang" || q.Page != 1 || q.PageSize != news.MaxPageSize || q.Language != "en" {
			t.Errorf("unexpected query %+v", q)
		}
	}
}

func TestNewWorkflowRequiresDeps(t *testing.T) {
	if _, err := NewWorkflow(Deps{Generator: newFakeGenerator()}); err == nil {
		t.Error("expected error without source")
	}
	if _, err := NewWorkflow(Deps{Source: &fakeSource{}}); err == nil {
		t.Error("expected error without generator")
	}
}

func TestRunUsageIsPerRun(t *testing.T) {
	source := &fakeSource{response: articlesResponse(sampleArticles...)}
	gen := newFakeGenerator(positive)
	gen.session = llm.NewUsageTracker()
	w := newTestWorkflow(source, gen)

	var lastTokens int
	progress := func(u ProgressUpdate) { lastTokens = u.TotalTokens }

	first, err := w.Run(context.Background(), "golang", progress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := w.Run(context.Background(), "golang", progress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Usage != second.Usage {
		t.Errorf("identical runs reported different usage: %+v vs %+v", first.Usage, second.Usage)
	}
	if second.Usage.Calls != 3 || second.Usage.TotalTokens != 60 {
		t.Errorf("expected 3 calls and 60 tokens for one run, got %+v", second.Usage)
	}
	if lastTokens != 60 {
		t.Errorf("progress reported %d tokens for the second run", lastTokens)
	}
	if total := gen.session.Total(); total.Calls != 6 {
		t.Errorf("session tracker should still see both runs, got %d calls", total.Calls)
	}
}
