package agent

import (
	"context"
	"errors"
	"io"
	"sync"

	"news-sentiment-agents/llm"
	"news-sentiment-agents/news"

	"github.com/charmbracelet/log"
)

func quietLogger() *log.Logger {
	logger := log.New(io.Discard)
	logger.SetLevel(log.ErrorLevel)
	return logger
}

type fakeSource struct {
	mu       sync.Mutex
	calls    int
	queries  []news.Query
	response news.Response
	err      error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Search(ctx context.Context, q news.Query) (news.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, q)
	return f.response, f.err
}

func articlesResponse(articles ...news.Article) news.Response {
	return news.Response{Status: news.StatusOK, TotalResults: len(articles), Articles: articles}
}

// fakeGenerator answers by workflow step. Classifications are consumed in order;
// the last one repeats once the script runs out.
type fakeGenerator struct {
	mu          sync.Mutex
	summary     string
	sentiments  []string
	report      string
	errs        map[string]error
	steps       []string
	prompts     map[string][]string
	classifyIdx int
	session     *llm.UsageTracker
}

func newFakeGenerator(sentiments ...string) *fakeGenerator {
	return &fakeGenerator{
		summary:    "The summary.",
		sentiments: sentiments,
		report:     "The report.",
		errs:       map[string]error{},
		prompts:    map[string][]string{},
	}
}

func (g *fakeGenerator) record(ctx context.Context, prompt string) (string, error) {
	step := llm.StepFrom(ctx)
	g.steps = append(g.steps, step)
	g.prompts[step] = append(g.prompts[step], prompt)
	if err := g.errs[step]; err != nil {
		return step, err
	}
	g.session.Record(step, llm.DefaultOpenAIModel, 10, 10, prompt, "")
	llm.UsageFrom(ctx).Record(step, llm.DefaultOpenAIModel, 10, 10, prompt, "")
	return step, nil
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	step, err := g.record(ctx, prompt)
	if err != nil {
		return "", err
	}
	switch Node(step) {
	case NodeCollectSummarize:
		return g.summary, nil
	case NodeConciseReport:
		return g.report, nil
	}
	return "", errors.New("unexpected free-form step " + step)
}

func (g *fakeGenerator) GenerateStructured(ctx context.Context, prompt string, schema llm.Schema) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.record(ctx, prompt); err != nil {
		return "", err
	}
	if len(g.sentiments) == 0 {
		return `{"sentiment":"positive"}`, nil
	}
	i := g.classifyIdx
	if i >= len(g.sentiments) {
		i = len(g.sentiments) - 1
	}
	g.classifyIdx++
	return g.sentiments[i], nil
}

func (g *fakeGenerator) count(node Node) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts[string(node)])
}

func (g *fakeGenerator) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.steps)
}

func newTestWorkflow(source news.Source, gen llm.Generator) *Workflow {
	w, err := NewWorkflow(Deps{Source: source, Generator: gen, Logger: quietLogger()})
	if err != nil {
		panic(err)
	}
	return w
}
