package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"news-sentiment-agents/llm"
	"news-sentiment-agents/news"

	"github.com/charmbracelet/log"
)

// Node names a state of the workflow graph.
type Node string

const (
	NodeStart            Node = "start"
	NodeFetchNews        Node = "fetch_news"
	NodeCollectSummarize Node = "collect_summarize"
	NodeFindSentiment    Node = "find_sentiment"
	NodeConciseReport    Node = "concise_report"
	NodeEnd              Node = "end"
)

// Nodes lists the step nodes in the order they first run.
var Nodes = []Node{NodeFetchNews, NodeCollectSummarize, NodeFindSentiment, NodeConciseReport}

// Step statuses reported through ProgressUpdate.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// start, MaxFetchAttempts passes of fetch/summarize/classify, report, end.
const maxTransitions = 2 + 3*MaxFetchAttempts + 1

// ProgressUpdate reports a node starting, finishing or failing.
type ProgressUpdate struct {
	Node        Node
	Status      string
	Message     string
	Error       error
	State       State
	TotalTokens int
	TotalCost   float64
}

// ProgressFunc receives progress updates. It is called on the run's goroutine.
type ProgressFunc func(ProgressUpdate)

// WorkflowStats holds timing information for one run.
type WorkflowStats struct {
	TotalDuration time.Duration
	NodeDurations map[Node]time.Duration
	Visits        map[Node]int
}

// Result is the terminal state of a run.
type Result struct {
	State State
	Stats WorkflowStats
	Usage llm.Usage
}

// Deps wires the workflow to its collaborators.
type Deps struct {
	Source    news.Source
	Generator llm.Generator
	Language  string
	Logger    *log.Logger
}

// Workflow drives fetch → summarize → classify → (fetch | report). It holds no
// per-run state, so one Workflow may serve concurrent runs. Token usage is
// counted per run through a tracker attached to the run's context.
type Workflow struct {
	fetcher    *Fetcher
	summarizer *Summarizer
	classifier *Classifier
	reporter   *Reporter
	logger     *log.Logger
}

// NewWorkflow creates a workflow from deps.
func NewWorkflow(deps Deps) (*Workflow, error) {
	if deps.Source == nil {
		return nil, errors.New("news source is required")
	}
	if deps.Generator == nil {
		return nil, errors.New("llm generator is required")
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	return &Workflow{
		fetcher:    NewFetcher(deps.Source, deps.Language, deps.Logger),
		summarizer: NewSummarizer(deps.Generator),
		classifier: NewClassifier(deps.Generator),
		reporter:   NewReporter(deps.Generator),
		logger:     deps.Logger,
	}, nil
}

// ValidateTopic rejects empty and whitespace-only topics.
func ValidateTopic(topic string) error {
	if strings.TrimSpace(topic) == "" {
		return ErrBlankTopic
	}
	return nil
}

type stepFunc func(ctx context.Context, s State) (Update, error)

// Run executes one workflow for topic. progress may be nil. On a fatal step
// failure the partial state is returned along with a *StepError.
func (w *Workflow) Run(ctx context.Context, topic string, progress ProgressFunc) (Result, error) {
	if err := ValidateTopic(topic); err != nil {
		return Result{}, err
	}
	if progress == nil {
		progress = func(ProgressUpdate) {}
	}

	usage := llm.NewUsageTracker()
	ctx = llm.WithUsage(ctx, usage)

	startTime := time.Now()
	state := NewState(strings.TrimSpace(topic))
	stats := WorkflowStats{
		NodeDurations: make(map[Node]time.Duration),
		Visits:        make(map[Node]int),
	}

	finish := func(err error) (Result, error) {
		stats.TotalDuration = time.Since(startTime)
		return Result{State: state, Stats: stats, Usage: usage.Total()}, err
	}

	w.logger.Info("Workflow started", "topic", state.Topic)

	node := NodeStart
	for transitions := 0; node != NodeEnd; transitions++ {
		if transitions >= maxTransitions {
			return finish(ErrTooManyTransitions)
		}
		if err := ctx.Err(); err != nil {
			return finish(&StepError{Node: node, Kind: FailureFatal, Err: err})
		}

		var err error
		switch node {
		case NodeStart:
			node = NodeFetchNews

		case NodeFetchNews:
			state, err = w.runStep(ctx, node, state, &stats, progress, w.fetcher.Fetch)
			if err != nil {
				return finish(err)
			}
			node = NodeCollectSummarize

		case NodeCollectSummarize:
			state, err = w.runStep(ctx, node, state, &stats, progress, w.summarizer.Summarize)
			if err != nil {
				return finish(err)
			}
			node = NodeFindSentiment

		case NodeFindSentiment:
			state, err = w.runStep(ctx, node, state, &stats, progress, w.classifier.Classify)
			if err != nil {
				return finish(err)
			}
			route := Gate(state)
			w.logger.Info("Sentiment gate",
				"topic", state.Topic,
				"sentiment", state.Sentiment,
				"attempts", state.Attempts,
				"fetch_count", state.FetchCount,
				"route", route,
			)
			if route == RouteFetch {
				node = NodeFetchNews
			} else {
				node = NodeConciseReport
			}

		case NodeConciseReport:
			state, err = w.runStep(ctx, node, state, &stats, progress, w.reporter.Report)
			if err != nil {
				return finish(err)
			}
			node = NodeEnd

		default:
			return finish(fmt.Errorf("unknown workflow node %q", node))
		}
	}

	result, _ := finish(nil)
	w.logger.Info("Workflow complete",
		"topic", state.Topic,
		"sentiment", state.Sentiment,
		"fetch_count", state.FetchCount,
		"attempts", state.Attempts,
		"duration", result.Stats.TotalDuration,
	)
	return result, nil
}

// runStep executes fn for node and merges its update. Fetch failures are
// recoverable; every other failure is fatal.
func (w *Workflow) runStep(ctx context.Context, node Node, state State, stats *WorkflowStats, progress ProgressFunc, fn stepFunc) (State, error) {
	stats.Visits[node]++
	usage := llm.UsageFrom(ctx)
	w.emit(progress, usage, node, StatusStarted, startMessage(node, state), nil, state)

	start := time.Now()
	update, err := fn(llm.WithStep(ctx, string(node)), state)
	stats.NodeDurations[node] += time.Since(start)

	if err != nil {
		if node == NodeFetchNews {
			state = state.Apply(update)
			stepErr := &StepError{Node: node, Kind: FailureRecoverable, Err: err}
			w.logger.Warn("Recovered from step failure", "node", node, "error", err)
			w.emit(progress, usage, node, StatusCompleted, "No articles found, continuing with empty news", stepErr, state)
			return state, nil
		}
		stepErr := &StepError{Node: node, Kind: FailureFatal, Err: err}
		w.logger.Error("Workflow aborted", "node", node, "error", err)
		w.emit(progress, usage, node, StatusError, err.Error(), stepErr, state)
		return state, stepErr
	}

	state = state.Apply(update)
	w.emit(progress, usage, node, StatusCompleted, doneMessage(node, state), nil, state)
	return state, nil
}

func (w *Workflow) emit(progress ProgressFunc, tracker *llm.UsageTracker, node Node, status, message string, err error, state State) {
	usage := tracker.Total()
	progress(ProgressUpdate{
		Node:        node,
		Status:      status,
		Message:     message,
		Error:       err,
		State:       state,
		TotalTokens: usage.TotalTokens,
		TotalCost:   usage.Cost,
	})
}

func startMessage(node Node, s State) string {
	switch node {
	case NodeFetchNews:
		return fmt.Sprintf("Fetching articles (attempt %d of %d)...", s.Attempts+1, MaxFetchAttempts)
	case NodeCollectSummarize:
		return "Summarizing articles..."
	case NodeFindSentiment:
		return "Classifying sentiment..."
	case NodeConciseReport:
		return "Writing concise report..."
	}
	return string(node)
}

func doneMessage(node Node, s State) string {
	switch node {
	case NodeFetchNews:
		return fmt.Sprintf("Fetched %d sources", len(s.Sources))
	case NodeCollectSummarize:
		return "Summary ready"
	case NodeFindSentiment:
		return fmt.Sprintf("Sentiment: %s", s.Sentiment)
	case NodeConciseReport:
		return "Report ready"
	}
	return string(node)
}
