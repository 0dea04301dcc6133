package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"news-sentiment-agents/agent"
)

// Runner runs one workflow for a topic.
type Runner interface {
	Run(ctx context.Context, topic string, progress agent.ProgressFunc) (agent.Result, error)
}

const blankTopicMessage = "Please enter a topic before submitting."

// Commands start with commandPrefix so any plain word can be a topic.
const commandPrefix = ":"

type REPL struct {
	runner  Runner
	scanner *bufio.Scanner
	out     io.Writer
}

func NewREPL(runner Runner, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		runner:  runner,
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Start reads topics line by line until :quit, EOF or ctx is done.
func (r *REPL) Start(ctx context.Context) {
	fmt.Fprintln(r.out, "📰 News Sentiment REPL")
	fmt.Fprintln(r.out, "Enter a topic to fetch news, summarize it and write a concise report.")
	fmt.Fprintln(r.out)
	r.showHelp()

	for ctx.Err() == nil {
		fmt.Fprint(r.out, "🔎 Topic: ")
		if !r.scanner.Scan() {
			fmt.Fprintln(r.out)
			return
		}

		input := strings.TrimSpace(r.scanner.Text())
		if !strings.HasPrefix(input, commandPrefix) {
			r.handleTopic(ctx, input)
			continue
		}

		switch strings.ToLower(strings.TrimPrefix(input, commandPrefix)) {
		case "help", "h":
			r.showHelp()
		case "quit", "exit", "q":
			fmt.Fprintln(r.out, "👋 Goodbye!")
			return
		default:
			fmt.Fprintf(r.out, "⚠️  Unknown command %q, try %shelp\n\n", input, commandPrefix)
		}
	}
}

func (r *REPL) handleTopic(ctx context.Context, topic string) {
	if err := agent.ValidateTopic(topic); err != nil {
		fmt.Fprintf(r.out, "⚠️  %s\n\n", blankTopicMessage)
		return
	}

	fmt.Fprintf(r.out, "🚀 Running workflow for %q\n", topic)
	result, err := r.runner.Run(ctx, topic, r.printProgress)
	if err != nil {
		var stepErr *agent.StepError
		if errors.As(err, &stepErr) {
			fmt.Fprintf(r.out, "❌ Workflow stopped at %s: %v\n\n", stepErr.Node, stepErr.Err)
		} else {
			fmt.Fprintf(r.out, "❌ Workflow failed: %v\n\n", err)
		}
		return
	}

	fmt.Fprint(r.out, FormatResult(result))
}

func (r *REPL) printProgress(u agent.ProgressUpdate) {
	switch u.Status {
	case agent.StatusStarted:
		fmt.Fprintf(r.out, "  ⏳ %s\n", u.Message)
	case agent.StatusCompleted:
		fmt.Fprintf(r.out, "  ✅ %s\n", u.Message)
	case agent.StatusError:
		fmt.Fprintf(r.out, "  ❌ %s\n", u.Message)
	}
}

// FormatResult renders a finished run as plain text.
func FormatResult(result agent.Result) string {
	var b strings.Builder
	s := result.State

	b.WriteString("\n")
	fmt.Fprintf(&b, "📰 Topic: %s\n", s.Topic)
	fmt.Fprintf(&b, "🔁 Fetch count: %d out of %d\n", s.FetchCount, agent.MaxFetchAttempts)
	fmt.Fprintf(&b, "🧭 Sentiment: %s\n", s.Sentiment)
	b.WriteString("─────────────────────────────────────────────────────────────\n")
	b.WriteString(s.Concise)
	if !strings.HasSuffix(s.Concise, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("─────────────────────────────────────────────────────────────\n")
	fmt.Fprintf(&b, "⏱  %v • %d tokens • $%.4f\n\n",
		result.Stats.TotalDuration.Round(time.Millisecond), result.Usage.TotalTokens, result.Usage.Cost)
	return b.String()
}

func (r *REPL) showHelp() {
	fmt.Fprintln(r.out, "Commands:")
	fmt.Fprintln(r.out, "  <topic> - Analyze news for a topic")
	fmt.Fprintln(r.out, "  :help   - Show this help message")
	fmt.Fprintln(r.out, "  :quit   - Exit the REPL (also Ctrl+D)")
	fmt.Fprintln(r.out)
}
