package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"news-sentiment-agents/agent"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const blankTopicMessage = "Please enter a topic before submitting."

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			MarginBottom(1)

	errorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#EF4444")).
			Padding(1).
			MarginBottom(1)

	fieldErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	faintStyle      = lipgloss.NewStyle().Faint(true)
	costStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	tokenStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
)

// Runner runs one workflow for a topic.
type Runner interface {
	Run(ctx context.Context, topic string, progress agent.ProgressFunc) (agent.Result, error)
}

type phase int

const (
	phaseInput phase = iota
	phaseRunning
	phaseDone
)

type stepStatus struct {
	node    agent.Node
	label   string
	status  string // "waiting", "started", "completed", "error"
	message string
	visits  int
}

// model is the bubbletea state for one topic at a time.
type model struct {
	runner   Runner
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	phase    phase
	topic    string
	inputErr string
	err      error
	result   agent.Result
	steps    []stepStatus

	progress    chan agent.ProgressUpdate
	cancel      context.CancelFunc
	totalTokens int
	totalCost   float64

	width int
	ready bool
}

type progressMsg struct {
	update agent.ProgressUpdate
}

type workflowDoneMsg struct {
	result agent.Result
	err    error
}

var stepLabels = map[agent.Node]string{
	agent.NodeFetchNews:        "Article Fetcher",
	agent.NodeCollectSummarize: "Summarizer",
	agent.NodeFindSentiment:    "Sentiment Classifier",
	agent.NodeConciseReport:    "Report Builder",
}

func newModel(runner Runner) model {
	ti := textinput.New()
	ti.Placeholder = "e.g. renewable energy"
	ti.CharLimit = 200
	ti.Width = 60
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED"))

	return model{
		runner:  runner,
		input:   ti,
		spinner: s,
		steps:   newSteps(),
	}
}

func newSteps() []stepStatus {
	steps := make([]stepStatus, len(agent.Nodes))
	for i, node := range agent.Nodes {
		steps[i] = stepStatus{node: node, label: stepLabels[node], status: "waiting", message: "Waiting to start..."}
	}
	return steps
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.YPosition = 1
			m.ready = true
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		if m.phase == phaseDone {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.phase == phaseRunning {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case progressMsg:
		if m.phase != phaseInput {
			m.applyProgress(msg.update)
			cmds = append(cmds, waitForProgress(m.progress))
		}

	case workflowDoneMsg:
		m.phase = phaseDone
		m.result = msg.result
		m.err = msg.err
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if m.ready {
			m.viewport.SetContent(m.renderContent())
			m.viewport.GotoTop()
		}
	}

	if m.phase == phaseInput {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}

	switch m.phase {
	case phaseInput:
		switch msg.String() {
		case "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != "" {
			m.inputErr = ""
		}
		return m, cmd

	case phaseDone:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "n":
			return m.reset(), textinput.Blink
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// submit starts a run unless the topic is blank.
func (m model) submit() (tea.Model, tea.Cmd) {
	topic := m.input.Value()
	if err := agent.ValidateTopic(topic); err != nil {
		m.inputErr = blankTopicMessage
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.topic = strings.TrimSpace(topic)
	m.inputErr = ""
	m.phase = phaseRunning
	m.steps = newSteps()
	m.progress = make(chan agent.ProgressUpdate, 16)
	m.input.Blur()

	return m, tea.Batch(
		m.spinner.Tick,
		runWorkflow(ctx, m.runner, m.topic, m.progress),
		waitForProgress(m.progress),
	)
}

func (m model) reset() model {
	m.phase = phaseInput
	m.topic = ""
	m.err = nil
	m.result = agent.Result{}
	m.steps = newSteps()
	m.progress = nil
	m.totalTokens = 0
	m.totalCost = 0
	m.input.Reset()
	m.input.Focus()
	return m
}

// runWorkflow runs the workflow off the UI goroutine, forwarding progress to ch.
func runWorkflow(ctx context.Context, runner Runner, topic string, ch chan<- agent.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		defer close(ch)
		result, err := runner.Run(ctx, topic, func(u agent.ProgressUpdate) {
			ch <- u
		})
		return workflowDoneMsg{result: result, err: err}
	}
}

func waitForProgress(ch <-chan agent.ProgressUpdate) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg{update: update}
	}
}

func (m *model) applyProgress(u agent.ProgressUpdate) {
	m.totalTokens = u.TotalTokens
	m.totalCost = u.TotalCost
	for i := range m.steps {
		if m.steps[i].node != u.Node {
			continue
		}
		m.steps[i].status = u.Status
		m.steps[i].message = u.Message
		if u.Status == agent.StatusStarted {
			m.steps[i].visits++
		}
		return
	}
}

func (m model) View() string {
	s := titleStyle.Render("📰 News Sentiment Agents") + "\n"

	switch m.phase {
	case phaseInput:
		s += "Enter a topic and press Enter to fetch and analyze the news:\n\n"
		s += m.input.View() + "\n"
		if m.inputErr != "" {
			s += "\n" + fieldErrorStyle.Render(m.inputErr) + "\n"
		}
		s += "\n" + faintStyle.Render("enter: submit • esc/ctrl+c: quit")

	case phaseRunning:
		s += fmt.Sprintf("Topic: %s\n\n", m.topic)
		s += m.renderSteps()
		s += "\n" + m.renderUsage()
		s += "\n\n" + faintStyle.Render("ctrl+c: cancel and quit")

	case phaseDone:
		if !m.ready {
			return s + m.renderContent()
		}
		s += m.viewport.View()
		s += "\n" + faintStyle.Render("↑/↓: scroll • n: new topic • q/ctrl+c: quit")
	}

	return s
}

func (m model) renderSteps() string {
	var b strings.Builder
	for _, step := range m.steps {
		var icon string
		var color lipgloss.Color
		switch step.status {
		case agent.StatusStarted:
			icon = m.spinner.View()
			color = lipgloss.Color("#7D56F4")
		case agent.StatusCompleted:
			icon = "✅"
			color = lipgloss.Color("#04B575")
		case agent.StatusError:
			icon = "❌"
			color = lipgloss.Color("#FF5F87")
		default:
			icon = "⏳"
			color = lipgloss.Color("#626262")
		}

		style := lipgloss.NewStyle().Foreground(color)
		label := step.label
		if step.visits > 1 {
			label = fmt.Sprintf("%s (pass %d)", label, step.visits)
		}
		fmt.Fprintf(&b, "%s %s - %s\n", icon, style.Render(label), style.Render(step.message))
	}
	return b.String()
}

func (m model) renderUsage() string {
	return costStyle.Render(fmt.Sprintf("💰 Total Cost: $%.4f", m.totalCost)) + "  " +
		tokenStyle.Render(fmt.Sprintf("🔢 Total Tokens: %s", formatNumber(m.totalTokens)))
}

// renderContent formats the finished run as markdown and renders it with glamour.
func (m model) renderContent() string {
	if m.err != nil {
		var stepErr *agent.StepError
		content := fmt.Sprintf("Topic: %s\nError: %v", m.topic, m.err)
		if errors.As(m.err, &stepErr) {
			content = fmt.Sprintf("Topic: %s\nStep: %s\nError: %v", m.topic, stepErr.Node, stepErr.Err)
		}
		return errorStyle.Render(content) + "\n" + m.renderSteps()
	}

	markdown := resultMarkdown(m.result)
	width := m.width - 4
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n") + "\n\n" + m.renderUsage()
}

func resultMarkdown(result agent.Result) string {
	s := result.State
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Topic)
	fmt.Fprintf(&b, "**Fetch count:** %d out of %d  \n", s.FetchCount, agent.MaxFetchAttempts)
	fmt.Fprintf(&b, "**Sentiment:** %s  \n", s.Sentiment)
	fmt.Fprintf(&b, "**Duration:** %v\n\n", result.Stats.TotalDuration.Round(time.Millisecond))
	b.WriteString("---\n\n")
	b.WriteString(s.Concise)
	b.WriteString("\n")
	return b.String()
}

// formatNumber formats a number with commas for better readability
func formatNumber(n int) string {
	str := strconv.Itoa(n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}
	return result.String()
}
