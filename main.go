package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"news-sentiment-agents/agent"
	"news-sentiment-agents/config"
	"news-sentiment-agents/llm"
	"news-sentiment-agents/repl"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

func printHelp() {
	fmt.Println("📰 News Sentiment Agents")
	fmt.Println()
	fmt.Println("Fetches news for a topic, summarizes it, classifies the sentiment and writes a")
	fmt.Println("concise report with sources. Unfavorable coverage is refetched up to 3 times.")
	fmt.Println()
	fmt.Println("SETUP:")
	fmt.Println("  Set the variables below in the environment or in a .env file.")
	fmt.Println("  NEWS_AGENT_CONFIG may point at a YAML file; environment values win over it.")
	fmt.Println()
	fmt.Println("  NEWS_SOURCE        newsapi (default) or rss")
	fmt.Println("  NEWSAPI_KEY        required for the newsapi source")
	fmt.Println("  NEWS_LANGUAGE      article language (default en)")
	fmt.Println("  LLM_PROVIDER       openai (default) or anthropic")
	fmt.Println("  LLM_MODEL          model name (provider default if empty)")
	fmt.Println("  OPENAI_API_KEY     required for the openai provider")
	fmt.Println("  ANTHROPIC_API_KEY  required for the anthropic provider")
	fmt.Println("  LLM_TIMEOUT        per-call timeout (default 3m)")
	fmt.Println("  UI_MODE            tui (default) or plain")
	fmt.Println("  LOG_LEVEL          debug, info, warn, error (default info)")
	fmt.Println("  LOG_FILE           log destination while the TUI is running")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  go run .")
	fmt.Println("  go run ./cmd/newsd    # HTTP API on HTTP_ADDR (default :8080)")
	fmt.Println()
	fmt.Println("STEPS:")
	fmt.Println("  • Article Fetcher - Searches the news source for the topic")
	fmt.Println("  • Summarizer - Summarizes the fetched articles")
	fmt.Println("  • Sentiment Classifier - Labels the summary positive, negative or mixed")
	fmt.Println("  • Report Builder - Writes a concise report citing up to 8 URLs")
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded", "error", err)
	}

	if len(os.Args) > 1 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		printHelp()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config", "error", err, "hint", "run with --help")
	}

	plain := cfg.UI.Mode == config.UIModePlain

	logOut, closeLog, err := logWriter(cfg, plain)
	if err != nil {
		log.Fatal("Error opening log file", "error", err)
	}
	defer closeLog()

	logger, err := config.NewLogger(cfg, logOut)
	if err != nil {
		log.Fatal("Error creating logger", "error", err)
	}

	tracker := llm.NewUsageTracker()
	generator, err := config.NewGenerator(cfg, logger, tracker)
	if err != nil {
		log.Fatal("Error creating generator", "error", err)
	}
	source, err := config.NewSource(cfg)
	if err != nil {
		log.Fatal("Error creating news source", "error", err)
	}

	workflow, err := agent.NewWorkflow(agent.Deps{
		Source:    source,
		Generator: generator,
		Language:  cfg.News.Language,
		Logger:    logger,
	})
	if err != nil {
		log.Fatal("Error creating workflow", "error", err)
	}

	if plain {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		repl.NewREPL(workflow, os.Stdin, os.Stdout).Start(ctx)
		return
	}

	program := tea.NewProgram(newModel(workflow), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatal(err)
	}
}

// logWriter keeps log output off the terminal while the TUI owns it.
func logWriter(cfg config.Config, plain bool) (io.Writer, func(), error) {
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}
	if plain {
		return os.Stderr, func() {}, nil
	}
	return io.Discard, func() {}, nil
}
