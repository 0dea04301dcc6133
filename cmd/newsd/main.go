package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news-sentiment-agents/agent"
	"news-sentiment-agents/config"
	"news-sentiment-agents/llm"
	"news-sentiment-agents/server"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config", "error", err)
	}

	logger, err := config.NewLogger(cfg, os.Stderr)
	if err != nil {
		log.Fatal("Error creating logger", "error", err)
	}
	logger.SetPrefix("newsd")

	tracker := llm.NewUsageTracker()
	generator, err := config.NewGenerator(cfg, logger, tracker)
	if err != nil {
		logger.Fatal("Error creating generator", "error", err)
	}
	source, err := config.NewSource(cfg)
	if err != nil {
		logger.Fatal("Error creating news source", "error", err)
	}

	workflow, err := agent.NewWorkflow(agent.Deps{
		Source:    source,
		Generator: generator,
		Language:  cfg.News.Language,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("Error creating workflow", "error", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.NewHandler(workflow, logger), cfg.HTTP.CORSOrigins)

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	go func() {
		logger.Info("Listening", "addr", cfg.HTTP.Addr, "source", source.Name(), "provider", cfg.LLM.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Error starting server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
	total := tracker.Total()
	logger.Info("Stopped",
		"uptime", tracker.SessionDuration().Round(time.Second),
		"llm_calls", total.Calls,
		"tokens", total.TotalTokens,
		"cost", total.Cost,
	)
}
