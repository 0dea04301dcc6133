package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"slices"

	"news-sentiment-agents/agent"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
)

const blankTopicMessage = "Please enter a topic before submitting."

// Runner runs one workflow for a topic.
type Runner interface {
	Run(ctx context.Context, topic string, progress agent.ProgressFunc) (agent.Result, error)
}

type Handler struct {
	runner   Runner
	logger   *log.Logger
	markdown goldmark.Markdown
}

func NewHandler(runner Runner, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		runner:   runner,
		logger:   logger,
		markdown: goldmark.New(),
	}
}

// NewRouter registers the API routes. An origin of "*" allows every origin.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.POST("/api/analyze", h.Analyze)
	r.GET("/health", h.Health)
	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Analyze runs the workflow synchronously for the posted topic.
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := agent.ValidateTopic(req.Topic); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: blankTopicMessage})
		return
	}

	result, err := h.runner.Run(c.Request.Context(), req.Topic, nil)
	if err != nil {
		resp := ErrorResponse{Error: err.Error()}
		var stepErr *agent.StepError
		if errors.As(err, &stepErr) {
			resp.Node = string(stepErr.Node)
		}
		h.logger.Error("Analyze failed", "topic", req.Topic, "error", err)
		c.JSON(http.StatusBadGateway, resp)
		return
	}

	c.JSON(http.StatusOK, h.toAnalyzeResponse(result))
}

func (h *Handler) toAnalyzeResponse(result agent.Result) AnalyzeResponse {
	s := result.State

	var html bytes.Buffer
	if err := h.markdown.Convert([]byte(s.Concise), &html); err != nil {
		h.logger.Warn("Markdown conversion failed", "topic", s.Topic, "error", err)
		html.Reset()
	}

	sources := s.Sources
	if sources == nil {
		sources = []string{}
	}

	return AnalyzeResponse{
		Topic:       s.Topic,
		FetchCount:  s.FetchCount,
		MaxFetches:  agent.MaxFetchAttempts,
		Sentiment:   string(s.Sentiment),
		Concise:     s.Concise,
		ConciseHTML: html.String(),
		Sources:     sources,
		DurationMS:  result.Stats.TotalDuration.Milliseconds(),
		TotalTokens: result.Usage.TotalTokens,
		TotalCost:   result.Usage.Cost,
	}
}
