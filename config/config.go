package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"news-sentiment-agents/llm"
	"news-sentiment-agents/news"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "NEWS_AGENT_CONFIG"
	newsAPIKeyEnv      = "NEWSAPI_KEY"
	newsAPIBaseURLEnv  = "NEWSAPI_BASE_URL"
	newsSourceEnv      = "NEWS_SOURCE"
	newsLanguageEnv    = "NEWS_LANGUAGE"
	rssBaseURLEnv      = "RSS_BASE_URL"
	llmProviderEnv     = "LLM_PROVIDER"
	llmModelEnv        = "LLM_MODEL"
	llmBaseURLEnv      = "LLM_BASE_URL"
	llmTimeoutEnv      = "LLM_TIMEOUT"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
	logLevelEnv        = "LOG_LEVEL"
	logFileEnv         = "LOG_FILE"
	uiModeEnv          = "UI_MODE"
	httpAddrEnv        = "HTTP_ADDR"
	corsOriginsEnv     = "CORS_ORIGINS"
)

const (
	SourceNewsAPI = "newsapi"
	SourceRSS     = "rss"

	UIModeTUI   = "tui"
	UIModePlain = "plain"
)

// ErrMissingCredential is returned by Validate when a selected backend has no API key.
var ErrMissingCredential = errors.New("missing credential")

// Config holds every setting the binaries need.
type Config struct {
	News NewsConfig `yaml:"news"`
	LLM  LLMConfig  `yaml:"llm"`
	Log  LogConfig  `yaml:"log"`
	UI   UIConfig   `yaml:"ui"`
	HTTP HTTPConfig `yaml:"http"`
}

// NewsConfig selects and configures the article source.
type NewsConfig struct {
	Source     string `yaml:"source"`
	APIKey     string `yaml:"apiKey"`
	BaseURL    string `yaml:"baseUrl"`
	RSSBaseURL string `yaml:"rssBaseUrl"`
	Language   string `yaml:"language"`
}

// LLMConfig selects the model provider.
type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"baseUrl"`
	OpenAIAPIKey    string        `yaml:"openaiApiKey"`
	AnthropicAPIKey string        `yaml:"anthropicApiKey"`
	SystemPrompt    string        `yaml:"systemPrompt"`
	Timeout         time.Duration `yaml:"timeout"`
}

// APIKey returns the key for the configured provider.
func (c LLMConfig) APIKey() string {
	if strings.EqualFold(c.Provider, llm.ProviderAnthropic) {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type UIConfig struct {
	Mode string `yaml:"mode"`
}

type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

func defaultConfig() Config {
	return Config{
		News: NewsConfig{
			Source:   SourceNewsAPI,
			Language: "en",
		},
		LLM: LLMConfig{
			Provider: llm.ProviderOpenAI,
			Timeout:  llm.DefaultTimeout,
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Mode: UIModeTUI,
		},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// NEWS_AGENT_CONFIG (if any) and environment overrides, in that order.
// Loading .env files is left to the caller.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return cfg, err
	}
	cfg.normalize()
	return cfg, nil
}

// normalize lower-cases the enumerated settings so callers can compare them directly.
func (c *Config) normalize() {
	c.News.Source = strings.ToLower(strings.TrimSpace(c.News.Source))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.UI.Mode = strings.ToLower(strings.TrimSpace(c.UI.Mode))
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.News.APIKey, newsAPIKeyEnv)
	setString(&c.News.BaseURL, newsAPIBaseURLEnv)
	setString(&c.News.Source, newsSourceEnv)
	setString(&c.News.Language, newsLanguageEnv)
	setString(&c.News.RSSBaseURL, rssBaseURLEnv)

	setString(&c.LLM.Provider, llmProviderEnv)
	setString(&c.LLM.Model, llmModelEnv)
	setString(&c.LLM.BaseURL, llmBaseURLEnv)
	setString(&c.LLM.OpenAIAPIKey, openAIAPIKeyEnv)
	setString(&c.LLM.AnthropicAPIKey, anthropicAPIKeyEnv)
	if v := os.Getenv(llmTimeoutEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", llmTimeoutEnv, err)
		}
		c.LLM.Timeout = d
	}

	setString(&c.Log.Level, logLevelEnv)
	setString(&c.Log.File, logFileEnv)
	setString(&c.UI.Mode, uiModeEnv)
	setString(&c.HTTP.Addr, httpAddrEnv)
	if v := os.Getenv(corsOriginsEnv); v != "" {
		c.HTTP.CORSOrigins = splitList(v)
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.News.Source, override.News.Source)
	mergeString(&base.News.APIKey, override.News.APIKey)
	mergeString(&base.News.BaseURL, override.News.BaseURL)
	mergeString(&base.News.RSSBaseURL, override.News.RSSBaseURL)
	mergeString(&base.News.Language, override.News.Language)

	mergeString(&base.LLM.Provider, override.LLM.Provider)
	mergeString(&base.LLM.Model, override.LLM.Model)
	mergeString(&base.LLM.BaseURL, override.LLM.BaseURL)
	mergeString(&base.LLM.OpenAIAPIKey, override.LLM.OpenAIAPIKey)
	mergeString(&base.LLM.AnthropicAPIKey, override.LLM.AnthropicAPIKey)
	mergeString(&base.LLM.SystemPrompt, override.LLM.SystemPrompt)
	if override.LLM.Timeout > 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}

	mergeString(&base.Log.Level, override.Log.Level)
	mergeString(&base.Log.File, override.Log.File)
	mergeString(&base.UI.Mode, override.UI.Mode)
	mergeString(&base.HTTP.Addr, override.HTTP.Addr)
	if len(override.HTTP.CORSOrigins) > 0 {
		base.HTTP.CORSOrigins = override.HTTP.CORSOrigins
	}
	return base
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks that the selected source and provider exist and have credentials.
func (c Config) Validate() error {
	switch strings.ToLower(c.News.Source) {
	case SourceNewsAPI:
		if c.News.APIKey == "" {
			return fmt.Errorf("%w: %s is required for the newsapi source", ErrMissingCredential, newsAPIKeyEnv)
		}
	case SourceRSS:
	default:
		return fmt.Errorf("unknown news source %q (want %s or %s)", c.News.Source, SourceNewsAPI, SourceRSS)
	}

	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: %s is required for the openai provider", ErrMissingCredential, openAIAPIKeyEnv)
		}
	case llm.ProviderAnthropic:
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("%w: %s is required for the anthropic provider", ErrMissingCredential, anthropicAPIKeyEnv)
		}
	default:
		return fmt.Errorf("unknown llm provider %q (want %s or %s)", c.LLM.Provider, llm.ProviderOpenAI, llm.ProviderAnthropic)
	}

	switch strings.ToLower(c.UI.Mode) {
	case UIModeTUI, UIModePlain:
	default:
		return fmt.Errorf("unknown ui mode %q (want %s or %s)", c.UI.Mode, UIModeTUI, UIModePlain)
	}
	return nil
}

// NewSource builds the news source selected by the configuration.
func NewSource(c Config) (news.Source, error) {
	switch strings.ToLower(c.News.Source) {
	case SourceNewsAPI:
		return news.NewNewsAPIClient(c.News.APIKey, c.News.BaseURL), nil
	case SourceRSS:
		return news.NewRSSSearchClient(c.News.RSSBaseURL), nil
	}
	return nil, fmt.Errorf("unknown news source %q", c.News.Source)
}

// NewGenerator builds the language model client selected by the configuration.
func NewGenerator(c Config, logger *log.Logger, tracker *llm.UsageTracker) (llm.Generator, error) {
	return llm.New(llm.Config{
		Provider:     c.LLM.Provider,
		Model:        c.LLM.Model,
		APIKey:       c.LLM.APIKey(),
		BaseURL:      c.LLM.BaseURL,
		SystemPrompt: c.LLM.SystemPrompt,
		Timeout:      c.LLM.Timeout,
		Logger:       logger,
		Tracker:      tracker,
	})
}

// NewLogger returns a logger writing to w at the configured level.
func NewLogger(c Config, w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", logLevelEnv, err)
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
	return logger, nil
}
