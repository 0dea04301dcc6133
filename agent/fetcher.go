package agent

import (
	"context"
	"fmt"

	"news-sentiment-agents/news"

	"github.com/charmbracelet/log"
)

const fetchPageSize = news.MaxPageSize

// Fetcher pulls articles for the topic and renders them into one text block.
type Fetcher struct {
	source   news.Source
	language string
	logger   *log.Logger
}

func NewFetcher(source news.Source, language string, logger *log.Logger) *Fetcher {
	if language == "" {
		language = "en"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{source: source, language: language, logger: logger}
}

// Fetch always returns an update: on success it carries the rendered articles and
// the incremented fetch count, on failure an empty block. The error, if any, is
// meant to be absorbed by the driver.
func (f *Fetcher) Fetch(ctx context.Context, s State) (Update, error) {
	attempt := s.Attempts + 1
	empty := Update{News: ptr(""), Attempts: ptr(attempt)}

	resp, err := f.source.Search(ctx, news.Query{
		Text:     s.Topic,
		Language: f.language,
		Page:     1,
		PageSize: fetchPageSize,
	})
	if err != nil {
		f.logger.Error("Error while fetching news",
			"source", f.source.Name(),
			"topic", s.Topic,
			"attempt", attempt,
			"error", err,
		)
		return empty, fmt.Errorf("fetch from %s: %w", f.source.Name(), err)
	}

	if resp.Status != news.StatusOK || resp.TotalResults == 0 || len(resp.Articles) == 0 {
		f.logger.Warn("No data found",
			"source", f.source.Name(),
			"topic", s.Topic,
			"attempt", attempt,
			"status", resp.Status,
		)
		return empty, fmt.Errorf("fetch from %s: %w", f.source.Name(), news.ErrNoResults)
	}

	f.logger.Info("Fetched articles",
		"source", f.source.Name(),
		"topic", s.Topic,
		"attempt", attempt,
		"articles", len(resp.Articles),
		"total_results", resp.TotalResults,
	)

	return Update{
		News:       ptr(news.Render(resp.Articles)),
		Sources:    news.URLs(resp.Articles, MaxReportURLs),
		FetchCount: ptr(s.FetchCount + 1),
		Attempts:   ptr(attempt),
	}, nil
}
