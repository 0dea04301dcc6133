package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// DefaultRSSBaseURL is the Google News host used for RSS keyword search.
const DefaultRSSBaseURL = "https://news.google.com"

// RSSSearchClient searches a news RSS search endpoint and maps feed items to articles.
type RSSSearchClient struct {
	baseURL    string
	parser     *gofeed.Parser
	httpClient *http.Client
}

func NewRSSSearchClient(baseURL string) *RSSSearchClient {
	if baseURL == "" {
		baseURL = DefaultRSSBaseURL
	}
	return &RSSSearchClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		parser:     gofeed.NewParser(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *RSSSearchClient) Name() string {
	return "RSS"
}

// Search fetches the feed for q and pages through its items locally.
func (c *RSSSearchClient) Search(ctx context.Context, q Query) (Response, error) {
	q = q.normalize()

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("hl", q.Language)
	params.Set("gl", "US")
	params.Set("ceid", "US:"+q.Language)

	feedURL := c.baseURL + "/rss/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("rss new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("rss fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{Status: StatusError}, fmt.Errorf("%w: http %s", ErrNotOK, resp.Status)
	}

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to parse feed from URL %s: %w", feedURL, err)
	}

	items := extractArticles(feed)
	total := len(items)

	start := (q.Page - 1) * q.PageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + q.PageSize
	if end > len(items) {
		end = len(items)
	}

	return Response{
		Status:       StatusOK,
		TotalResults: total,
		Articles:     items[start:end],
	}, nil
}

func extractArticles(feed *gofeed.Feed) []Article {
	articles := make([]Article, 0, len(feed.Items))

	for _, item := range feed.Items {
		a := Article{
			Title:   item.Title,
			Content: htmlToText(item.Content),
			URL:     item.Link,
		}

		if item.Author != nil {
			a.Author = item.Author.Name
		} else if len(item.Authors) > 0 && item.Authors[0] != nil {
			a.Author = item.Authors[0].Name
		}

		if item.PublishedParsed != nil {
			a.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
		} else if item.UpdatedParsed != nil {
			a.PublishedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
		} else {
			a.PublishedAt = item.Published
		}

		if a.Content == "" {
			a.Content = htmlToText(item.Description)
		}

		articles = append(articles, a)
	}

	return articles
}

// htmlToText drops markup from feed descriptions and collapses whitespace.
func htmlToText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
