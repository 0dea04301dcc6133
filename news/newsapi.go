package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultNewsAPIBaseURL is the public NewsAPI endpoint.
const DefaultNewsAPIBaseURL = "https://newsapi.org"

// NewsAPIClient searches the NewsAPI /v2/everything endpoint.
type NewsAPIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewNewsAPIClient creates a client. An empty baseURL selects the public endpoint.
func NewNewsAPIClient(apiKey, baseURL string) *NewsAPIClient {
	if baseURL == "" {
		baseURL = DefaultNewsAPIBaseURL
	}
	return &NewsAPIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *NewsAPIClient) Name() string {
	return "NewsAPI"
}

// Search runs a keyword query. A non-ok status is reported as ErrNotOK; the decoded
// response is still returned so callers can inspect it.
func (c *NewsAPIClient) Search(ctx context.Context, q Query) (Response, error) {
	q = q.normalize()

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("language", q.Language)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("pageSize", strconv.Itoa(q.PageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/everything?"+params.Encode(), nil)
	if err != nil {
		return Response{}, fmt.Errorf("newsapi new request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("newsapi fetch: %w", err)
	}
	defer resp.Body.Close()

	var raw naResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Response{}, fmt.Errorf("%w: http %s", ErrNotOK, resp.Status)
		}
		return Response{}, fmt.Errorf("newsapi decode: %w", err)
	}

	out := Response{
		Status:       raw.Status,
		TotalResults: raw.TotalResults,
		Articles:     make([]Article, 0, len(raw.Articles)),
	}
	for _, a := range raw.Articles {
		out.Articles = append(out.Articles, Article{
			Author:      a.Author,
			Title:       a.Title,
			PublishedAt: a.PublishedAt,
			Content:     a.Content,
			URL:         a.URL,
		})
	}

	if raw.Status != StatusOK {
		return out, fmt.Errorf("%w: %s: %s", ErrNotOK, raw.Code, raw.Message)
	}
	return out, nil
}

type naResponse struct {
	Status       string      `json:"status"`
	Code         string      `json:"code"`
	Message      string      `json:"message"`
	TotalResults int         `json:"totalResults"`
	Articles     []naArticle `json:"articles"`
}

type naArticle struct {
	Author      string `json:"author"`
	Title       string `json:"title"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
	URL         string `json:"url"`
}
