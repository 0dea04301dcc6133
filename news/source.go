package news

import (
	"context"
	"errors"
)

const (
	// StatusOK is the status reported by a source for a successful search.
	StatusOK = "ok"
	// StatusError is the status reported by a source for a rejected search.
	StatusError = "error"

	// MaxPageSize is the largest page a single search may request.
	MaxPageSize = 50
)

var (
	// ErrNotOK is returned when the source answers with a non-ok status.
	ErrNotOK = errors.New("news source returned non-ok status")
	// ErrNoResults is returned when a search succeeds but matches nothing.
	ErrNoResults = errors.New("no articles found")
)

// Article is a single search hit. Every field is optional.
type Article struct {
	Author      string `json:"author"`
	Title       string `json:"title"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
	URL         string `json:"url"`
}

// Query describes one keyword search.
type Query struct {
	Text     string
	Language string
	Page     int
	PageSize int
}

// Response is the ranked result of a search.
type Response struct {
	Status       string
	TotalResults int
	Articles     []Article
}

// Source searches a news index by keyword.
type Source interface {
	Search(ctx context.Context, q Query) (Response, error)
	Name() string
}

// normalize fills defaults and clamps the page size to what sources accept.
func (q Query) normalize() Query {
	if q.Language == "" {
		q.Language = "en"
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 || q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}
