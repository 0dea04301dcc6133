package news

import (
	"fmt"
	"strings"
)

// Render formats articles as fixed blocks, concatenated in result order.
// An empty slice renders as an empty string.
func Render(articles []Article) string {
	var sb strings.Builder
	for _, a := range articles {
		sb.WriteString(RenderArticle(a))
	}
	return sb.String()
}

// RenderArticle formats a single article block.
func RenderArticle(a Article) string {
	return fmt.Sprintf("\nAuthor: %s\nTitle: %s\nPublished At: %s\nContent: %s\nURL: %s\n",
		a.Author, a.Title, a.PublishedAt, a.Content, a.URL)
}

// URLs returns the non-empty article URLs in order, capped at limit (0 means no cap).
func URLs(articles []Article, limit int) []string {
	urls := make([]string, 0, len(articles))
	for _, a := range articles {
		if a.URL == "" {
			continue
		}
		urls = append(urls, a.URL)
		if limit > 0 && len(urls) == limit {
			break
		}
	}
	return urls
}
